package service

import (
	"errors"
	"fmt"
)

// Common service errors. Callers check for these with errors.Is; the API
// layer maps them to HTTP status codes.
var (
	// ErrKindNotDerivable indicates a derive request named a kind that is
	// not a derived rendition (e.g. "original").
	ErrKindNotDerivable = errors.New("asset kind cannot be derived")

	// ErrNotOriginal indicates a derive request targeted an asset that is
	// itself a derived rendition.
	ErrNotOriginal = errors.New("derived assets can only be created from originals")
)

// AssetServiceError wraps unexpected failures with the operation that
// produced them.
type AssetServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for AssetServiceError.
func (e *AssetServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("asset service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("asset service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *AssetServiceError) Unwrap() error {
	return e.Err
}

// NewAssetServiceError creates a new AssetServiceError.
func NewAssetServiceError(operation, message string, err error) *AssetServiceError {
	return &AssetServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
