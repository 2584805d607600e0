// Package resilience provides the failure-handling primitives shared by every
// external I/O path in the service: exponential backoff policies, retryable
// error classification, a bounded retry executor, and per-dependency circuit
// breakers. The primitives compose: a typical call site wraps a unit of work
// with a breaker's Call and retries the wrapped call with a backoff preset.
package resilience
