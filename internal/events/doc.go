// Package events publishes asset lifecycle events to in-process handlers.
//
// Services emit events without knowing which handlers will process them,
// so side effects like audit logging stay out of the service layer.
//
// The primary components are:
// - AssetEvent: a snapshot of an asset at a lifecycle transition
// - Handler: interface for components that react to events
// - Emitter: interface for components that publish events
package events
