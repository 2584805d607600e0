// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// AssetService is the main entry point: it registers assets, serves metadata
// with presigned download URLs, and enqueues derived-asset generation onto
// the in-process job queue. The DeriveHandler executes those jobs, composing
// the resilience primitives (breaker, retry) around the slow rendering and
// storage work.
//
// Services receive dependencies through constructor injection and depend on
// domain entities and repository interfaces, never on specific infrastructure
// implementations.
package service
