// Package task manages background job queuing, processing, and lifecycle.
// It provides a bounded in-process queue with a fixed worker pool for
// asynchronous execution of long-running operations like derived-asset
// generation, ensuring they don't block HTTP request handling. Queue state
// is process-scoped: jobs do not survive restarts, and a full queue is
// surfaced immediately as backpressure rather than absorbed.
package task
