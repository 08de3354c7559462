// Package loader issues city queries and records their progress in the
// state.CityCache.
//
// A load that finds no request in flight for its lifecycle key dispatches the
// pending event on the caller's goroutine, before the query starts, and a
// fulfilled or rejected event when it settles. Concurrent loads for the same
// key share one request through a singleflight.Group. Terminal events carry the
// generation returned by their pending event, so a clear issued while a
// request is in flight wins over the late result.
//
// Query errors never reach callers. They become a failed status, and a retry
// is just another load.
package loader
