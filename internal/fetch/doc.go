// Package fetch coordinates the cache, the rate-limit gate and the remote
// client into the single read path used by the API layer: serve fresh cache,
// otherwise fetch, otherwise fall back to the newest stale copy rather than
// fail. Concurrent requests for the same resource collapse into one upstream
// call, and batch reads fan out under a bounded worker pool.
package fetch
