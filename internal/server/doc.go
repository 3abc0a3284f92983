// Package server hosts the Fiber HTTP service and request middleware chain
// for the directory API. It bootstraps Fiber, attaches recovery and
// request-ID middlewares, and exposes router constructors that main and the
// route packages reuse. Keep exports narrow and accept explicit dependencies
// so admin surfaces can be added without widening the core.
package server
