// Package server hosts the Fiber HTTP service and request middleware chain
// that wire incoming traffic into the cache-first resolve handler. It focuses
// on a single binary that bootstraps Fiber, attaches logging and request-ID
// middlewares, and exposes router constructors that other packages (main,
// gateway, routes) can reuse. Future phases may extend this package with TLS
// or admin surfaces, so keep exports narrow and accept explicit dependencies.
package server
