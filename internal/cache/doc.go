// Package cache defines the disk-backed store responsible for translating
// resource requests into flat StoragePath/<store>/<escaped-path> files, where
// the filename is the URL-escaped request path so distinct paths can never
// collide on disk. Each store
// directory holds one immutable, versioned snapshot of the application's
// offline resources; entries pair a body file with a JSON metadata sidecar so
// the gateway can replay status and headers on a hit. The store exposes
// read/write primitives with safe semantics (temp file + rename) plus
// store-level enumeration and deletion that the deploy package uses to evict
// stale versions.
package cache
