// Package deploy owns the deployment lifecycle of one offline application:
// populate a fresh versioned store from the manifest (install), switch the
// active-store reference and sweep stale versions (activate), and answer
// resource lookups cache-first with a single live origin fetch as fallback
// (resolve). The manager holds the only mutable deployment state in the
// process; install/activate are serialized by an internal mutex while
// resolves stay read-only and may run concurrently.
package deploy
