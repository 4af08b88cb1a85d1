// Package artifact defines the write-once key/value store that node-processes
// use to coordinate. Keys are slash separated paths relative to the session
// workdir; values are small records (an address, an exit code, an empty
// marker).
//
// The shared-filesystem implementation lives in the fs sub-package; the
// memory sub-package backs tests and single host simulations. Any other
// coordination service offering put-if-absent, get and delete can be plugged
// in without touching the protocol code built on top.
package artifact
