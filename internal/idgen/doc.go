// Package idgen wraps the UUID generator used for session run ids and
// temporary artifact names so that it can be stubbed in tests. Callers treat
// identifiers as opaque strings.
package idgen
