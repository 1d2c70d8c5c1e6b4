// Package preflight provides the readiness checks behind `shipconf check`:
// folder access, imaging binaries and a login/logout round trip against the
// order service.
package preflight
