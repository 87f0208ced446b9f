// Package daemon coordinates the long-running scanning service: it enforces
// single-instance execution, owns the camera and the active scan session,
// and exposes the loopback control API the CLI talks to.
package daemon
