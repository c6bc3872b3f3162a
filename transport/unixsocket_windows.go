//go:build windows

package transport

import "net"

// tuneBuffers is a no-op on Windows: AF_UNIX support there does not expose
// the same SO_RCVBUF/SO_SNDBUF tuning path.
func tuneBuffers(conn net.Conn, bytes int) {}
