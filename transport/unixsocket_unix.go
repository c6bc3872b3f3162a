//go:build !windows

package transport

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// tuneBuffers grows the socket's kernel send/receive buffers. Best effort:
// failures here never fail the connection, only its throughput.
func tuneBuffers(conn net.Conn, bytes int) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, bytes)
	})
}
