//go:build linux

package netpoll

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// RawConn adapts a raw, non-blocking file descriptor to conn.Stream
// (io.Reader/io.Writer/io.Closer). WouldBlock reports the platform
// EAGAIN/EWOULDBLOCK condition so reactors can tell "nothing ready yet"
// apart from a real error.
type RawConn struct {
	fd int
}

// NewRawConn wraps an already-open non-blocking fd.
func NewRawConn(fd int) *RawConn { return &RawConn{fd: fd} }

// Fd returns the underlying file descriptor, for poller registration.
func (c *RawConn) Fd() int { return c.fd }

func (c *RawConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *RawConn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *RawConn) Close() error {
	return unix.Close(c.fd)
}

// WouldBlock reports whether err is the non-blocking "try again" error.
func WouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// ListenTCP opens a non-blocking IPv4 TCP listening socket bound to
// 0.0.0.0:port.
func ListenTCP(port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("netpoll: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: setsockopt SO_REUSEADDR: %w", err)
	}
	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: bind 0.0.0.0:%d: %w", port, err)
	}
	if err := unix.Listen(fd, 1024); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: listen: %w", err)
	}
	return fd, nil
}

// AcceptTCP accepts one pending connection from a listening socket
// created by ListenTCP, returning a non-blocking client fd.
func AcceptTCP(listenFd int) (int, error) {
	fd, _, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// ListenUnix opens a non-blocking Unix-domain listening socket at
// path, removing any stale file left behind by a previous run first.
func ListenUnix(path string) (int, error) {
	_ = os.Remove(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("netpoll: socket: %w", err)
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: listen: %w", err)
	}
	return fd, nil
}

// AcceptUnix accepts one pending connection from a Unix listener.
func AcceptUnix(listenFd int) (int, error) {
	fd, _, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// DialUnix opens a non-blocking client connection to a Unix-domain
// socket path. Because the socket is non-blocking, connect may return
// EINPROGRESS; callers that need to confirm the handshake (the
// dispatcher does, via its Ack write) will simply see that write fail
// and drop the stream, same as for a dead or slow-to-accept worker.
func DialUnix(path string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("netpoll: socket: %w", err)
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Connect(fd, addr); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, fmt.Errorf("netpoll: connect %s: %w", path, err)
	}
	return fd, nil
}

// PeerAddr best-effort describes the remote end of a TCP fd, for
// logging only.
func PeerAddr(fd int) string {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return "unknown"
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(a.Addr[:])
		return fmt.Sprintf("%s:%d", ip.String(), a.Port)
	default:
		return "unknown"
	}
}
