//go:build linux

package gateway

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// currentAddr reads back the ephemeral port the kernel assigned to a
// listening socket bound with port 0, so tests never race on a fixed
// port number.
func currentAddr(fd int) (int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, err
	}
	addr, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("unexpected sockaddr type %T", sa)
	}
	return addr.Port, nil
}

func addrString(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}
