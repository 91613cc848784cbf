//go:build linux

// Package netpoll wraps Linux epoll into the small readiness-polling
// primitive the gateway and worker reactors share: register a raw,
// non-blocking file descriptor, block for one or more readiness
// events, and react. It intentionally bypasses the Go runtime's own
// netpoller — the reactor thread owns its I/O loop directly, and
// handing sockets to net.Conn would hide the readiness events it is
// built around.
package netpoll

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Event is one readiness notification.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Err      bool
}

// Poller owns one epoll instance.
type Poller struct {
	epfd int
	buf  []unix.EpollEvent
}

// New creates a Poller with room for up to capacity events per Wait.
func New(capacity int) (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("netpoll: epoll_create1: %w", err)
	}
	return &Poller{epfd: fd, buf: make([]unix.EpollEvent, capacity)}, nil
}

// Close releases the epoll instance.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}

func interestMask(writable bool) uint32 {
	ev := uint32(unix.EPOLLIN)
	if writable {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Register adds fd to the epoll set.
func (p *Poller) Register(fd int, writable bool) error {
	ev := unix.EpollEvent{Events: interestMask(writable), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("netpoll: epoll_ctl(ADD, %d): %w", fd, err)
	}
	return nil
}

// Reregister changes the interest set for an already-registered fd.
func (p *Poller) Reregister(fd int, writable bool) error {
	ev := unix.EpollEvent{Events: interestMask(writable), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("netpoll: epoll_ctl(MOD, %d): %w", fd, err)
	}
	return nil
}

// Deregister removes fd from the epoll set. It is not an error to
// deregister an fd that was already closed out from under the poller.
func (p *Poller) Deregister(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT && err != unix.EBADF {
		return fmt.Errorf("netpoll: epoll_ctl(DEL, %d): %w", fd, err)
	}
	return nil
}

// Wait blocks with no timeout until at least one fd is ready, then
// returns the batch of readiness events.
func (p *Poller) Wait() ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.buf, -1)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("netpoll: epoll_wait: %w", err)
	}

	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		raw := p.buf[i]
		events = append(events, Event{
			Fd:       int(raw.Fd),
			Readable: raw.Events&unix.EPOLLIN != 0,
			Writable: raw.Events&unix.EPOLLOUT != 0,
			Err:      raw.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		})
	}
	return events, nil
}
