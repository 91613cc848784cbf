// Package dispatch implements the gateway-side worker pool: it
// discovers Unix-domain IPC sockets in a directory, fans frames out to
// them round-robin, and retries failed sends against a channel-driven
// worker goroutine, renewing the pool when streams die.
package dispatch

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-reactor-2025/internal/conn"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/frame"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/netpoll"
)

// maxDiscover caps how many socket files renew will pick up per scan.
const maxDiscover = 10

// stream is one connected worker IPC socket, tracked by raw fd so send
// can do a one-shot non-blocking write without going through the full
// conn.Connection state machine — the dispatcher only ever does
// fire-and-forget writes, never reads.
type stream struct {
	fd int
}

// Pool owns the socket directory, the live stream set, and a
// round-robin cursor. It is built and driven entirely by the single
// dispatcher goroutine started by Run; nothing else touches streams or
// cursor.
type Pool struct {
	dir    string
	log    *zap.Logger
	stream []stream
	cursor int
}

// NewPool constructs an empty pool rooted at dir. Call Renew at least
// once before sending.
func NewPool(dir string, log *zap.Logger) *Pool {
	return &Pool{dir: dir, log: log}
}

// Renew rescans dir for up to maxDiscover "*.sock" files, opens a
// client connection to each, and writes a single Ack handshake frame.
// A file that fails to connect or handshake is logged and skipped, not
// retried within this call. Renew replaces the pool's stream set
// wholesale.
func (p *Pool) Renew() {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		p.log.Error("dispatch: readdir failed", zap.String("dir", p.dir), zap.Error(err))
		return
	}

	fresh := make([]stream, 0, maxDiscover)
	for _, e := range entries {
		if len(fresh) >= maxDiscover {
			break
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sock") {
			continue
		}

		path := filepath.Join(p.dir, e.Name())
		fd, err := netpoll.DialUnix(path)
		if err != nil {
			p.log.Warn("dispatch: dial worker socket failed", zap.String("path", path), zap.Error(err))
			continue
		}

		handshake := conn.New(0)
		handshake.Bind(netpoll.NewRawConn(fd))
		if err := handshake.WriteMessage(frame.Ack()); err != nil {
			p.log.Warn("dispatch: ack handshake failed", zap.String("path", path), zap.Error(err))
			_ = unixClose(fd)
			continue
		}

		fresh = append(fresh, stream{fd: fd})
	}

	p.stream = fresh
	p.cursor = 0
	p.log.Info("dispatch: renewed worker pool", zap.Int("workers", len(fresh)))
}

// sendResult is the outcome of one attempted frame write.
type sendResult int

const (
	sendFull sendResult = iota
	sendPartial
	sendError
)

// send writes one frame to the current cursor stream and advances the
// cursor. An I/O error removes the stream from the pool and retries
// against the next one; a short write is sendPartial (the caller treats
// it as a failure but the stream is kept). If the pool ever drains
// empty, one Renew is attempted before giving up — further retry/renew
// policy belongs to Run.
func (p *Pool) send(msg frame.Message) sendResult {
	wire := frame.Encode(msg)

	renewed := false
	for {
		for len(p.stream) > 0 {
			idx := p.cursor % len(p.stream)
			n, err := writeAll(p.stream[idx].fd, wire[:])
			if err != nil {
				p.removeAt(idx)
				continue
			}
			p.cursor = (idx + 1) % len(p.stream)
			if n != frame.Size {
				return sendPartial
			}
			return sendFull
		}

		if renewed {
			return sendError
		}
		p.Renew()
		renewed = true
	}
}

func (p *Pool) removeAt(idx int) {
	_ = unixClose(p.stream[idx].fd)
	p.stream = append(p.stream[:idx], p.stream[idx+1:]...)
	if len(p.stream) > 0 {
		p.cursor = p.cursor % len(p.stream)
	} else {
		p.cursor = 0
	}
}

// writeAll issues one write syscall; the IPC peer is expected to drain
// promptly, so unlike the HTTP path there is no partial retry loop
// here — a short write is reported to the caller as sendPartial and
// treated as a failure.
func writeAll(fd int, b []byte) (int, error) {
	return netpoll.NewRawConn(fd).Write(b)
}

func unixClose(fd int) error {
	return netpoll.NewRawConn(fd).Close()
}
