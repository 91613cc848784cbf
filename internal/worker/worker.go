// Package worker implements the worker-side reactor (component F): a
// mirror of the gateway's accept loop over a Unix-domain IPC listener,
// decoding frames via internal/frame and handing Payment messages to
// the aggregation back-end in internal/store. Summary frames are
// counted in metrics but not passed to the store.
package worker

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-reactor-2025/internal/conn"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/frame"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/netpoll"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/store"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/telemetry"
)

const (
	// MaxSlots is the worker's fixed slot table capacity.
	MaxSlots = 5
	// InBufferSize is 540 = 10*54, an integer multiple of the frame
	// size so a single read never splits a frame across two reads.
	InBufferSize = 540
)

// Reactor owns the IPC listener, poller, and slot table for the
// worker role.
type Reactor struct {
	listenFd int
	sockPath string
	poller   *netpoll.Poller
	slots    [MaxSlots]*conn.Connection
	fdToken  map[int]uint64
	connCnt  int
	nextTok  uint64

	store   *store.Store
	log     *zap.Logger
	metrics *telemetry.Metrics
}

// New binds the IPC listener at sockPath (pre-removing any stale file)
// and builds an empty reactor.
func New(sockPath string, st *store.Store, log *zap.Logger, metrics *telemetry.Metrics) (*Reactor, error) {
	listenFd, err := netpoll.ListenUnix(sockPath)
	if err != nil {
		return nil, fmt.Errorf("worker: bind %s: %w", sockPath, err)
	}

	poller, err := netpoll.New(MaxSlots + 1)
	if err != nil {
		_ = netpoll.NewRawConn(listenFd).Close()
		return nil, fmt.Errorf("worker: create poller: %w", err)
	}
	if err := poller.Register(listenFd, false); err != nil {
		_ = netpoll.NewRawConn(listenFd).Close()
		return nil, fmt.Errorf("worker: register listener: %w", err)
	}

	r := &Reactor{
		listenFd: listenFd,
		sockPath: sockPath,
		poller:   poller,
		fdToken:  make(map[int]uint64, MaxSlots),
		nextTok:  1,
		store:    st,
		log:      log,
		metrics:  metrics,
	}
	for i := range r.slots {
		r.slots[i] = conn.New(InBufferSize)
	}
	return r, nil
}

// Run blocks forever, driving the accept/read loop.
func (r *Reactor) Run() error {
	for {
		events, err := r.poller.Wait()
		if err != nil {
			return fmt.Errorf("worker: poll wait: %w", err)
		}
		for _, ev := range events {
			if ev.Fd == r.listenFd {
				r.acceptBurst()
				continue
			}
			r.handleConnection(ev)
		}
	}
}

// acceptBurst mirrors the gateway's accept throttling.
func (r *Reactor) acceptBurst() {
	budget := 10
	if room := MaxSlots - r.connCnt; room < budget {
		budget = room
	}

	for i := 0; i < budget; i++ {
		fd, err := netpoll.AcceptUnix(r.listenFd)
		if err != nil {
			if netpoll.WouldBlock(err) {
				return
			}
			r.log.Warn("worker: accept failed", zap.Error(err))
			continue
		}

		token := r.nextTok
		r.nextTok++
		slot := r.slots[token%MaxSlots]
		slot.Bind(netpoll.NewRawConn(fd))

		if err := r.poller.Register(fd, false); err != nil {
			r.log.Error("worker: register accepted conn failed", zap.Error(err))
			slot.Reset()
			continue
		}

		r.fdToken[fd] = token
		r.connCnt++
		r.metrics.AcceptedConnections.Inc()
	}
}

// handleConnection reads any pending frames off a ready IPC peer and
// hands decoded Payment/Summary messages to the back-end. The worker
// never drops an IPC peer on a transient error — it is a long-lived
// stream — so only WouldBlock and a genuine zero-byte EOF are treated
// specially: the former is ignored, the latter recycles the slot (a
// peer that hung up will never speak again, and a stale slot would
// otherwise pin the table's capacity and re-fire readiness forever).
func (r *Reactor) handleConnection(ev netpoll.Event) {
	token, ok := r.fdToken[ev.Fd]
	if !ok {
		return
	}
	slot := r.slots[token%MaxSlots]

	messages, n, err := slot.ReadMessages()
	if err != nil {
		if netpoll.WouldBlock(err) {
			return
		}
		if errors.Is(err, io.EOF) {
			r.closeSlot(ev.Fd, slot)
			return
		}
		r.log.Warn("worker: read failed, retaining connection", zap.Error(err))
		return
	}

	if expected := n / frame.Size; len(messages) < expected {
		r.log.Error("worker: frame decode error, truncating read batch",
			zap.Int("decoded", len(messages)), zap.Int("expected", expected))
		r.metrics.FrameDecodeErrors.Inc()
	}

	for _, msg := range messages {
		r.handleMessage(msg)
	}
	slot.Status = conn.StatusReadable
}

func (r *Reactor) handleMessage(msg frame.Message) {
	switch msg.Kind {
	case frame.KindAck:
		// handshake/keepalive: no-op.
	case frame.KindPayment:
		id := string(msg.CorrelationID[:])
		if err := r.store.RecordPayment(id, msg.AmountCents); err != nil {
			r.log.Error("worker: record payment failed", zap.Error(err))
			return
		}
		r.metrics.FramesHandled.WithLabelValues("payment").Inc()
	case frame.KindSummary:
		// Summary frames carry a read query, not a write; the
		// worker's aggregation store is read by internal/adminhttp
		// directly rather than round-tripped through IPC.
		r.metrics.FramesHandled.WithLabelValues("summary").Inc()
	}
}

func (r *Reactor) closeSlot(fd int, slot *conn.Connection) {
	_ = r.poller.Deregister(fd)
	_ = slot.Stream.Close()
	delete(r.fdToken, fd)
	slot.Reset()
	r.connCnt--
}

// Close tears down the listener and poller.
func (r *Reactor) Close() error {
	_ = r.poller.Close()
	return netpoll.NewRawConn(r.listenFd).Close()
}
