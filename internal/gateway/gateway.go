// Package gateway implements the front-end reactor (component D): an
// epoll-driven accept loop over a fixed 50-slot connection table that
// classifies each completed request and hands a frame off to the
// worker-pool dispatcher before writing back the canned response.
package gateway

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-reactor-2025/internal/conn"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/dispatch"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/frame"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/httpreq"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/netpoll"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/telemetry"
)

const (
	// MaxSlots is the gateway's fixed slot table capacity.
	MaxSlots = 50
	// InBufferSize is the gateway connection's fixed inbound buffer.
	InBufferSize = 350
	// AcceptBatch bounds how many sockets one listener-readiness event
	// may accept, so an accept storm cannot starve existing
	// connections.
	AcceptBatch = 10
	// listenerToken is the reserved token for the TCP listener itself.
	listenerToken = 0
)

// Reactor owns the listener, poller, and slot table for the gateway
// role. It is single-threaded: Run must be called from one goroutine,
// and the only state shared with other goroutines is the dispatcher's
// message channel.
type Reactor struct {
	listenFd int
	poller   *netpoll.Poller
	slots    [MaxSlots]*conn.Connection
	fdToken  map[int]uint64
	connCnt  int
	nextTok  uint64

	dispatcher *dispatch.Dispatcher
	log        *zap.Logger
	metrics    *telemetry.Metrics
}

// New binds the TCP listener on port and builds an empty reactor.
func New(port int, dispatcher *dispatch.Dispatcher, log *zap.Logger, metrics *telemetry.Metrics) (*Reactor, error) {
	listenFd, err := netpoll.ListenTCP(port)
	if err != nil {
		return nil, fmt.Errorf("gateway: bind :%d: %w", port, err)
	}

	poller, err := netpoll.New(MaxSlots + 1)
	if err != nil {
		_ = netpollClose(listenFd)
		return nil, fmt.Errorf("gateway: create poller: %w", err)
	}
	if err := poller.Register(listenFd, false); err != nil {
		_ = netpollClose(listenFd)
		return nil, fmt.Errorf("gateway: register listener: %w", err)
	}

	r := &Reactor{
		listenFd:   listenFd,
		poller:     poller,
		fdToken:    make(map[int]uint64, MaxSlots),
		nextTok:    1, // token 0 is reserved for the listener
		dispatcher: dispatcher,
		log:        log,
		metrics:    metrics,
	}
	for i := range r.slots {
		r.slots[i] = conn.New(InBufferSize)
	}
	return r, nil
}

func netpollClose(fd int) error {
	return netpoll.NewRawConn(fd).Close()
}

// Run blocks forever, driving the accept/dispatch loop.
func (r *Reactor) Run() error {
	for {
		events, err := r.poller.Wait()
		if err != nil {
			return fmt.Errorf("gateway: poll wait: %w", err)
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

// acceptBurst accepts up to min(AcceptBatch, MaxSlots-connCnt) pending
// sockets.
func (r *Reactor) acceptBurst() {
	budget := AcceptBatch
	if room := MaxSlots - r.connCnt; room < budget {
		budget = room
	}

	for i := 0; i < budget; i++ {
		fd, err := netpoll.AcceptTCP(r.listenFd)
		if err != nil {
			if netpoll.WouldBlock(err) {
				return
			}
			r.log.Warn("gateway: accept failed", zap.Error(err))
			continue
		}

		token := r.nextTok
		r.nextTok++
		slot := r.slots[token%MaxSlots]
		slot.Bind(netpoll.NewRawConn(fd))

		if err := r.poller.Register(fd, false); err != nil {
			r.log.Error("gateway: register accepted conn failed", zap.Error(err))
			slot.Reset()
			continue
		}

		r.fdToken[fd] = token
		r.connCnt++
		r.metrics.AcceptedConnections.Inc()
	}
}

// handleConnection resolves the slot owning ev.Fd and drives the
// connection's HTTP state machine one step.
func (r *Reactor) handleConnection(ev netpoll.Event) {
	token, ok := r.fdToken[ev.Fd]
	if !ok {
		return // stale event for an already-closed fd
	}
	slot := r.slots[token%MaxSlots]

	// An error-only wakeup carries no data and no writability; drop the
	// connection rather than spin on a level-triggered EPOLLERR.
	if ev.Err && !ev.Readable {
		r.closeSlot(ev.Fd, slot)
		return
	}

	wasReadable := slot.Status == conn.StatusReadable

	status, err := slot.HandleHTTP(ev.Readable)
	if err != nil || status == conn.StatusClose {
		r.closeSlot(ev.Fd, slot)
		return
	}

	if status == conn.StatusWritable && wasReadable {
		req := httpreq.Classify(slot.InBuffer[:slot.Read])
		r.dispatch(req)
		slot.OutBuffer = append(slot.OutBuffer, httpreq.ResponseFor(req.Kind)...)
		if err := r.poller.Reregister(ev.Fd, true); err != nil {
			r.log.Error("gateway: reregister for write failed", zap.Error(err))
			r.closeSlot(ev.Fd, slot)
			return
		}
	}

	if slot.Done() {
		r.closeSlot(ev.Fd, slot)
	}
}

// dispatch enqueues the frame corresponding to a classified request.
// Unknown and malformed requests never reach the dispatcher: only
// Summary and Payment produce IPC traffic.
func (r *Reactor) dispatch(req httpreq.Request) {
	r.metrics.ClassifiedRequests.WithLabelValues(kindLabel(req.Kind)).Inc()

	var msg frame.Message
	switch req.Kind {
	case httpreq.KindSummary:
		msg = frame.Summary(req.From, req.To)
	case httpreq.KindPayment:
		msg = frame.Payment(req.AmountCents, req.CorrelationID)
	default:
		return
	}
	r.dispatcher.Jobs() <- msg
}

func kindLabel(k httpreq.Kind) string {
	switch k {
	case httpreq.KindSummary:
		return "summary"
	case httpreq.KindPayment:
		return "payment"
	case httpreq.KindBadRequest:
		return "bad_request"
	default:
		return "not_found"
	}
}

func (r *Reactor) closeSlot(fd int, slot *conn.Connection) {
	_ = r.poller.Deregister(fd)
	_ = slot.Stream.Close()
	delete(r.fdToken, fd)
	slot.Reset()
	r.connCnt--
}
