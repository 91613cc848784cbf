package dispatch

import (
	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-reactor-2025/internal/frame"
	"github.com/lucas-de-lima/rinha-reactor-2025/internal/telemetry"
)

// Ten consecutive failed sends trigger one pool renewal; ten more
// after that and the dispatcher gives up entirely.
const (
	retriesBeforeRenew = 10
	retriesBeforeExit  = 10
)

// Dispatcher owns the channel the reactor enqueues frames onto and the
// single goroutine draining it against the Pool.
type Dispatcher struct {
	pool    *Pool
	queue   chan frame.Message
	log     *zap.Logger
	metrics *telemetry.Metrics
	done    chan struct{}
}

// NewDispatcher builds a Dispatcher with a buffered channel of the
// given capacity. The reactor sends onto Jobs(); capacity bounds how
// far the gateway can run ahead of a stalled dispatcher before its
// send blocks.
func NewDispatcher(pool *Pool, log *zap.Logger, metrics *telemetry.Metrics, capacity int) *Dispatcher {
	return &Dispatcher{
		pool:    pool,
		queue:   make(chan frame.Message, capacity),
		log:     log,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Jobs returns the channel the reactor enqueues frames onto.
func (d *Dispatcher) Jobs() chan<- frame.Message {
	return d.queue
}

// Done is closed once Run exits (whether from exhausted retries or a
// closed Jobs channel).
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Run is the dispatcher thread: it blocks on receive from Jobs,
// attempts a send through the pool, and on failure re-enqueues the
// message at the tail of the channel, incrementing a retry counter
// that resets on every successful send. It returns once Jobs is closed
// and drained, or once the retry budget is exhausted.
func (d *Dispatcher) Run() {
	defer close(d.done)

	retries := 0
	renewed := false

	for msg := range d.queue {
		switch d.pool.send(msg) {
		case sendFull:
			retries = 0
			renewed = false
			continue
		case sendPartial, sendError:
			d.metrics.DispatchRetries.Inc()
			retries++
			d.log.Warn("dispatch: send failed, re-queueing", zap.Int("retries", retries))

			select {
			case d.queue <- msg:
			default:
				// Re-enqueueing into a full channel from the only
				// goroutine draining it would deadlock; drop instead.
				d.log.Error("dispatch: queue full, frame dropped")
			}

			if retries == retriesBeforeRenew && !renewed {
				d.log.Warn("dispatch: retry threshold reached, renewing pool")
				d.pool.Renew()
				renewed = true
				retries = 0
			} else if retries >= retriesBeforeExit && renewed {
				d.log.Error("dispatch: exhausted retries after renew, dispatcher exiting")
				return
			}
		}
	}
}
