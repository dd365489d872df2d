package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/assignhub/marketplace/internal/api/metrics"
	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

const (
	defaultWorkers  = 4
	channelBuffer   = 256
	deliveryTimeout = 10 * time.Second
)

// Dispatcher delivers lifecycle notifications off the request path. Events
// are routed to a fixed set of workers by hashing the assignment id, so the
// notifications of one assignment go out in commit order.
type Dispatcher struct {
	workers  []chan domain.LifecycleEvent
	notifier ports.Notifier
	dedup    ports.DedupChecker
	log      zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. dedup may be nil.
func NewDispatcher(numWorkers int, notifier ports.Notifier, dedup ports.DedupChecker, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.LifecycleEvent, numWorkers),
		notifier: notifier,
		dedup:    dedup,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LifecycleEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// or after Close has drained their channel.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish enqueues events without blocking. When a worker's buffer is full
// the event is dropped and counted; notifications are best-effort.
func (d *Dispatcher) Publish(events ...domain.LifecycleEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	for _, e := range events {
		idx := d.shardIndex(e.ShardKey())
		select {
		case d.workers[idx] <- e:
			metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		default:
			metrics.NotificationsTotal.WithLabelValues(target(e), "dropped").Inc()
			d.log.Warn().
				Str("assignment_id", e.AssignmentID).
				Str("kind", string(e.Kind)).
				Int("worker_id", idx).
				Msg("notification queue full, event dropped")
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LifecycleEvent) {
	defer d.wg.Done()
	depth := metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			d.deliver(ctx, id, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, e domain.LifecycleEvent) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	tgt := target(e)
	dedupKind := string(e.Kind) + ":" + e.Recipient
	if d.dedup != nil {
		dup, err := d.dedup.IsDuplicate(ctx, e.AssignmentID, dedupKind, e.OccurredAt)
		if err != nil {
			d.log.Warn().Err(err).Str("assignment_id", e.AssignmentID).Msg("dedup check failed, delivering anyway")
		} else if dup {
			metrics.NotificationsTotal.WithLabelValues(tgt, "duplicate").Inc()
			return
		}
	}

	var err error
	if e.IsDirect() {
		err = d.notifier.DirectMessage(ctx, e.Recipient, e.Message)
	} else {
		err = d.notifier.Notify(ctx, e.ChannelID, e.Message)
	}
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(tgt, "failed").Inc()
		d.log.Error().Err(err).
			Str("assignment_id", e.AssignmentID).
			Str("kind", string(e.Kind)).
			Int("worker_id", workerID).
			Msg("notification delivery failed")
		return
	}

	metrics.NotificationsTotal.WithLabelValues(tgt, "sent").Inc()
	if d.dedup != nil {
		if err := d.dedup.Mark(ctx, e.AssignmentID, dedupKind, e.OccurredAt); err != nil {
			d.log.Warn().Err(err).Str("assignment_id", e.AssignmentID).Msg("failed to set dedup key")
		}
	}
}

func target(e domain.LifecycleEvent) string {
	if e.IsDirect() {
		return "direct"
	}
	return "channel"
}
