package progress

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBufferSize  = 1024
	defaultMaxBatch    = 64
	defaultMaxWait     = 500 * time.Millisecond
	defaultSinkTimeout = 5 * time.Second
)

// Config controls buffering and batching for the Hub. Zero values pick sane
// defaults.
type Config struct {
	BufferSize  int
	MaxBatch    int
	MaxWait     time.Duration
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

// Hub aggregates events and fans them out to registered sinks from a single
// background goroutine. Emit never blocks the crawl loop; when the buffer is
// full the event is dropped and counted.
type Hub struct {
	cfg     Config
	sinks   []Sink
	events  chan Event
	stop    chan struct{}
	done    chan struct{}
	dropped atomic.Int64
	closed  atomic.Bool
	logger  *zap.Logger
}

// NewHub starts a hub delivering to the supplied sinks.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		events: make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	go h.run()
	return h
}

// Emit enqueues an event without blocking. Events emitted after Close are
// dropped.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if evt.TS.IsZero() {
		evt.TS = time.Now().UTC()
	}
	select {
	case h.events <- evt:
	default:
		h.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close flushes buffered events and stops the background goroutine. The event
// channel is never closed; a racing Emit at worst enqueues an event the
// drained shutdown has already passed, it can never panic on a closed channel.
func (h *Hub) Close() {
	if h == nil || !h.closed.CompareAndSwap(false, true) {
		return
	}
	close(h.stop)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	batch := make([]Event, 0, h.cfg.MaxBatch)
	ticker := time.NewTicker(h.cfg.MaxWait)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		for _, sink := range h.sinks {
			if err := sink.Consume(ctx, batch); err != nil {
				h.logger.Warn("progress sink flush failed", zap.Error(err))
			}
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-h.stop:
			// Drain whatever was buffered before the stop, then flush.
			for {
				select {
				case evt := <-h.events:
					batch = append(batch, evt)
					if len(batch) >= h.cfg.MaxBatch {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
