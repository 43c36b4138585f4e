package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestHubDeliversAndCloseFlushes(t *testing.T) {
	sink := &captureSink{}
	h := NewHub(Config{MaxWait: time.Hour}, sink)

	for i := 0; i < 5; i++ {
		h.Emit(Event{Stage: StageTaskDone, URL: "https://x/a"})
	}
	h.Close()

	got := sink.all()
	require.Len(t, got, 5)
	for _, evt := range got {
		assert.Equal(t, StageTaskDone, evt.Stage)
		assert.False(t, evt.TS.IsZero(), "hub stamps events missing a timestamp")
	}
	assert.Zero(t, h.Dropped())
}

func TestHubFansOutToAllSinks(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	h := NewHub(Config{}, a, b)

	h.Emit(Event{Stage: StageRecordEmitted})
	h.Close()

	assert.Len(t, a.all(), 1)
	assert.Len(t, b.all(), 1)
}

func TestHubEmitAfterCloseIsNoop(t *testing.T) {
	sink := &captureSink{}
	h := NewHub(Config{}, sink)
	h.Close()

	h.Emit(Event{Stage: StageTaskDone})
	assert.Empty(t, sink.all())
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	gate := make(chan struct{})
	blocking := sinkFunc(func(context.Context, []Event) error {
		<-gate
		return nil
	})
	h := NewHub(Config{BufferSize: 1, MaxBatch: 1, MaxWait: time.Hour}, blocking)

	// First event occupies the flusher, second fills the buffer; the rest must
	// be dropped rather than blocking the caller.
	for i := 0; i < 10; i++ {
		h.Emit(Event{Stage: StageTaskDone})
	}
	assert.Positive(t, h.Dropped())

	close(gate)
	h.Close()
}

func TestHubEmitRacingCloseDoesNotPanic(t *testing.T) {
	sink := &captureSink{}
	h := NewHub(Config{}, sink)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				h.Emit(Event{Stage: StageTaskDone})
			}
		}()
	}
	h.Close()
	wg.Wait()
}

func TestHubNilSafe(t *testing.T) {
	var h *Hub
	h.Emit(Event{Stage: StageTaskDone})
	h.Close()
}

type sinkFunc func(ctx context.Context, batch []Event) error

func (f sinkFunc) Consume(ctx context.Context, batch []Event) error { return f(ctx, batch) }
