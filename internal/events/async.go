package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultBuffer is the queue size used when NewAsyncSink is given zero.
const DefaultBuffer = 1024

var (
	// ErrBufferFull is returned when an event is dropped because the queue is full.
	ErrBufferFull = errors.New("event buffer full")
	// ErrSinkClosed is returned for events offered after Close.
	ErrSinkClosed = errors.New("event sink closed")
)

// AsyncSink hands events to next from a single background goroutine.
// CandidateObserved never blocks: when the queue is full the event is dropped.
type AsyncSink struct {
	next  Sink
	queue chan CandidateObserved
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncSink starts the delivery goroutine. Close stops it after the
// queued events are delivered.
func NewAsyncSink(next Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &AsyncSink{
		next:  next,
		queue: make(chan CandidateObserved, buffer),
		done:  make(chan struct{}),
	}
	go s.deliver()
	return s
}

func (s *AsyncSink) deliver() {
	defer close(s.done)
	for ev := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := s.next.CandidateObserved(ctx, ev); err != nil {
			slog.Warn("candidate event not delivered", "job_id", ev.JobID, "post_id", ev.PostID, "error", err)
		}
		cancel()
	}
}

func (s *AsyncSink) CandidateObserved(_ context.Context, ev CandidateObserved) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.queue <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close drains the queue, then closes next.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return s.next.Close()
}

var _ Sink = (*AsyncSink)(nil)
