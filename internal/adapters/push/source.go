// Package push is a SampleSource fed by readings posted to the HTTP API.
package push

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// ErrNotListening is returned by Push while no tracker is subscribed.
var ErrNotListening = errors.New("no active subscription")

// Source hands pushed readings to the single current subscriber.
type Source struct {
	buffer int

	mu   sync.Mutex
	out  chan domain.Reading
	done <-chan struct{}
}

// NewSource creates a source whose subscription channel holds buffer readings.
func NewSource(buffer int) *Source {
	if buffer <= 0 {
		buffer = 64
	}
	return &Source{buffer: buffer}
}

// Subscribe replaces any previous subscription. The channel is closed once
// ctx is cancelled.
func (s *Source) Subscribe(ctx context.Context, _ domain.SourceOptions) (<-chan domain.Reading, error) {
	out := make(chan domain.Reading, s.buffer)

	s.mu.Lock()
	if s.out != nil {
		close(s.out)
	}
	s.out = out
	s.done = ctx.Done()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.out == out {
			close(out)
			s.out = nil
			s.done = nil
		}
		s.mu.Unlock()
	}()

	return out, nil
}

// Listening reports whether a subscriber is attached.
func (s *Source) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out != nil
}

// Push delivers readings in order. It blocks while the buffer is full and
// gives up when ctx or the subscription ends.
func (s *Source) Push(ctx context.Context, readings ...domain.Reading) error {
	for _, r := range readings {
		if err := s.push(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) push(ctx context.Context, r domain.Reading) error {
	// The lock is held across the send so the channel cannot be closed under
	// it; the subscription's done channel unblocks a stalled send.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return ErrNotListening
	}
	select {
	case s.out <- r:
		return nil
	case <-s.done:
		return ErrNotListening
	case <-ctx.Done():
		return ctx.Err()
	}
}
