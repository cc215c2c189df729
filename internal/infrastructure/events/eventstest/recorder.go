// Package eventstest provides an in-memory events.Publisher for tests.
package eventstest

import (
	"context"
	"sync"
	"time"

	"estate-backend/internal/infrastructure/events"
)

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (r *Recorder) Publish(ctx context.Context, subject string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events.Envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: payload})
	return nil
}

// Subjects returns the subjects recorded so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Subject)
	}
	return out
}

// Envelopes returns a copy of everything recorded.
func (r *Recorder) Envelopes() []events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Envelope(nil), r.events...)
}
