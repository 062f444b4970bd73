package events

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/events"
)

// Recorder keeps published events in memory. Err, when set, is returned from every
// Publish after the event is recorded.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(ctx context.Context, e events.Event) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}
