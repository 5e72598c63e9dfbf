package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/factory/pkg/eventstream"
)

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	// Err is returned from PublishRun when set.
	Err error

	mu     sync.Mutex
	events []eventstream.RunEvent
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (r *RecordingPublisher) PublishRun(_ context.Context, event *eventstream.RunEvent) error {
	if event == nil {
		return eventstream.ErrNilRunEvent
	}
	if r.Err != nil {
		return r.Err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

// Events returns a copy of the published events.
func (r *RecordingPublisher) Events() []eventstream.RunEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]eventstream.RunEvent(nil), r.events...)
}

func (r *RecordingPublisher) Close() error {
	return nil
}
