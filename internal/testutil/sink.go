package testutil

import (
	"slices"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/notify"
)

// RecordingSink is a notify.Sink that keeps every event for later assertions.
// It is safe for concurrent use.
type RecordingSink struct {
	mu     sync.Mutex
	events []notify.Event

	// OnEvent, if set, is called after each event is recorded.
	OnEvent func(notify.Event)
}

// Progress records a progress event.
func (r *RecordingSink) Progress(percent float64) {
	r.record(notify.Event{Kind: notify.KindProgress, Percent: percent})
}

// Info records an info event.
func (r *RecordingSink) Info(message string) {
	r.record(notify.Event{Kind: notify.KindInfo, Message: message})
}

// Error records an error event.
func (r *RecordingSink) Error(message string) {
	r.record(notify.Event{Kind: notify.KindError, Message: message})
}

func (r *RecordingSink) record(e notify.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()

	if r.OnEvent != nil {
		r.OnEvent(e)
	}
}

// Events returns a copy of all events in emission order.
func (r *RecordingSink) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// ProgressValues returns progress percentages in emission order.
func (r *RecordingSink) ProgressValues() []float64 {
	var out []float64
	for _, e := range r.Events() {
		if e.Kind == notify.KindProgress {
			out = append(out, e.Percent)
		}
	}
	return out
}

// Infos returns info messages in emission order.
func (r *RecordingSink) Infos() []string {
	return r.messages(notify.KindInfo)
}

// Errors returns error messages in emission order.
func (r *RecordingSink) Errors() []string {
	return r.messages(notify.KindError)
}

// CountInfo returns how many info events carried exactly message.
func (r *RecordingSink) CountInfo(message string) int {
	n := 0
	for _, m := range r.Infos() {
		if m == message {
			n++
		}
	}
	return n
}

func (r *RecordingSink) messages(kind notify.Kind) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e.Message)
		}
	}
	return out
}
