// Package notify carries run notifications from the upload pipeline to its caller.
//
// Three event kinds exist: progress percentages, informational messages and
// error messages. Emission is fire-and-forget; a Sink must tolerate concurrent
// calls from the scanning workers and from many upload goroutines at once and
// must never block the caller for longer than it takes to record the event.
package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Kind identifies the shape of an Event.
type Kind int

// Event kinds.
const (
	KindProgress Kind = iota
	KindInfo
	KindError
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindInfo:
		return "info"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a single immutable notification.
type Event struct {
	Kind Kind

	// Percent is set for KindProgress and lies in (0, 100]
	Percent float64

	// Message is set for KindInfo and KindError
	Message string
}

// String renders the event for display.
func (e Event) String() string {
	if e.Kind == KindProgress {
		return fmt.Sprintf("progress: %.2f%%", e.Percent)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Sink receives run notifications.
type Sink interface {
	Progress(percent float64)
	Info(message string)
	Error(message string)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Progress(float64) {}
func (discard) Info(string)      {}
func (discard) Error(string)     {}

// Tee returns a Sink that forwards each event to all of sinks in order.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Progress(percent float64) {
	for _, s := range t {
		s.Progress(percent)
	}
}

func (t tee) Info(message string) {
	for _, s := range t {
		s.Info(message)
	}
}

func (t tee) Error(message string) {
	for _, s := range t {
		s.Error(message)
	}
}

// LogSink writes notifications to a structured logger.
// Progress is logged at debug level, info and error at their own levels.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Progress implements Sink.
func (s *LogSink) Progress(percent float64) {
	s.logger.Log(context.Background(), slog.LevelDebug, "upload progress", "percent", percent)
}

// Info implements Sink.
func (s *LogSink) Info(message string) {
	s.logger.Info(message)
}

// Error implements Sink.
func (s *LogSink) Error(message string) {
	s.logger.Error(message)
}

// Messages shared by every stage of a run.
const (
	// MsgCancelled is emitted when a run observes a cancellation request.
	MsgCancelled = "upload cancelled by user"

	// MsgNoFiles is emitted when the source directory has no regular files.
	MsgNoFiles = "no files to upload"

	// MsgAllUploaded closes a run in which every file was stored.
	MsgAllUploaded = "all files uploaded successfully"
)
