// Package cancel provides a cooperative cancellation flag shared by the
// stages of an upload run.
package cancel

import "sync/atomic"

// Token is a thread-safe cancellation flag.
// A Token must be shared by pointer; the zero value is ready to use and not cancelled.
type Token struct {
	cancelled atomic.Bool
}

// New returns a Token that has not been cancelled.
func New() *Token {
	return &Token{}
}

// Cancel requests cancellation. It is safe to call more than once.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
}

// IsCancelled reports whether cancellation has been requested.
// It never blocks.
func (t *Token) IsCancelled() bool {
	return t.cancelled.Load()
}

// Reset clears the flag so the token can be reused for another run.
func (t *Token) Reset() {
	t.cancelled.Store(false)
}
