package notify

import "sync"

// Queue is a Sink backed by an unbounded mailbox.
//
// Producers append events without ever waiting on the consumer; a single pump
// goroutine forwards them, in emission order, to the channel returned by Events.
// Events emitted after Close are dropped.
type Queue struct {
	mu      sync.Mutex
	pending []Event
	closed  bool

	wake chan struct{}
	out  chan Event
}

// NewQueue creates a Queue and starts its pump.
// The consumer must drain Events until it is closed.
func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		out:  make(chan Event),
	}
	go q.pump()
	return q
}

// Events returns the channel on which events are delivered.
// The channel is closed after Close once every pending event has been delivered.
func (q *Queue) Events() <-chan Event {
	return q.out
}

// Progress implements Sink.
func (q *Queue) Progress(percent float64) {
	q.emit(Event{Kind: KindProgress, Percent: percent})
}

// Info implements Sink.
func (q *Queue) Info(message string) {
	q.emit(Event{Kind: KindInfo, Message: message})
}

// Error implements Sink.
func (q *Queue) Error(message string) {
	q.emit(Event{Kind: KindError, Message: message})
}

// Close stops accepting events. Pending events are still delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) emit(e Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, e)
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) pump() {
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, e := range batch {
			q.out <- e
		}

		if len(batch) == 0 {
			if closed {
				close(q.out)
				return
			}
			<-q.wake
		}
	}
}
