package frontend

import "sync"

// Queue is the single-consumer work queue feeding the UI goroutine.
// Engine traffic is decoded on the transport's reader goroutine, but
// view state belongs to the UI goroutine; the handler bridges the two
// by posting closures here, and the UI loop runs them in post order.
//
// The queue grows instead of blocking the poster. The reader goroutine
// also completes synchronous requests, and the UI goroutine may be
// inside one while posted work backs up; a bounded queue would
// deadlock the pair.
type Queue struct {
	mu     sync.Mutex
	items  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post schedules fn on the consumer. Posts after Close are dropped.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Wake signals pending work. The channel carries at most one pending
// signal regardless of how many items queued up; receivers drain until
// empty rather than counting signals.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Drain removes and returns every pending item, in post order.
func (q *Queue) Drain() []func() {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// Len reports the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the queue. Pending items still drain; new posts are
// dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.done)
}

// Run consumes the queue until Close, then finishes the backlog and
// returns. The terminal front-end folds draining into its tcell event
// loop instead; Run serves headless consumers.
func (q *Queue) Run() {
	for {
		for _, fn := range q.Drain() {
			fn()
		}
		select {
		case <-q.wake:
		case <-q.done:
			for _, fn := range q.Drain() {
				fn()
			}
			return
		}
	}
}
