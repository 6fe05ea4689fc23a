package async

import "sync"

// Queue is a delivery context: an execution context onto which callbacks are
// submitted to run asynchronously with respect to the submitter. Submit must
// not block on the execution of |fn|.
type Queue interface {
	Submit(fn func())
}

// QueueFunc adapts an ordinary function to the Queue interface. Eg, a
// QueueFunc which starts a goroutine per callback:
//
//	var q = async.QueueFunc(func(fn func()) { go fn() })
//
// Note such a Queue does not preserve submission order.
type QueueFunc func(fn func())

// Submit invokes QueueFunc with |fn|.
func (f QueueFunc) Submit(fn func()) { f(fn) }

// SerialQueue runs submitted functions one at a time, in submission order,
// on a dedicated goroutine. Submit never blocks: pending functions are buffered
// without bound.
type SerialQueue struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{} // Signaled (non-blocking) as |pending| grows.
	done    Promise       // Resolved when the serving goroutine exits.
}

// NewSerialQueue returns a running SerialQueue.
func NewSerialQueue() *SerialQueue {
	var q = &SerialQueue{
		wake: make(chan struct{}, 1),
		done: make(Promise),
	}
	go q.serve()
	return q
}

// Submit |fn| for execution after all previously submitted functions.
// Functions submitted after Close are dropped.
func (q *SerialQueue) Submit(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default: // Already signaled.
	}
}

// Sync blocks until all functions submitted prior to Sync have run.
// Sync must not be called from within a function running on the SerialQueue.
func (q *SerialQueue) Sync() {
	var p = make(Promise)
	q.Submit(p.Resolve)

	select {
	case <-p:
	case <-q.done:
	}
}

// Close the SerialQueue. Already-submitted functions are run before the
// serving goroutine exits, and Close blocks until it has.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	q.done.Wait()
}

func (q *SerialQueue) serve() {
	defer q.done.Resolve()

	for range q.wake {
		q.mu.Lock()
		var batch, closed = q.pending, q.closed
		q.pending = nil
		q.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		if closed {
			return
		}
	}
}
