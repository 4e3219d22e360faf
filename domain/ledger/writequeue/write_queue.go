package writequeue

import (
	"sync"
)

// Writer identifies one of the subsystems that mutate the ledger. All
// ledger writes are serialized through a single WriteQueue shared by these
// writers.
type Writer int

// Writer constants.
const (
	WriterCementing Writer = iota
	WriterBlockProcessing
	WriterPruning
	WriterTesting
)

func (w Writer) String() string {
	switch w {
	case WriterCementing:
		return "cementing"
	case WriterBlockProcessing:
		return "block processing"
	case WriterPruning:
		return "pruning"
	case WriterTesting:
		return "testing"
	default:
		return "unknown"
	}
}

// slot is one queued acquisition. Slots have pointer identity so that two
// concurrent waiters with the same writer identity stay distinct.
type slot struct {
	writer Writer
}

// WriteQueue arbitrates exclusive write access to the ledger between
// writers. Writers enter a FIFO queue; the writer at the front holds the
// ledger until its guard is released.
type WriteQueue struct {
	mtx   sync.Mutex
	cond  *sync.Cond
	queue []*slot
}

// New instantiates a new WriteQueue.
func New() *WriteQueue {
	q := &WriteQueue{}
	q.cond = sync.NewCond(&q.mtx)
	return q
}

// Guard represents held write access. Release gives the access up and
// wakes the next writer in line. Release is idempotent.
type Guard struct {
	queue    *WriteQueue
	released bool
}

// Release gives up the write access held by this guard.
func (g *Guard) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.queue.pop()
}

// TryAcquire attempts to take write access without waiting. It succeeds
// only when no other writer is queued.
func (q *WriteQueue) TryAcquire(writer Writer) (*Guard, bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if len(q.queue) != 0 {
		return nil, false
	}
	q.queue = append(q.queue, &slot{writer: writer})
	return &Guard{queue: q}, true
}

// Wait enqueues the writer and blocks until it reaches the front of the
// queue, then returns a guard holding the write access.
func (q *WriteQueue) Wait(writer Writer) *Guard {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	s := &slot{writer: writer}
	q.queue = append(q.queue, s)
	for q.queue[0] != s {
		q.cond.Wait()
	}
	return &Guard{queue: q}
}

// Contains returns whether the given writer is currently queued or holds
// the write access.
func (q *WriteQueue) Contains(writer Writer) bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	for _, queued := range q.queue {
		if queued.writer == writer {
			return true
		}
	}
	return false
}

func (q *WriteQueue) pop() {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	q.queue = q.queue[1:]
	q.cond.Broadcast()
}
