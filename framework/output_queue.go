package framework

import (
	"sort"
	"sync"
)

// OutputSortingQueue releases chunks of output in sequence order even if they are
// produced out of order, as happens when test suites run in parallel but their console
// output must read as if they had run one after another. Sequence numbers start at 1.
type OutputSortingQueue struct {
	C         chan []byte
	next      int
	pending   map[int][]byte
	lock      sync.Mutex
	closeOnce sync.Once
}

func NewOutputSortingQueue(channelSize int) *OutputSortingQueue {
	return &OutputSortingQueue{
		C:       make(chan []byte, channelSize),
		next:    1,
		pending: make(map[int][]byte),
	}
}

// Accept adds a chunk with the given sequence number. If it is the next one expected,
// it is released along with any held-back chunks that directly follow it.
func (q *OutputSortingQueue) Accept(seq int, chunk []byte) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if seq != q.next {
		q.pending[seq] = chunk
		return
	}
	q.C <- chunk
	q.next++
	for {
		c, ok := q.pending[q.next]
		if !ok {
			break
		}
		delete(q.pending, q.next)
		q.C <- c
		q.next++
	}
}

// Pending returns the chunks that are being held back, in sequence order.
func (q *OutputSortingQueue) Pending() [][]byte {
	q.lock.Lock()
	defer q.lock.Unlock()
	seqs := make([]int, 0, len(q.pending))
	for s := range q.pending {
		seqs = append(seqs, s)
	}
	sort.Ints(seqs)
	ret := make([][]byte, 0, len(seqs))
	for _, s := range seqs {
		ret = append(ret, q.pending[s])
	}
	return ret
}

func (q *OutputSortingQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.C)
	})
}
