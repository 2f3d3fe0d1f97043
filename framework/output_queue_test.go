package framework

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeChunk(seq int) []byte {
	return []byte(fmt.Sprintf("suite-%d", seq))
}

func acceptChunks(q *OutputSortingQueue, seqs ...int) {
	for _, s := range seqs {
		q.Accept(s, fakeChunk(s))
	}
}

func expectChunks(t *testing.T, q *OutputSortingQueue, seqs ...int) {
	for _, s := range seqs {
		select {
		case chunk := <-q.C:
			assert.Equal(t, string(fakeChunk(s)), string(chunk))
		case <-time.After(time.Second):
			var pending []string
			for _, p := range q.Pending() {
				pending = append(pending, string(p))
			}
			require.Fail(t, "timed out waiting for chunk from queue",
				"was waiting for chunk %d; pending chunks were [%s]", s, strings.Join(pending, ","))
		}
	}
}

func expectPending(t *testing.T, q *OutputSortingQueue, seqs ...int) {
	expected := []string{}
	for _, s := range seqs {
		expected = append(expected, string(fakeChunk(s)))
	}
	actual := []string{}
	for _, p := range q.Pending() {
		actual = append(actual, string(p))
	}
	assert.Equal(t, expected, actual, "did not see expected chunks held back")
}

func expectNoChunk(t *testing.T, q *OutputSortingQueue) {
	select {
	case chunk := <-q.C:
		assert.Fail(t, "unexpected chunk released", string(chunk))
	default:
	}
}

func TestOutputSortingQueueInOrder(t *testing.T) {
	q := NewOutputSortingQueue(10)
	acceptChunks(q, 1, 2, 3, 4, 5)
	expectPending(t, q)
	expectChunks(t, q, 1, 2, 3, 4, 5)
}

func TestOutputSortingQueueOutOfOrder(t *testing.T) {
	q := NewOutputSortingQueue(10)

	acceptChunks(q, 3)
	expectPending(t, q, 3)
	expectNoChunk(t, q)

	acceptChunks(q, 2)
	expectPending(t, q, 2, 3)

	acceptChunks(q, 6)
	expectPending(t, q, 2, 3, 6)

	acceptChunks(q, 1)
	expectChunks(t, q, 1, 2, 3)
	expectPending(t, q, 6)

	acceptChunks(q, 5, 4)
	expectChunks(t, q, 4, 5, 6)
	expectPending(t, q)
}

func TestOutputSortingQueueCloseIsIdempotent(t *testing.T) {
	q := NewOutputSortingQueue(1)
	q.Close()
	q.Close()
	_, ok := <-q.C
	assert.False(t, ok)
}
