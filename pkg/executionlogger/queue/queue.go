// Package queue implements the bounded FIFO of execution records the
// pipeline drains in batches.
package queue

import (
	"container/list"
	"errors"
	"sync"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/record"
)

// ErrInvalidMaxSize is returned by New when maxSize is not positive.
var ErrInvalidMaxSize = errors.New("queue: maxSize must be greater than zero")

// Queue is a bounded FIFO of record.ExecutionRecord. All methods are
// safe for concurrent use; ingest and flush goroutines share one Queue.
type Queue struct {
	mu      sync.Mutex
	items   *list.List
	maxSize int
}

// New creates a Queue with the given capacity. maxSize must be positive.
func New(maxSize int) (*Queue, error) {
	if maxSize <= 0 {
		return nil, ErrInvalidMaxSize
	}
	return &Queue{items: list.New(), maxSize: maxSize}, nil
}

// Enqueue appends rec to the tail. If the queue was already at capacity,
// the head element is evicted first to make room, and Enqueue returns
// the evicted record alongside ok=false. When no eviction was needed,
// Enqueue returns ok=true and a zero record.
//
// The newly admitted record always stays in the queue; the displaced
// head is what the caller must fallback-log. A queue of capacity 5 fed
// 20 records ends up holding the 5 *newest* ones.
func (q *Queue) Enqueue(rec record.ExecutionRecord) (evicted record.ExecutionRecord, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == q.maxSize {
		front := q.items.Front()
		evicted = front.Value.(record.ExecutionRecord)
		q.items.Remove(front)
		q.items.PushBack(rec)
		return evicted, false
	}

	q.items.PushBack(rec)
	return record.ExecutionRecord{}, true
}

// Dequeue removes and returns the head record, if any.
func (q *Queue) Dequeue() (record.ExecutionRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.items.Front()
	if front == nil {
		return record.ExecutionRecord{}, false
	}
	q.items.Remove(front)
	return front.Value.(record.ExecutionRecord), true
}

// DequeueBatch removes and returns up to n head records, in order. A
// non-positive n yields an empty, non-nil slice.
func (q *Queue) DequeueBatch(n int) []record.ExecutionRecord {
	if n <= 0 {
		return []record.ExecutionRecord{}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	batch := make([]record.ExecutionRecord, 0, n)
	for len(batch) < n {
		front := q.items.Front()
		if front == nil {
			break
		}
		q.items.Remove(front)
		batch = append(batch, front.Value.(record.ExecutionRecord))
	}
	return batch
}

// Size returns the current number of queued records.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// IsEmpty reports whether the queue currently holds no records.
func (q *Queue) IsEmpty() bool {
	return q.Size() == 0
}

// IsFull reports whether the queue is at capacity.
func (q *Queue) IsFull() bool {
	return q.Size() == q.maxSize
}

// Clear removes all queued records.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.Init()
}

// GetMaxSize returns the configured capacity.
func (q *Queue) GetMaxSize() int {
	return q.maxSize
}
