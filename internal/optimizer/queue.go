// Package optimizer provides bounded-concurrency execution primitives:
// a priority-ordered operation queue, a key-based batch aggregator, a
// TTL result cache, and an auto-tuner that adjusts queue and batch
// parameters from observed utilization.
package optimizer

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when an operation does not settle within the
	// queue's timeout. The underlying work is abandoned, not cancelled.
	ErrTimeout = errors.New("operation timed out")

	// ErrQueueClosed is returned when submitting to a closed queue.
	ErrQueueClosed = errors.New("queue closed")
)

// Operation is a unit of asynchronous work.
type Operation func(ctx context.Context) (any, error)

// Result carries an operation's outcome to its submitter.
type Result struct {
	Value any
	Err   error
}

// QueueMetrics is a snapshot of queue counters for display and tuning.
type QueueMetrics struct {
	Running         int     `json:"running"`
	Queued          int     `json:"queued"`
	MaxConcurrency  int     `json:"max_concurrency"`
	Processed       int64   `json:"processed"`
	Failed          int64   `json:"failed"`
	AvgProcessingMs float64 `json:"avg_processing_ms"`
	Utilization     float64 `json:"utilization"`
}

type queuedOp struct {
	op       Operation
	priority int
	seq      int64
	result   chan Result
}

// opHeap orders by priority descending, then submission order ascending.
type opHeap []*queuedOp

func (h opHeap) Len() int { return len(h) }
func (h opHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h opHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *opHeap) Push(x any)   { *h = append(*h, x.(*queuedOp)) }
func (h *opHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// OperationQueue executes operations with bounded concurrency, highest
// priority first. Ties dequeue in submission order.
type OperationQueue struct {
	mu             sync.Mutex
	pending        opHeap
	running        int
	maxConcurrency int
	timeout        time.Duration
	closed         bool
	nextSeq        int64

	processed   int64
	failed      int64
	totalProcMs float64
}

// NewOperationQueue creates a queue. maxConcurrency and timeout fall back
// to 10 and 30s when non-positive.
func NewOperationQueue(maxConcurrency int, timeout time.Duration) *OperationQueue {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OperationQueue{
		maxConcurrency: maxConcurrency,
		timeout:        timeout,
	}
}

// Submit enqueues an operation and returns a channel that receives its
// result. Higher priority values dequeue first.
func (q *OperationQueue) Submit(priority int, op Operation) <-chan Result {
	ch := make(chan Result, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		ch <- Result{Err: ErrQueueClosed}
		return ch
	}
	q.nextSeq++
	heap.Push(&q.pending, &queuedOp{op: op, priority: priority, seq: q.nextSeq, result: ch})
	q.dispatchLocked()
	q.mu.Unlock()

	return ch
}

// SubmitWait enqueues an operation and blocks until it settles or the
// context is done.
func (q *OperationQueue) SubmitWait(ctx context.Context, priority int, op Operation) (any, error) {
	select {
	case res := <-q.Submit(priority, op):
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dispatchLocked starts queued operations while slots are free.
// Caller must hold q.mu.
func (q *OperationQueue) dispatchLocked() {
	for q.running < q.maxConcurrency && q.pending.Len() > 0 {
		item := heap.Pop(&q.pending).(*queuedOp)
		q.running++
		go q.run(item)
	}
}

// run executes one operation with the queue timeout. On timeout the slot
// is freed and the operation's goroutine is left to finish on its own.
func (q *OperationQueue) run(item *queuedOp) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		value, err := item.op(ctx)
		done <- Result{Value: value, Err: err}
	}()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Result{Err: ErrTimeout}
	}

	elapsed := time.Since(start)

	q.mu.Lock()
	q.running--
	q.processed++
	q.totalProcMs += float64(elapsed.Milliseconds())
	if res.Err != nil {
		q.failed++
	}
	q.dispatchLocked()
	q.mu.Unlock()

	item.result <- res
}

// SetMaxConcurrency changes the concurrency bound and starts queued work
// if the bound grew. Values below 1 are clamped to 1.
func (q *OperationQueue) SetMaxConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	q.maxConcurrency = n
	q.dispatchLocked()
	q.mu.Unlock()
}

// Metrics returns a snapshot of queue counters.
func (q *OperationQueue) Metrics() QueueMetrics {
	q.mu.Lock()
	defer q.mu.Unlock()

	m := QueueMetrics{
		Running:        q.running,
		Queued:         q.pending.Len(),
		MaxConcurrency: q.maxConcurrency,
		Processed:      q.processed,
		Failed:         q.failed,
	}
	if q.processed > 0 {
		m.AvgProcessingMs = q.totalProcMs / float64(q.processed)
	}
	if q.maxConcurrency > 0 {
		m.Utilization = float64(q.running) / float64(q.maxConcurrency)
	}
	return m
}

// Close rejects new submissions and fails everything still queued.
// Running operations finish on their own.
func (q *OperationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for q.pending.Len() > 0 {
		item := heap.Pop(&q.pending).(*queuedOp)
		item.result <- Result{Err: ErrQueueClosed}
	}
}
