package optimizer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Processor handles one flushed batch. It returns either one result per
// item (positionally matched) or a single result shared by all items.
type Processor func(ctx context.Context, items []any) ([]any, error)

// BatchMetrics is a snapshot of aggregator counters.
type BatchMetrics struct {
	BatchesProcessed int64   `json:"batches_processed"`
	ItemsProcessed   int64   `json:"items_processed"`
	AvgBatchSize     float64 `json:"avg_batch_size"`
	AvgBatchMs       float64 `json:"avg_batch_ms"`
}

type pendingBatch struct {
	items     []any
	waiters   []chan Result
	processor Processor
	createdAt time.Time
	timer     *time.Timer
}

// BatchAggregator groups items submitted under a shared key into a single
// processor call. A batch flushes when it reaches maxBatchSize or when
// maxWaitTime elapses since its first item; a background sweep every
// flushInterval force-flushes anything older than the interval.
type BatchAggregator struct {
	mu            sync.Mutex
	batches       map[string]*pendingBatch
	maxBatchSize  int
	maxWaitTime   time.Duration
	flushInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once

	batchesProcessed int64
	itemsProcessed   int64
	totalBatchMs     float64
}

// NewBatchAggregator creates an aggregator and starts its sweep loop.
// Non-positive parameters fall back to size 10, wait 100ms, sweep 1s.
func NewBatchAggregator(maxBatchSize int, maxWaitTime, flushInterval time.Duration) *BatchAggregator {
	if maxBatchSize <= 0 {
		maxBatchSize = 10
	}
	if maxWaitTime <= 0 {
		maxWaitTime = 100 * time.Millisecond
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}

	b := &BatchAggregator{
		batches:       make(map[string]*pendingBatch),
		maxBatchSize:  maxBatchSize,
		maxWaitTime:   maxWaitTime,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
	go b.sweep()
	return b
}

// Add appends an item to the batch for key and returns a channel that
// receives the item's own result once the batch flushes.
func (b *BatchAggregator) Add(key string, item any, processor Processor) <-chan Result {
	ch := make(chan Result, 1)

	b.mu.Lock()
	batch, ok := b.batches[key]
	if !ok {
		batch = &pendingBatch{
			processor: processor,
			createdAt: time.Now(),
		}
		armed := batch
		armed.timer = time.AfterFunc(b.maxWaitTime, func() {
			b.flushBatch(key, armed)
		})
		b.batches[key] = batch
	}
	batch.items = append(batch.items, item)
	batch.waiters = append(batch.waiters, ch)

	var full *pendingBatch
	if len(batch.items) >= b.maxBatchSize {
		full = b.takeLocked(key)
	}
	b.mu.Unlock()

	if full != nil {
		go b.process(full)
	}
	return ch
}

// takeLocked removes a batch from the map and stops its wait timer.
// Caller must hold b.mu.
func (b *BatchAggregator) takeLocked(key string) *pendingBatch {
	batch, ok := b.batches[key]
	if !ok {
		return nil
	}
	delete(b.batches, key)
	batch.timer.Stop()
	return batch
}

// flushBatch flushes the batch pending under key, but only if it is still
// the batch the wait timer was armed for. A timer firing after a
// flush-by-size must not take the successor batch accumulating under the
// same key.
func (b *BatchAggregator) flushBatch(key string, armed *pendingBatch) {
	b.mu.Lock()
	if b.batches[key] != armed {
		b.mu.Unlock()
		return
	}
	batch := b.takeLocked(key)
	b.mu.Unlock()

	if batch != nil {
		b.process(batch)
	}
}

// process runs the processor once for a flushed batch and fans results out
// to each waiter. Failures reach every waiter of this batch and nobody else.
func (b *BatchAggregator) process(batch *pendingBatch) {
	start := time.Now()
	results, err := batch.processor(context.Background(), batch.items)
	elapsed := time.Since(start)

	b.mu.Lock()
	b.batchesProcessed++
	b.itemsProcessed += int64(len(batch.items))
	b.totalBatchMs += float64(elapsed.Milliseconds())
	b.mu.Unlock()

	if err != nil {
		for _, w := range batch.waiters {
			w <- Result{Err: err}
		}
		return
	}

	switch {
	case len(results) == len(batch.items):
		for i, w := range batch.waiters {
			w <- Result{Value: results[i]}
		}
	case len(results) == 1:
		for _, w := range batch.waiters {
			w <- Result{Value: results[0]}
		}
	default:
		err := fmt.Errorf("processor returned %d results for %d items", len(results), len(batch.items))
		for _, w := range batch.waiters {
			w <- Result{Err: err}
		}
	}
}

// sweep force-flushes batches that have been sitting longer than the
// flush interval.
func (b *BatchAggregator) sweep() {
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.mu.Lock()
			var stale []*pendingBatch
			for key, batch := range b.batches {
				if time.Since(batch.createdAt) >= b.flushInterval {
					stale = append(stale, b.takeLocked(key))
				}
			}
			b.mu.Unlock()

			for _, batch := range stale {
				b.process(batch)
			}
		}
	}
}

// SetMaxBatchSize changes the flush-by-size threshold. Values below 1 are
// clamped to 1.
func (b *BatchAggregator) SetMaxBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	b.maxBatchSize = n
	b.mu.Unlock()
}

// MaxBatchSize returns the current flush-by-size threshold.
func (b *BatchAggregator) MaxBatchSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxBatchSize
}

// Metrics returns a snapshot of aggregator counters.
func (b *BatchAggregator) Metrics() BatchMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := BatchMetrics{
		BatchesProcessed: b.batchesProcessed,
		ItemsProcessed:   b.itemsProcessed,
	}
	if b.batchesProcessed > 0 {
		m.AvgBatchSize = float64(b.itemsProcessed) / float64(b.batchesProcessed)
		m.AvgBatchMs = b.totalBatchMs / float64(b.batchesProcessed)
	}
	return m
}

// Stop halts the sweep loop and flushes everything still pending.
func (b *BatchAggregator) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})

	b.mu.Lock()
	var remaining []*pendingBatch
	for key := range b.batches {
		remaining = append(remaining, b.takeLocked(key))
	}
	b.mu.Unlock()

	for _, batch := range remaining {
		b.process(batch)
	}
}
