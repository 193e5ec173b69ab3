package optimizer

import (
	"log"
	"sync"
	"time"
)

// Config holds tunable parameters for an Optimizer. Zero values fall back
// to the defaults noted per field.
type Config struct {
	MaxConcurrency     int           // initial queue concurrency (10)
	ConcurrencyFloor   int           // auto-tune lower bound (2)
	ConcurrencyCeiling int           // auto-tune upper bound (50)
	ConcurrencyStep    int           // auto-tune adjustment step (2)
	OperationTimeout   time.Duration // per-operation timeout (30s)
	MaxBatchSize       int           // batch flush-by-size threshold (10)
	MaxWaitTime        time.Duration // batch flush-by-age threshold (100ms)
	FlushInterval      time.Duration // batch sweep interval (1s)
	CacheThreshold     int           // cache prune threshold (1000)
	TuneInterval       time.Duration // auto-tune sampling interval (10s)
	DisableAutoTune    bool          // leave concurrency and batch size fixed
	CacheTTLs          map[string]time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 10
	}
	if c.ConcurrencyFloor <= 0 {
		c.ConcurrencyFloor = 2
	}
	if c.ConcurrencyCeiling <= 0 {
		c.ConcurrencyCeiling = 50
	}
	if c.ConcurrencyStep <= 0 {
		c.ConcurrencyStep = 2
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 30 * time.Second
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 10
	}
	if c.MaxWaitTime <= 0 {
		c.MaxWaitTime = 100 * time.Millisecond
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	if c.CacheThreshold <= 0 {
		c.CacheThreshold = 1000
	}
	if c.TuneInterval <= 0 {
		c.TuneInterval = 10 * time.Second
	}
}

// Adjustment describes one auto-tuning change.
type Adjustment struct {
	Parameter string    `json:"parameter"`
	OldValue  int       `json:"old_value"`
	NewValue  int       `json:"new_value"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// Metrics bundles the snapshots of all optimizer components.
type Metrics struct {
	Queue QueueMetrics `json:"queue"`
	Batch BatchMetrics `json:"batch"`
	Cache CacheMetrics `json:"cache"`
}

// Optimizer composes the operation queue, batch aggregator, and result
// cache, and periodically retunes their parameters from observed load.
type Optimizer struct {
	queue   *OperationQueue
	batcher *BatchAggregator
	cache   *ResultCache
	cfg     Config

	mu             sync.Mutex
	maxConcurrency int

	adjustments chan Adjustment
	dropped     int64
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// New creates an optimizer and, unless auto-tuning is disabled, starts
// its tuning loop.
func New(cfg Config) *Optimizer {
	cfg.applyDefaults()

	o := &Optimizer{
		queue:          NewOperationQueue(cfg.MaxConcurrency, cfg.OperationTimeout),
		batcher:        NewBatchAggregator(cfg.MaxBatchSize, cfg.MaxWaitTime, cfg.FlushInterval),
		cache:          NewResultCache(cfg.CacheThreshold),
		cfg:            cfg,
		maxConcurrency: cfg.MaxConcurrency,
		adjustments:    make(chan Adjustment, 64),
		stopCh:         make(chan struct{}),
	}
	if !cfg.DisableAutoTune {
		go o.tuneLoop()
	}
	return o
}

// Submit enqueues an operation on the priority queue.
func (o *Optimizer) Submit(priority int, op Operation) <-chan Result {
	return o.queue.Submit(priority, op)
}

// SubmitWithRetry enqueues an operation wrapped in the retry policy.
func (o *Optimizer) SubmitWithRetry(priority int, op Operation, policy RetryPolicy) <-chan Result {
	return o.queue.Submit(priority, policy.Wrap(op))
}

// AddToBatch appends an item to the batch for key.
func (o *Optimizer) AddToBatch(key string, item any, processor Processor) <-chan Result {
	return o.batcher.Add(key, item, processor)
}

// Cached runs compute through the result cache using the TTL configured
// for the given operation kind. Kinds without a configured TTL get 30s.
func (o *Optimizer) Cached(kind, key string, compute func() (any, error)) (any, error) {
	ttl, ok := o.cfg.CacheTTLs[kind]
	if !ok {
		ttl = 30 * time.Second
	}
	return o.cache.GetOrCompute(kind+":"+key, ttl, compute)
}

// Adjustments exposes the auto-tuning event stream. Events are dropped,
// with accounting, when the receiver falls behind.
func (o *Optimizer) Adjustments() <-chan Adjustment {
	return o.adjustments
}

// Metrics returns a combined snapshot of all component counters.
func (o *Optimizer) Metrics() Metrics {
	return Metrics{
		Queue: o.queue.Metrics(),
		Batch: o.batcher.Metrics(),
		Cache: o.cache.Metrics(),
	}
}

// tuneLoop samples utilization on a fixed interval and adjusts parameters.
func (o *Optimizer) tuneLoop() {
	ticker := time.NewTicker(o.cfg.TuneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.Tune()
		}
	}
}

// Tune performs one tuning pass. It is called on the interval by the tune
// loop and exported so a sampling pass can be driven directly.
func (o *Optimizer) Tune() {
	qm := o.queue.Metrics()

	o.mu.Lock()
	current := o.maxConcurrency
	var next int
	var reason string
	switch {
	case qm.Utilization > 0.9 && current < o.cfg.ConcurrencyCeiling:
		next = current + o.cfg.ConcurrencyStep
		if next > o.cfg.ConcurrencyCeiling {
			next = o.cfg.ConcurrencyCeiling
		}
		reason = "high utilization"
	case qm.Utilization < 0.3 && current > o.cfg.ConcurrencyFloor:
		next = current - o.cfg.ConcurrencyStep
		if next < o.cfg.ConcurrencyFloor {
			next = o.cfg.ConcurrencyFloor
		}
		reason = "low utilization"
	}
	if next != 0 && next != current {
		o.maxConcurrency = next
	}
	o.mu.Unlock()

	if next != 0 && next != current {
		o.queue.SetMaxConcurrency(next)
		o.emit(Adjustment{
			Parameter: "max_concurrency",
			OldValue:  current,
			NewValue:  next,
			Reason:    reason,
			At:        time.Now(),
		})
	}

	bm := o.batcher.Metrics()
	if bm.AvgBatchSize > 30 && bm.AvgBatchMs > 5000 {
		old := o.batcher.MaxBatchSize()
		shrunk := old / 2
		if shrunk < 1 {
			shrunk = 1
		}
		if shrunk != old {
			o.batcher.SetMaxBatchSize(shrunk)
			o.emit(Adjustment{
				Parameter: "max_batch_size",
				OldValue:  old,
				NewValue:  shrunk,
				Reason:    "large slow batches",
				At:        time.Now(),
			})
		}
	}
}

func (o *Optimizer) emit(adj Adjustment) {
	log.Printf("[optimizer] %s: %d -> %d (%s)", adj.Parameter, adj.OldValue, adj.NewValue, adj.Reason)
	select {
	case o.adjustments <- adj:
	default:
		o.mu.Lock()
		o.dropped++
		o.mu.Unlock()
	}
}

// Stop halts tuning, closes the queue, and flushes pending batches.
func (o *Optimizer) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
	})
	o.queue.Close()
	o.batcher.Stop()
}
