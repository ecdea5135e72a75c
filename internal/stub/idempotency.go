package stub

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/xenking/larek/internal/domain/order"
)

// Replays remembers the answer given to each Idempotency-Key. Lookups for
// keys never seen are answered by the bloom filter without touching the map.
type Replays struct {
	mu       sync.Mutex
	filter   *bloom.BloomFilter
	results  map[string]order.Result
	screened uint64
}

// NewReplays sizes the filter for capacity keys at false positive rate fp.
func NewReplays(capacity uint, fp float64) *Replays {
	return &Replays{
		filter:  bloom.NewWithEstimates(capacity, fp),
		results: make(map[string]order.Result),
	}
}

// Get returns the stored result for key.
func (r *Replays) Get(key string) (order.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.filter.TestString(key) {
		r.screened++
		return order.Result{}, false
	}
	res, ok := r.results[key]
	return res, ok
}

// Store records res for key unless a result is already stored, and returns
// the result that wins.
func (r *Replays) Store(key string, res order.Result) order.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.results[key]; ok {
		return prev
	}
	r.filter.AddString(key)
	r.results[key] = res
	return res
}

// Screened returns how many lookups the filter answered alone.
func (r *Replays) Screened() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.screened
}
