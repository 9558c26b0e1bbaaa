package classify

import (
	"errors"
	"sync"

	"github.com/cespare/xxhash"
	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedResult struct {
	res     Result
	errText string
}

// Cached memoizes a Classifier behind an LRU keyed by the xxhash of the SQL
// text. Classification failures are cached too, so repeated executions of an
// unparseable statement classify it only once.
type Cached struct {
	inner Classifier
	cache *lru.Cache[uint64, cachedResult]
	mu    sync.Mutex
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner Classifier, size int) *Cached {
	cache, _ := lru.New[uint64, cachedResult](size)
	return &Cached{
		inner: inner,
		cache: cache,
	}
}

// Classify implements Classifier.
func (c *Cached) Classify(sql string) (Result, error) {
	key := xxhash.Sum64String(sql)

	// Fast path: cache hit without holding the classify lock.
	if hit, ok := c.cache.Get(key); ok {
		return hit.unpack()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the lock.
	if hit, ok := c.cache.Get(key); ok {
		return hit.unpack()
	}

	res, err := c.inner.Classify(sql)
	entry := cachedResult{res: res}
	if err != nil {
		entry.errText = err.Error()
	}
	c.cache.Add(key, entry)
	return res, err
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func (r cachedResult) unpack() (Result, error) {
	if r.errText != "" {
		return Result{}, errors.New(r.errText)
	}
	return r.res, nil
}

var _ Classifier = (*Cached)(nil)
