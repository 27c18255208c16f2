package perf

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
)

// Fingerprint identifies a sample by its content: the sha256 of the
// IEEE-754 bits of each value, in order.
func Fingerprint(sample []float64) string {
	hash := sha256.New()
	buf := make([]byte, 8)
	for _, v := range sample {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		_, _ = hash.Write(buf)
	}
	return hex.EncodeToString(hash.Sum(nil))
}

// DevianceCache memoizes Deviance results by sample fingerprint. It is
// owned by the caller and safe for concurrent use.
type DevianceCache struct {
	mu    sync.RWMutex
	cache map[string]DevianceResult
}

// NewDevianceCache returns an empty cache.
func NewDevianceCache() *DevianceCache {
	return &DevianceCache{cache: map[string]DevianceResult{}}
}

// Deviance returns the cached result for sample, computing and storing it
// on a miss. Errors are not cached.
func (c *DevianceCache) Deviance(sample []float64) (DevianceResult, error) {
	key := Fingerprint(sample)

	c.mu.RLock()
	res, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return res, nil
	}

	res, err := Deviance(sample)
	if err != nil {
		return res, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = res
	return res, nil
}

// Len is the number of cached results.
func (c *DevianceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache)
}
