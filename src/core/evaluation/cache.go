package evaluation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"hunter/src/log"
)

// JudgeCache stores judgments keyed by the inputs that produced them. A miss
// is reported as ok=false, never as an error; backends reserve errors for
// real failures (a dead connection, a corrupt entry).
type JudgeCache interface {
	Get(ctx context.Context, key string) (Judgment, bool, error)
	Set(ctx context.Context, key string, judgment Judgment) error
}

// CacheKey builds the cache key for one judge call: the SHA-256 of the
// metric and every input, joined with length prefixes so distinct input
// splits can never collide.
func CacheKey(metric Metric, inputs ...string) string {
	h := sha256.New()
	h.Write([]byte(metric))
	for _, in := range inputs {
		var lenBuf [8]byte
		n := len(in)
		for i := 0; i < 8; i++ {
			lenBuf[i] = byte(n >> (8 * i))
		}
		h.Write(lenBuf[:])
		h.Write([]byte(in))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is an in-process JudgeCache for single-run batches.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Judgment
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Judgment)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (Judgment, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	judgment, ok := c.entries[key]
	return judgment, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, judgment Judgment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = judgment
	return nil
}

// Len returns the number of cached judgments.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedJudge wraps a Judge so identical (metric, inputs) pairs are judged
// once. Cache failures degrade to a plain judge call; a flaky cache must
// never fail a judgment that the inner judge could produce.
type CachedJudge struct {
	inner Judge
	cache JudgeCache
}

func NewCachedJudge(inner Judge, cache JudgeCache) *CachedJudge {
	return &CachedJudge{inner: inner, cache: cache}
}

func (j *CachedJudge) ScoreGroundedness(ctx context.Context, answer string, references []string) (Judgment, error) {
	key := CacheKey(MetricGroundedness, append([]string{answer}, references...)...)
	return j.judge(ctx, key, func() (Judgment, error) {
		return j.inner.ScoreGroundedness(ctx, answer, references)
	})
}

func (j *CachedJudge) ScoreRelevance(ctx context.Context, question, answer string) (Judgment, error) {
	key := CacheKey(MetricRelevance, question, answer)
	return j.judge(ctx, key, func() (Judgment, error) {
		return j.inner.ScoreRelevance(ctx, question, answer)
	})
}

func (j *CachedJudge) ScoreCoherence(ctx context.Context, answer string) (Judgment, error) {
	key := CacheKey(MetricCoherence, answer)
	return j.judge(ctx, key, func() (Judgment, error) {
		return j.inner.ScoreCoherence(ctx, answer)
	})
}

func (j *CachedJudge) ScoreCompleteness(ctx context.Context, question, answer string) (Judgment, error) {
	key := CacheKey(MetricCompleteness, question, answer)
	return j.judge(ctx, key, func() (Judgment, error) {
		return j.inner.ScoreCompleteness(ctx, question, answer)
	})
}

func (j *CachedJudge) judge(ctx context.Context, key string, call func() (Judgment, error)) (Judgment, error) {
	cached, ok, err := j.cache.Get(ctx, key)
	if err != nil {
		log.Error(err, "judge cache lookup failed", "key", shortKey(key))
	} else if ok {
		log.Debug("judge cache hit", "key", shortKey(key))
		return cached, nil
	}

	judgment, err := call()
	if err != nil {
		return Judgment{}, err
	}

	if err := j.cache.Set(ctx, key, judgment); err != nil {
		log.Error(err, "judge cache store failed", "key", shortKey(key))
	}
	return judgment, nil
}

func shortKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12]
}
