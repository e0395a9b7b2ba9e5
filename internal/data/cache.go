package data

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"spain-energy/internal/backtest"
)

// CachedRun is a completed dispatch run kept for ledger downloads.
type CachedRun struct {
	ID        string
	Key       string
	Result    *backtest.Result
	Metrics   backtest.Metrics
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RunCache keeps recent dispatch runs in memory so their ledgers can be
// exported after the request that produced them. Runs are addressed by a
// random id and, for deduplication, by a fingerprint of their inputs.
//
// All methods are safe on a nil *RunCache and behave as an empty cache.
type RunCache struct {
	mu    sync.RWMutex
	byID  map[string]*CachedRun
	byKey map[string]string
	ttl   time.Duration
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRunCache starts a cache with the given TTL and a background sweeper.
// Call Close to stop the sweeper.
func NewRunCache(ttl time.Duration) *RunCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &RunCache{
		byID:  make(map[string]*CachedRun),
		byKey: make(map[string]string),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.cleanup(5 * time.Minute)
	return c
}

// Get returns the run with the given id if present and not expired.
func (c *RunCache) Get(id string) (*CachedRun, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	run, ok := c.byID[id]
	if !ok || c.now().After(run.ExpiresAt) {
		return nil, false
	}
	return run, true
}

// Lookup returns the live run stored under an input fingerprint.
func (c *RunCache) Lookup(key string) (*CachedRun, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	c.mu.RLock()
	id, ok := c.byKey[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return c.Get(id)
}

// Put stores a run under a fresh id and returns the entry.
func (c *RunCache) Put(key string, res *backtest.Result, m backtest.Metrics) *CachedRun {
	now := time.Now()
	if c != nil {
		now = c.now()
	}
	run := &CachedRun{
		ID:        uuid.NewString(),
		Key:       key,
		Result:    res,
		Metrics:   m,
		CreatedAt: now,
	}
	if c == nil {
		return run
	}
	run.ExpiresAt = now.Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[run.ID] = run
	if key != "" {
		c.byKey[key] = run.ID
	}
	return run
}

// Len reports the number of stored runs, expired or not.
func (c *RunCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Clear removes all entries.
func (c *RunCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]*CachedRun)
	c.byKey = make(map[string]string)
}

func (c *RunCache) Close() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *RunCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for id, run := range c.byID {
		if now.After(run.ExpiresAt) {
			delete(c.byID, id)
			if c.byKey[run.Key] == id {
				delete(c.byKey, run.Key)
			}
		}
	}
}

// cleanup periodically removes expired entries.
func (c *RunCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// Fingerprint hashes the JSON encoding of v into a cache key.
func Fingerprint(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(b)
	return hex.EncodeToString(hash[:]), nil
}
