package similarity

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"curator/internal/logging"
)

// Match is one related image.
type Match struct {
	ImageID    int64    `json:"image_id"`
	Filename   string   `json:"filename"`
	SharedTags []string `json:"shared_tags"`
	TextScore  float64  `json:"text_score"`
}

// Lookup finds images related to id.
type Lookup interface {
	Similar(ctx context.Context, id int64) ([]Match, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, id int64) ([]Match, error)

// Similar implements Lookup.
func (f LookupFunc) Similar(ctx context.Context, id int64) ([]Match, error) {
	return f(ctx, id)
}

// Cache memoises lookups for one session. An empty result is cached like any
// other; errors are not. There is no eviction.
type Cache struct {
	lookup  Lookup
	logger  *slog.Logger
	mu      sync.Mutex
	entries map[int64][]Match
	lookups int
}

// NewCache wraps lookup.
func NewCache(lookup Lookup, logger *slog.Logger) *Cache {
	return &Cache{
		lookup:  lookup,
		logger:  logging.NewComponentLogger(logger, "similarity"),
		entries: make(map[int64][]Match),
	}
}

// Get returns the cached matches for id, performing the lookup on first use.
// The returned slice is a copy.
func (c *Cache) Get(ctx context.Context, id int64) ([]Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if matches, ok := c.entries[id]; ok {
		return slices.Clone(matches), nil
	}
	c.lookups++
	matches, err := c.lookup.Similar(ctx, id)
	if err != nil {
		c.logger.Debug("similar lookup failed", logging.Int64(logging.FieldItemID, id), logging.Error(err))
		return nil, err
	}
	if matches == nil {
		matches = []Match{}
	}
	c.entries[id] = matches
	return slices.Clone(matches), nil
}

// Lookups reports how many times the underlying lookup was called.
func (c *Cache) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups
}

// Len reports the number of cached ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset discards every cached entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64][]Match)
}
