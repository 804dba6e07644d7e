package data

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/quantlab/strategy-backtest/pkg/types"
)

// MemoryCache implements Cache using in-memory storage
type MemoryCache struct {
	cache map[string][]types.Bar
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string][]types.Bar),
	}
}

// Get retrieves a series from cache if available
func (c *MemoryCache) Get(key string) ([]types.Bar, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	bars, exists := c.cache[key]
	if exists {
		// Return a copy to prevent external modifications
		result := make([]types.Bar, len(bars))
		copy(result, bars)
		return result, true
	}

	return nil, false
}

// Set stores a series in cache
func (c *MemoryCache) Set(key string, bars []types.Bar) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached := make([]types.Bar, len(bars))
	copy(cached, bars)
	c.cache[key] = cached
}

// Clear removes all cached series
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string][]types.Bar)
}

// Size returns the number of cached entries
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CachedProvider wraps another Provider with caching, so walk-forward
// and Monte Carlo runs over the same files read them once.
type CachedProvider struct {
	provider Provider
	cache    Cache
}

// NewCachedProvider creates a new cached provider
func NewCachedProvider(provider Provider) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    NewMemoryCache(),
	}
}

// NewCachedProviderWithCache creates a cached provider with a custom cache
func NewCachedProviderWithCache(provider Provider, cache Cache) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
	}
}

// GetName returns the name of the underlying provider with cache indication
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadBars loads a series with caching
func (p *CachedProvider) LoadBars(source, symbol string) ([]types.Bar, error) {
	key := symbol + "@" + source
	if cached, exists := p.cache.Get(key); exists {
		return cached, nil
	}

	bars, err := p.provider.LoadBars(source, symbol)
	if err != nil {
		log.Printf("❌ Failed to load %s from %s: %v", symbol, filepath.Base(source), err)
		return nil, err
	}

	p.cache.Set(key, bars)

	log.Printf("✅ Loaded and cached %s from %s (%d bars)", symbol, filepath.Base(source), len(bars))
	return bars, nil
}

// ValidateBars validates a series using the underlying provider
func (p *CachedProvider) ValidateBars(bars []types.Bar) error {
	return p.provider.ValidateBars(bars)
}

// ClearCache clears all cached series
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

// GetCacheSize returns the number of cached entries
func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}
