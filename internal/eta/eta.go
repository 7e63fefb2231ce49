package eta

import (
	"fmt"
	"sync"
	"time"

	"github.com/nourishsa/geo-matching/internal/geo"
	"github.com/nourishsa/geo-matching/internal/models"
)

// Client is the interface used by callers to get road-network drive times.
type Client interface {
	EstimateSeconds(from, to models.GeoPoint) (float64, error)
}

// Cache is a tiny in-memory cache for ETA lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  float64
	ts time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.GeoPoint) string {
	return fmtPoint(a) + "->" + fmtPoint(b)
}

func fmtPoint(p models.GeoPoint) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b models.GeoPoint) (float64, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.v, true
}

// Set stores a value in the cache.
func (c *Cache) Set(a, b models.GeoPoint, v float64) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// EstimateSeconds is the naive fallback: great-circle distance over an
// assumed speed. Used when no OSRM endpoint is configured.
func EstimateSeconds(from, to models.GeoPoint, speedMps float64) float64 {
	if speedMps <= 0 {
		speedMps = 8.0 // ~28.8 km/h default city speed
	}
	return geo.DistanceKm(from, to) * 1000 / speedMps
}
