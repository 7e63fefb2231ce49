package eta

import (
	"testing"
	"time"

	"github.com/nourishsa/geo-matching/internal/models"
)

var (
	a = models.GeoPoint{Lat: -26.2041, Lon: 28.0473}
	b = models.GeoPoint{Lat: -25.7479, Lon: 28.2293}
)

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(time.Minute)
	if _, ok := c.Get(a, b); ok {
		t.Fatal("empty cache should miss")
	}
	c.Set(a, b, 1200)
	v, ok := c.Get(a, b)
	if !ok || v != 1200 {
		t.Fatalf("expected hit with 1200, got %f %v", v, ok)
	}
	// direction matters: a->b is not b->a
	if _, ok := c.Get(b, a); ok {
		t.Fatal("reverse direction should miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Millisecond)
	c.Set(a, b, 1200)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(a, b); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestEstimateSecondsFallbackSpeed(t *testing.T) {
	// ~55 km at 8 m/s should be just under two hours
	secs := EstimateSeconds(a, b, 0)
	if secs < 6000 || secs > 8000 {
		t.Fatalf("unexpected estimate: %f", secs)
	}
	faster := EstimateSeconds(a, b, 16)
	if faster >= secs {
		t.Fatalf("higher speed must lower the estimate")
	}
}
