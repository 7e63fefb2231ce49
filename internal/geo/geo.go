package geo

import (
	"math"
	"sync"
	"time"

	"github.com/nourishsa/geo-matching/internal/models"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two
// points. This is the only haversine implementation in the codebase; every
// filtering and scoring path goes through it.
func DistanceKm(a, b models.GeoPoint) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Index is the minimal donation-position interface required by the ingest
// path and the match handler's coarse pre-filter.
type Index interface {
	Nearby(lat, lon float64, limit int) []models.DonationLocation
	Upsert(d models.DonationLocation)
}

// MemoryIndex is the in-process fallback used when Redis is not configured.
type MemoryIndex struct {
	mu        sync.RWMutex
	donations map[string]models.DonationLocation
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{donations: make(map[string]models.DonationLocation)}
}

func (g *MemoryIndex) Upsert(d models.DonationLocation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d.Updated = time.Now()
	g.donations[d.ID] = d
}

// naive scan; in prod use geo-hash or H3
func (g *MemoryIndex) Nearby(lat, lon float64, limit int) []models.DonationLocation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		d    models.DonationLocation
		dist float64
	}
	origin := models.GeoPoint{Lat: lat, Lon: lon}
	arr := make([]pair, 0, len(g.donations))
	for _, d := range g.donations {
		if !d.Available {
			continue
		}
		arr = append(arr, pair{d, DistanceKm(origin, d.Loc)})
	}
	// partial selection sort for top-N
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]models.DonationLocation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].d)
	}
	return out
}
