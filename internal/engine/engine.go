// Package engine is the pure geo-matching core: haversine radius filtering,
// per-variant heuristic scoring and deterministic ranking. It performs no
// I/O and holds no state; callers pass the clock in so results are
// reproducible.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nourishsa/geo-matching/internal/geo"
	"github.com/nourishsa/geo-matching/internal/models"
)

// Shipped defaults and scoring constants. Callers override radius and result
// cap per request; the scoring weights are fixed to match existing behavior.
const (
	DefaultRadiusKm   = 10.0
	DefaultMaxResults = 20

	donationBaseScore    = 100.0
	urgentExpiryBonus    = 30.0 // expires within 24h
	soonExpiryBonus      = 15.0 // expires within 48h
	mealBonusCap         = 20.0
	dietaryMatchBonus    = 10.0
	taskBasePoints       = 10.0
	taskBaseUrgency      = 50.0
	taskUrgencyCap       = 100.0
	taskWeightUrgency    = 0.6
	taskWeightPoints     = 0.4
	taskWeightDistance   = 0.1
	minutesPerKm         = 2.5
	minutesPerStop       = 10.0
	urgentScheduleBonus  = 30.0 // scheduled within 2h
	soonScheduleBonus    = 15.0 // scheduled within 6h
)

var (
	// ErrInvalidLocation means the requester's coordinates are missing,
	// non-finite or out of range. Fatal; no partial result.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrInvalidRequest means a request-level parameter (radius, result cap)
	// is out of range. Fatal; no partial result.
	ErrInvalidRequest = errors.New("invalid request")
)

// FindMatches ranks candidates around the requester. RadiusKm and
// MaxResults must be positive; absent values are filled with the shipped
// defaults at the HTTP boundary, before the request reaches the engine.
// Candidates with malformed coordinates are skipped, never fatal; the skip
// count is returned so callers can log or count it. An empty result is a
// normal outcome.
func FindMatches(req models.MatchRequest, candidates []models.Candidate, now time.Time) ([]models.ScoredResult, int, error) {
	if !req.Requester.Valid() {
		return nil, 0, fmt.Errorf("%w: requester latitude=%v longitude=%v", ErrInvalidLocation, req.Requester.Lat, req.Requester.Lon)
	}
	radius := req.RadiusKm
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, 0, fmt.Errorf("%w: radius_km must be > 0", ErrInvalidRequest)
	}
	maxResults := req.Preferences.MaxResults
	if maxResults <= 0 {
		return nil, 0, fmt.Errorf("%w: max_results must be > 0", ErrInvalidRequest)
	}

	type scored struct {
		res     models.ScoredResult
		sortKey float64
		distKm  float64
	}
	retained := make([]scored, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		if !c.Location().Valid() {
			skipped++
			continue
		}
		if !allowedCategory(c, req.Preferences.FoodCategories) {
			continue
		}
		dist := geo.DistanceKm(req.Requester, c.Location())
		// inclusive boundary: a candidate at exactly the radius stays in
		if dist > radius {
			continue
		}
		res, key := score(c, req.Preferences, dist, now)
		retained = append(retained, scored{res: res, sortKey: key, distKm: dist})
	}

	sort.Slice(retained, func(i, j int) bool {
		if retained[i].sortKey != retained[j].sortKey {
			return retained[i].sortKey > retained[j].sortKey
		}
		if retained[i].distKm != retained[j].distKm {
			return retained[i].distKm < retained[j].distKm
		}
		return retained[i].res.CandidateID < retained[j].res.CandidateID
	})

	if len(retained) > maxResults {
		retained = retained[:maxResults]
	}
	out := make([]models.ScoredResult, 0, len(retained))
	for i, s := range retained {
		s.res.Rank = i + 1
		s.res.DistanceKm = round2(s.distKm)
		out = append(out, s.res)
	}
	return out, skipped, nil
}

// allowedCategory applies the optional food-category allow-list. Only
// donations carry a category; other variants always pass.
func allowedCategory(c models.Candidate, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	d, ok := c.(models.Donation)
	if !ok {
		return true
	}
	for _, cat := range categories {
		if cat == d.FoodCategory {
			return true
		}
	}
	return false
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
