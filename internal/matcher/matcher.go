package matcher

import (
	"fmt"
	"time"

	"github.com/nourishsa/geo-matching/internal/engine"
	"github.com/nourishsa/geo-matching/internal/geo"
	"github.com/nourishsa/geo-matching/internal/models"
	"github.com/nourishsa/geo-matching/internal/observability"
	"github.com/nourishsa/geo-matching/internal/storage"
)

// Dispatcher pushes a match offer to the matched party (websocket session,
// push webhook).
type Dispatcher interface {
	Offer(matchID string, offer models.MatchOffer) error
}

// geoPrefilterLimit caps how many index entries the coarse pre-filter pulls.
const geoPrefilterLimit = 200

// Service wires the pure engine to candidate storage and offer dispatch.
// One call fetches the role's candidate pool, ranks it, records the top
// match and offers it best-effort. Geo, when set, narrows the donation pool
// through the geo index before the engine's exact radius filter runs.
type Service struct {
	Store           storage.Store
	Dispatch        Dispatcher
	Geo             geo.Index
	DefaultRadiusKm float64
	MaxResults      int
}

// Match returns the ranked results for a request plus the number of
// candidates skipped for malformed coordinates. The request must already
// carry positive radius and result-cap values.
func (s *Service) Match(matchID string, req models.MatchRequest, now time.Time) ([]models.ScoredResult, int, error) {
	cands, err := s.candidates(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch candidates: %w", err)
	}

	start := time.Now()
	results, skipped, err := engine.FindMatches(req, cands, now)
	if err != nil {
		return nil, 0, err
	}
	observability.MatchLatency.Observe(time.Since(start).Seconds())
	observability.CandidatesSkipped.Add(float64(skipped))

	if len(results) == 0 {
		return results, skipped, nil
	}

	best := results[0]
	offer := models.MatchOffer{
		RequesterID: req.RequesterID,
		CandidateID: best.CandidateID,
		DistanceKm:  best.DistanceKm,
		Score:       best.Score,
	}
	if s.Dispatch != nil {
		_ = s.Dispatch.Offer(matchID, offer) // best-effort
	}
	observability.MatchesTotal.Inc()

	m := &models.Match{
		ID:          matchID,
		Role:        req.Role,
		CandidateID: best.CandidateID,
		Requester:   req.Requester,
		DistanceKm:  best.DistanceKm,
		Score:       best.Score,
		Status:      "offered",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	_ = s.Store.SaveMatch(m)
	return results, skipped, nil
}

// candidates selects the pool for a role: recipients browse donations,
// volunteers browse tasks, donors look for the nearest drop-off hubs.
func (s *Service) candidates(req models.MatchRequest) ([]models.Candidate, error) {
	switch req.Role {
	case models.RoleVolunteer:
		tasks, err := s.Store.ListTasks()
		if err != nil {
			return nil, err
		}
		out := make([]models.Candidate, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, t)
		}
		return out, nil
	case models.RoleDonor:
		hubs, err := s.Store.ListHubs()
		if err != nil {
			return nil, err
		}
		out := make([]models.Candidate, 0, len(hubs))
		for _, h := range hubs {
			out = append(out, h)
		}
		return out, nil
	default:
		donations, err := s.Store.ListDonations()
		if err != nil {
			return nil, err
		}
		if s.Geo != nil {
			donations = s.prefilterDonations(req, donations)
		}
		out := make([]models.Candidate, 0, len(donations))
		for _, d := range donations {
			out = append(out, d)
		}
		return out, nil
	}
}

// prefilterDonations narrows the donation pool to ids the geo index sees
// near the requester. The index is coarse; the engine still applies the
// exact radius filter. An empty index answer falls back to the full pool,
// since ingest can lag persistence.
func (s *Service) prefilterDonations(req models.MatchRequest, donations []models.Donation) []models.Donation {
	near := s.Geo.Nearby(req.Requester.Lat, req.Requester.Lon, geoPrefilterLimit)
	if len(near) == 0 {
		return donations
	}
	keep := make(map[string]bool, len(near))
	for _, n := range near {
		keep[n.ID] = true
	}
	out := make([]models.Donation, 0, len(donations))
	for _, d := range donations {
		if keep[d.ID] {
			out = append(out, d)
		}
	}
	return out
}
