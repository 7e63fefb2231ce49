package matcher

import (
	"testing"
	"time"

	"github.com/nourishsa/geo-matching/internal/models"
	"github.com/nourishsa/geo-matching/internal/storage"
)

type recordingDispatch struct {
	matchID string
	offer   models.MatchOffer
	calls   int
}

func (r *recordingDispatch) Offer(matchID string, offer models.MatchOffer) error {
	r.matchID = matchID
	r.offer = offer
	r.calls++
	return nil
}

var now = time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)

func newService(store storage.Store, disp Dispatcher) *Service {
	return &Service{Store: store, Dispatch: disp, DefaultRadiusKm: 10, MaxResults: 20}
}

func requestFrom(p models.GeoPoint, role models.Role) models.MatchRequest {
	return models.MatchRequest{
		Requester:   p,
		Role:        role,
		RadiusKm:    10,
		Preferences: models.Preferences{MaxResults: 20},
	}
}

func TestMatchOffersAndPersistsBest(t *testing.T) {
	store := storage.NewMemoryStore()
	exp := now.Add(2 * time.Hour)
	store.AddDonation(models.Donation{ID: "urgent", Lat: -26.1952, Lon: 28.0341, ExpiresAt: &exp, CreatedAt: now})
	store.AddDonation(models.Donation{ID: "plain", Lat: -26.1952, Lon: 28.0341, CreatedAt: now})

	disp := &recordingDispatch{}
	s := newService(store, disp)
	req := requestFrom(models.GeoPoint{Lat: -26.2041, Lon: 28.0473}, models.RoleRecipient)
	req.RequesterID = "vol-42"

	results, skipped, err := s.Match("m1", req, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("expected no skipped candidates, got %d", skipped)
	}
	if len(results) != 2 || results[0].CandidateID != "urgent" {
		t.Fatalf("expected the urgent donation first, got %+v", results)
	}
	if disp.calls != 1 || disp.offer.CandidateID != "urgent" {
		t.Fatalf("expected one offer for the best candidate, got %+v", disp)
	}
	if disp.offer.RequesterID != "vol-42" {
		t.Fatalf("offer must carry the requester id for session routing, got %q", disp.offer.RequesterID)
	}
	m, ok := store.GetMatch("m1")
	if !ok {
		t.Fatal("match not persisted")
	}
	if m.CandidateID != "urgent" || m.Status != "offered" {
		t.Fatalf("unexpected match record: %+v", m)
	}
}

func TestMatchEmptyPoolIsNotAnError(t *testing.T) {
	disp := &recordingDispatch{}
	s := newService(storage.NewMemoryStore(), disp)
	req := requestFrom(models.GeoPoint{Lat: -26.2041, Lon: 28.0473}, models.RoleVolunteer)

	results, _, err := s.Match("m2", req, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %+v", results)
	}
	if disp.calls != 0 {
		t.Fatalf("no offer should go out without a match")
	}
}

func TestMatchSelectsPoolByRole(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddDonation(models.Donation{ID: "don", Lat: -26.1952, Lon: 28.0341, CreatedAt: now})
	store.AddTask(models.Task{ID: "task", Lat: -26.1952, Lon: 28.0341, CreatedAt: now.Add(-time.Hour), ScheduledFor: now.Add(3 * time.Hour)})
	store.AddHub(models.Hub{ID: "hub", Lat: -26.1952, Lon: 28.0341, Kind: "fridge"})

	s := newService(store, &recordingDispatch{})
	req := requestFrom(models.GeoPoint{Lat: -26.2041, Lon: 28.0473}, models.RoleRecipient)

	cases := []struct {
		role models.Role
		want string
	}{
		{models.RoleRecipient, "don"},
		{models.RoleVolunteer, "task"},
		{models.RoleDonor, "hub"},
	}
	for i, tc := range cases {
		req.Role = tc.role
		results, _, err := s.Match("m"+tc.want, req, now)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if len(results) != 1 || results[0].CandidateID != tc.want {
			t.Fatalf("role %s: expected %s, got %+v", tc.role, tc.want, results)
		}
	}
}

type fakeIndex struct {
	near []models.DonationLocation
}

func (f *fakeIndex) Nearby(lat, lon float64, limit int) []models.DonationLocation { return f.near }
func (f *fakeIndex) Upsert(d models.DonationLocation)                             {}

func TestMatchGeoIndexNarrowsDonationPool(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddDonation(models.Donation{ID: "in-index", Lat: -26.1952, Lon: 28.0341, CreatedAt: now})
	store.AddDonation(models.Donation{ID: "off-index", Lat: -26.1952, Lon: 28.0341, CreatedAt: now})

	s := newService(store, &recordingDispatch{})
	s.Geo = &fakeIndex{near: []models.DonationLocation{{ID: "in-index"}}}
	req := requestFrom(models.GeoPoint{Lat: -26.2041, Lon: 28.0473}, models.RoleRecipient)

	results, _, err := s.Match("m-geo", req, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].CandidateID != "in-index" {
		t.Fatalf("expected the pool narrowed to the indexed donation, got %+v", results)
	}
}

func TestMatchEmptyGeoIndexFallsBackToFullPool(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddDonation(models.Donation{ID: "don", Lat: -26.1952, Lon: 28.0341, CreatedAt: now})

	s := newService(store, &recordingDispatch{})
	s.Geo = &fakeIndex{}
	req := requestFrom(models.GeoPoint{Lat: -26.2041, Lon: 28.0473}, models.RoleRecipient)

	// an empty index answer means ingest lag, not an empty pool
	results, _, err := s.Match("m-lag", req, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].CandidateID != "don" {
		t.Fatalf("expected fallback to the stored donations, got %+v", results)
	}
}
