package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nourishsa/geo-matching/internal/config"
	"github.com/nourishsa/geo-matching/internal/dispatch"
	"github.com/nourishsa/geo-matching/internal/logging"
	"github.com/nourishsa/geo-matching/internal/models"
	"github.com/nourishsa/geo-matching/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()
	cfg, err := config.LoadServerConfig()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	s := NewServer(cfg, logging.NewLogger("error"))
	mem, ok := s.Store.(*storage.MemoryStore)
	if !ok {
		t.Fatalf("expected memory store in tests")
	}
	return s, mem
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHandleMatchReturnsRankedResults(t *testing.T) {
	s, mem := newTestServer(t)
	exp := time.Now().Add(2 * time.Hour)
	mem.AddDonation(models.Donation{ID: "d1", Lat: -26.1952, Lon: 28.0341, EstimatedMeals: 10, ExpiresAt: &exp, CreatedAt: time.Now()})

	rec := postJSON(t, s, "/api/v1/matches", map[string]any{
		"latitude":  -26.2041,
		"longitude": 28.0473,
		"role":      "recipient",
		"radius_km": 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		MatchID string                `json:"match_id"`
		Results []models.ScoredResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MatchID == "" || len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Results[0].Score != 150 || resp.Results[0].Rank != 1 {
		t.Fatalf("unexpected scoring: %+v", resp.Results[0])
	}
}

func TestHandleMatchRejectsBadLocation(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/api/v1/matches", map[string]any{
		"latitude":  95.0,
		"longitude": 28.0473,
		"role":      "recipient",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleMatchOmittedParamsGetDefaults(t *testing.T) {
	s, mem := newTestServer(t)
	mem.AddDonation(models.Donation{ID: "d1", Lat: -26.1952, Lon: 28.0341, CreatedAt: time.Now()})

	// no radius_km, no preferences: server defaults apply
	rec := postJSON(t, s, "/api/v1/matches", map[string]any{
		"latitude":  -26.2041,
		"longitude": 28.0473,
		"role":      "recipient",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with defaults, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleMatchRejectsExplicitZeroParams(t *testing.T) {
	s, _ := newTestServer(t)
	bodies := []map[string]any{
		{"latitude": -26.2041, "longitude": 28.0473, "role": "recipient", "radius_km": 0},
		{"latitude": -26.2041, "longitude": 28.0473, "role": "recipient", "preferences": map[string]any{"max_results": 0}},
	}
	for i, body := range bodies {
		rec := postJSON(t, s, "/api/v1/matches", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("case %d: explicit zero must be rejected, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}
}

func TestHandleMatchEmptyPoolIsOK(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/api/v1/matches", map[string]any{
		"latitude":  -26.2041,
		"longitude": 28.0473,
		"role":      "volunteer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty pool, got %d", rec.Code)
	}
}

func TestHandleRouteOptimize(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/api/v1/routes/optimize", map[string]any{
		"latitude":  -26.2041,
		"longitude": 28.0473,
		"waypoints": []map[string]float64{
			{"latitude": -25.7479, "longitude": 28.2293},
			{"latitude": -26.1952, "longitude": 28.0341},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Plan models.RoutePlan `json:"plan"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Plan.Stops) != 2 {
		t.Fatalf("expected 2 stops, got %+v", resp.Plan)
	}
	if resp.Plan.Stops[0].DistanceFromStartKm > resp.Plan.Stops[1].DistanceFromStartKm {
		t.Fatalf("stops unordered: %+v", resp.Plan.Stops)
	}
	if resp.Plan.EstimatedDurationMinutes <= 0 {
		t.Fatalf("expected positive duration, got %d", resp.Plan.EstimatedDurationMinutes)
	}
}

func TestHandleDonationLocationIngest(t *testing.T) {
	s, _ := newTestServer(t)
	rec := postJSON(t, s, "/internal/donations/locations", models.DonationLocation{
		ID:  "loc-1",
		Loc: models.GeoPoint{Lat: -26.1952, Lon: 28.0341},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	near := s.Geo.Nearby(-26.2041, 28.0473, 5)
	if len(near) != 1 || near[0].ID != "loc-1" {
		t.Fatalf("expected donation in geo index, got %+v", near)
	}

	rec = postJSON(t, s, "/internal/donations/locations", models.DonationLocation{
		ID:  "loc-2",
		Loc: models.GeoPoint{Lat: 120, Lon: 28},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad coordinates, got %d", rec.Code)
	}
}

func TestWSSessionEvictedOnClose(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/vol-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := s.WSReg.Offer("vol-1", models.MatchOffer{CandidateID: "d1"}); err != nil {
		t.Fatalf("expected live session to accept offer: %v", err)
	}

	conn.Close()
	// eviction happens on the server's read loop; give it a moment
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := s.WSReg.Offer("vol-1", models.MatchOffer{CandidateID: "d1"})
		if errors.Is(err, dispatch.ErrNoSession) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("session not evicted after close, last err: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
