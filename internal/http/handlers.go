package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nourishsa/geo-matching/internal/config"
	"github.com/nourishsa/geo-matching/internal/dispatch"
	"github.com/nourishsa/geo-matching/internal/engine"
	"github.com/nourishsa/geo-matching/internal/eta"
	"github.com/nourishsa/geo-matching/internal/geo"
	"github.com/nourishsa/geo-matching/internal/ingest"
	"github.com/nourishsa/geo-matching/internal/logging"
	"github.com/nourishsa/geo-matching/internal/matcher"
	"github.com/nourishsa/geo-matching/internal/models"
	"github.com/nourishsa/geo-matching/internal/observability"
	"github.com/nourishsa/geo-matching/internal/payments"
	"github.com/nourishsa/geo-matching/internal/storage"
)

type Server struct {
	Geo      geo.Index
	Matcher  *matcher.Service
	Store    storage.Store
	Kafka    *ingest.KafkaProducer
	WSReg    *dispatch.WSRegistry
	ETA      eta.Client
	ETACache *eta.Cache
	Payments *payments.StripeClient

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires the service from config. Redis/Kafka/Postgres are all
// optional; each falls back to an in-process stand-in so the binary runs
// locally with no infrastructure.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	var gidx geo.Index
	if cfg.RedisAddr != "" {
		gidx = geo.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		gidx = geo.NewMemoryIndex()
	}

	var store storage.Store
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Warn("postgres unavailable, using memory store", "error", err)
		}
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	wsreg := dispatch.NewWSRegistry()
	disp := dispatch.NewPushDispatcher(cfg.PushEndpoint, cfg.PushKey, wsreg)

	var etaClient eta.Client
	var etaCache *eta.Cache
	if cfg.OSRMEndpoint != "" {
		etaClient = eta.NewOSRMClient(cfg.OSRMEndpoint)
		etaCache = eta.NewCache(5 * time.Minute)
	}

	m := &matcher.Service{Store: store, Dispatch: disp, DefaultRadiusKm: cfg.DefaultRadiusKm, MaxResults: cfg.MaxResults}
	if cfg.RedisAddr != "" {
		// Redis-backed index doubles as a coarse pre-filter for match queries
		m.Geo = gidx
	}
	s := &Server{
		Geo: gidx, Matcher: m, Store: store, Kafka: kp, WSReg: wsreg,
		ETA: etaClient, ETACache: etaCache, Payments: payments.NewStripeClient(),
		logger: logger, mux: mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

// NewServerFromEnv is the convenience constructor used by main.
func NewServerFromEnv() *Server {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Warn("config load", "error", err)
	}
	return NewServer(cfg, logger)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/matches", s.handleMatch).Methods("POST")
	s.mux.HandleFunc("/api/v1/routes/optimize", s.handleRouteOptimize).Methods("POST")
	s.mux.HandleFunc("/api/v1/contributions", s.handleContributionHold).Methods("POST")
	s.mux.HandleFunc("/api/v1/contributions/{id}/capture", s.handleContributionCapture).Methods("POST")
	s.mux.HandleFunc("/api/v1/contributions/{id}/cancel", s.handleContributionCancel).Methods("POST")
	s.mux.HandleFunc("/internal/donations/locations", s.handleDonationLocation).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{volunteer_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// matchRequestBody decodes radius_km and max_results as pointers so an
// absent field (default applies) is distinguishable from an explicit zero
// (rejected as invalid).
type matchRequestBody struct {
	RequesterID string               `json:"requester_id"`
	Latitude    float64              `json:"latitude"`
	Longitude   float64              `json:"longitude"`
	Role        string               `json:"role"`
	RadiusKm    *float64             `json:"radius_km"`
	Preferences matchPreferencesBody `json:"preferences"`
}

type matchPreferencesBody struct {
	FoodCategories      []string `json:"food_categories"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	MaxResults          *int     `json:"max_results"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var body matchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := models.MatchRequest{
		RequesterID: body.RequesterID,
		Requester:   models.GeoPoint{Lat: body.Latitude, Lon: body.Longitude},
		Role:        models.Role(body.Role),
		RadiusKm:    s.Matcher.DefaultRadiusKm,
		Preferences: models.Preferences{
			FoodCategories:      body.Preferences.FoodCategories,
			DietaryRestrictions: body.Preferences.DietaryRestrictions,
			MaxResults:          s.Matcher.MaxResults,
		},
	}
	if body.RadiusKm != nil {
		req.RadiusKm = *body.RadiusKm
	}
	if body.Preferences.MaxResults != nil {
		req.Preferences.MaxResults = *body.Preferences.MaxResults
	}
	matchID := newID()
	results, skipped, err := s.Matcher.Match(matchID, req, time.Now())
	if err != nil {
		if errors.Is(err, engine.ErrInvalidLocation) || errors.Is(err, engine.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("match failed", "error", err)
		http.Error(w, "match failed", http.StatusInternalServerError)
		return
	}
	if skipped > 0 {
		s.logger.Info("candidates skipped", "match_id", matchID, "skipped", skipped)
	}
	writeJSON(w, map[string]any{"match_id": matchID, "results": results})
}

type routeRequestBody struct {
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Waypoints []models.GeoPoint `json:"waypoints"`
}

func (s *Server) handleRouteOptimize(w http.ResponseWriter, r *http.Request) {
	var body routeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start := models.GeoPoint{Lat: body.Latitude, Lon: body.Longitude}
	plan, skipped, err := engine.OrderRoute(start, body.Waypoints)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	observability.RoutesPlanned.Inc()
	resp := map[string]any{"plan": plan}
	if skipped > 0 {
		resp["skipped_waypoints"] = skipped
	}
	if s.ETA != nil {
		if secs, ok := s.roadSeconds(start, plan.Stops); ok {
			resp["road_duration_seconds"] = secs
		}
	}
	writeJSON(w, resp)
}

// roadSeconds totals per-stop drive times from the start via OSRM, matching
// the plan's from-start distance semantics. Best-effort: any lookup failure
// drops the enrichment rather than the response.
func (s *Server) roadSeconds(start models.GeoPoint, stops []models.RouteStop) (float64, bool) {
	total := 0.0
	for _, stop := range stops {
		if s.ETACache != nil {
			if v, ok := s.ETACache.Get(start, stop.Point); ok {
				total += v
				continue
			}
		}
		v, err := s.ETA.EstimateSeconds(start, stop.Point)
		if err != nil {
			return 0, false
		}
		if s.ETACache != nil {
			s.ETACache.Set(start, stop.Point, v)
		}
		total += v
	}
	return total, true
}

func (s *Server) handleDonationLocation(w http.ResponseWriter, r *http.Request) {
	var d models.DonationLocation
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !d.Loc.Valid() {
		http.Error(w, "invalid location", http.StatusBadRequest)
		return
	}
	d.Available = true
	// publish to kafka if configured
	if s.Kafka != nil {
		_ = s.Kafka.PublishLocation(d)
	}
	s.Geo.Upsert(d)
	observability.LocationEvents.Inc()
	w.WriteHeader(http.StatusNoContent)
}

type contributionBody struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	CustomerID  string `json:"customer_id"`
}

func (s *Server) handleContributionHold(w http.ResponseWriter, r *http.Request) {
	var body contributionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.AmountCents <= 0 || body.Currency == "" {
		http.Error(w, "amount_cents and currency are required", http.StatusBadRequest)
		return
	}
	id, err := s.Payments.Hold(r.Context(), body.AmountCents, body.Currency, body.CustomerID)
	if err != nil {
		s.logger.Error("contribution hold failed", "error", err)
		http.Error(w, "payment provider error", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"payment_intent_id": id})
}

func (s *Server) handleContributionCapture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Payments.Capture(r.Context(), id); err != nil {
		s.logger.Error("contribution capture failed", "id", id, "error", err)
		http.Error(w, "payment provider error", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContributionCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Payments.Cancel(r.Context(), id); err != nil {
		s.logger.Error("contribution cancel failed", "id", id, "error", err)
		http.Error(w, "payment provider error", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["volunteer_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.WSReg.Add(id, conn)
	// drain the connection so closes are noticed and the session evicted
	go func() {
		defer func() {
			s.WSReg.Remove(id)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
