package models

import (
	"math"
	"time"
)

// GeoPoint is a WGS84 coordinate pair. JSON field names follow the public
// API shape the frontend already consumes.
type GeoPoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether both coordinates are finite and in range.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Role identifies who is asking for matches; it selects which candidate
// pool the service searches.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleRecipient Role = "recipient"
	RoleVolunteer Role = "volunteer"
)

// Preferences narrow and cap a match query. An empty slice means "no
// restriction", not "match nothing".
type Preferences struct {
	FoodCategories      []string `json:"food_categories,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	MaxResults          int      `json:"max_results,omitempty"`
}

// MatchRequest is one snapshot match query. RadiusKm and MaxResults must be
// positive by the time the engine sees them; the HTTP boundary fills absent
// values with the shipped defaults and lets explicit non-positive values
// fail validation. RequesterID identifies the asking user so the top offer
// can be pushed back to their open session.
type MatchRequest struct {
	RequesterID string      `json:"requester_id,omitempty"`
	Requester   GeoPoint    `json:"requester"`
	Role        Role        `json:"role"`
	RadiusKm    float64     `json:"radius_km"`
	Preferences Preferences `json:"preferences"`
}

// Candidate is the tagged union of everything the engine can rank.
// The unexported method keeps the variant set closed so scoring dispatch
// stays exhaustive.
type Candidate interface {
	CandidateID() string
	Location() GeoPoint
	candidate()
}

// Donation is surplus food offered by a donor.
type Donation struct {
	ID             string          `json:"id"`
	Lat            float64         `json:"latitude"`
	Lon            float64         `json:"longitude"`
	FoodCategory   string          `json:"food_category"`
	DietaryFlags   map[string]bool `json:"dietary_flags,omitempty"`
	EstimatedMeals int             `json:"estimated_meals,omitempty"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (d Donation) CandidateID() string { return d.ID }
func (d Donation) Location() GeoPoint  { return GeoPoint{Lat: d.Lat, Lon: d.Lon} }
func (d Donation) candidate()          {}

// Task is a pickup or delivery job a volunteer can claim.
type Task struct {
	ID           string    `json:"id"`
	Lat          float64   `json:"latitude"`
	Lon          float64   `json:"longitude"`
	CreatedAt    time.Time `json:"created_at"`
	ScheduledFor time.Time `json:"scheduled_for"`
	RelatedMeals int       `json:"related_meals,omitempty"`
}

func (t Task) CandidateID() string { return t.ID }
func (t Task) Location() GeoPoint  { return GeoPoint{Lat: t.Lat, Lon: t.Lon} }
func (t Task) candidate()          {}

// Hub is a fixed point of interest: community fridge, collection hub.
type Hub struct {
	ID   string  `json:"id"`
	Lat  float64 `json:"latitude"`
	Lon  float64 `json:"longitude"`
	Kind string  `json:"kind"`
}

func (h Hub) CandidateID() string { return h.ID }
func (h Hub) Location() GeoPoint  { return GeoPoint{Lat: h.Lat, Lon: h.Lon} }
func (h Hub) candidate()          {}

// ScoredResult is one ranked entry in a match response. PointsPotential and
// UrgencyScore are populated for task candidates only.
type ScoredResult struct {
	CandidateID     string  `json:"id"`
	DistanceKm      float64 `json:"distance_km"`
	Score           float64 `json:"match_score"`
	PointsPotential float64 `json:"points_potential,omitempty"`
	UrgencyScore    float64 `json:"urgency_score,omitempty"`
	Rank            int     `json:"rank"`
}

// RouteStop is one ordered stop in a planned pickup round.
type RouteStop struct {
	Point               GeoPoint `json:"point"`
	StopNumber          int      `json:"stop_number"`
	DistanceFromStartKm float64  `json:"distance_from_start_km"`
}

// RoutePlan is the output of route ordering. TotalDistanceKm is the sum of
// per-stop distances from the start, not a tour length.
type RoutePlan struct {
	Stops                    []RouteStop `json:"stops"`
	TotalDistanceKm          float64     `json:"total_distance_km"`
	EstimatedDurationMinutes int         `json:"estimated_duration_minutes"`
}

// MatchOffer is pushed to the requester's session when a match lands.
// RequesterID is the session key; CandidateID is what was matched.
type MatchOffer struct {
	RequesterID string  `json:"requester_id,omitempty"`
	CandidateID string  `json:"candidate_id"`
	DistanceKm  float64 `json:"distance_km"`
	Score       float64 `json:"match_score"`
}

// DonationLocation is the location-update event published by donor apps
// and consumed into the geo index.
type DonationLocation struct {
	ID        string    `json:"id"`
	Loc       GeoPoint  `json:"loc"`
	Category  string    `json:"food_category"`
	Meals     int       `json:"estimated_meals"`
	Available bool      `json:"available"`
	Updated   time.Time `json:"updated"`
}

// Match is a persisted match record.
type Match struct {
	ID          string
	Role        Role
	CandidateID string
	Requester   GeoPoint
	DistanceKm  float64
	Score       float64
	Status      string // offered, accepted, declined, completed, expired
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
