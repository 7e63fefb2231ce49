package engine

import (
	"math"
	"time"

	"github.com/nourishsa/geo-matching/internal/models"
)

// score dispatches on the candidate variant and returns the populated result
// plus the sort key used for ranking. The key equals the match score for
// donations; tasks blend urgency, points and distance; hubs rank purely by
// distance (key 0, the distance tie-break orders them nearest first).
func score(c models.Candidate, prefs models.Preferences, distKm float64, now time.Time) (models.ScoredResult, float64) {
	switch v := c.(type) {
	case models.Donation:
		s := scoreDonation(v, prefs, now)
		return models.ScoredResult{CandidateID: v.ID, Score: s}, s
	case models.Task:
		points := taskPointsPotential(v, now)
		urgency := taskUrgencyScore(v, now)
		key := taskWeightUrgency*urgency + taskWeightPoints*points - taskWeightDistance*distKm
		return models.ScoredResult{
			CandidateID:     v.ID,
			Score:           round2(key),
			PointsPotential: points,
			UrgencyScore:    urgency,
		}, key
	case models.Hub:
		return models.ScoredResult{CandidateID: v.ID}, 0
	}
	return models.ScoredResult{CandidateID: c.CandidateID()}, 0
}

// scoreDonation ranks a donation for a recipient. Base 100, plus bonuses for
// imminent expiry, portion size and dietary fit. An already-expired donation
// keeps the base score; excluding it is the caller's call.
func scoreDonation(d models.Donation, prefs models.Preferences, now time.Time) float64 {
	s := donationBaseScore
	if d.ExpiresAt != nil {
		ttl := d.ExpiresAt.Sub(now)
		switch {
		case ttl <= 0:
			// expired: no urgency bonus, still listed
		case ttl < 24*time.Hour:
			s += urgentExpiryBonus
		case ttl < 48*time.Hour:
			s += soonExpiryBonus
		}
	}
	if d.EstimatedMeals > 0 {
		s += math.Min(float64(d.EstimatedMeals)*2, mealBonusCap)
	}
	for _, restriction := range prefs.DietaryRestrictions {
		if d.DietaryFlags[restriction] {
			s += dietaryMatchBonus
		}
	}
	return s
}

// taskPointsPotential estimates the reward for completing a task: older
// tasks and bigger deliveries are worth more, with age credit capped at a
// day.
func taskPointsPotential(t models.Task, now time.Time) float64 {
	return math.Round(taskBasePoints + math.Min(hoursSince(t.CreatedAt, now), 24) + float64(t.RelatedMeals))
}

// taskUrgencyScore grows with task age and jumps when the scheduled slot is
// close, capped at 100.
func taskUrgencyScore(t models.Task, now time.Time) float64 {
	u := taskBaseUrgency + hoursSince(t.CreatedAt, now)*2
	until := t.ScheduledFor.Sub(now)
	switch {
	case until <= 2*time.Hour:
		u += urgentScheduleBonus
	case until <= 6*time.Hour:
		u += soonScheduleBonus
	}
	return math.Min(u, taskUrgencyCap)
}

// hoursSince clamps negative ages (clock skew) to zero.
func hoursSince(t, now time.Time) float64 {
	h := now.Sub(t).Hours()
	if h < 0 {
		return 0
	}
	return h
}
