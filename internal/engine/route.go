package engine

import (
	"fmt"
	"math"

	"github.com/nourishsa/geo-matching/internal/geo"
	"github.com/nourishsa/geo-matching/internal/models"
)

// OrderRoute sorts waypoints by their distance from the start and estimates
// a total pickup duration. Distances are from the start, not sequential leg
// lengths, so this is not a shortest-tour solver; a real TSP heuristic could
// replace it behind the same signature. Malformed waypoints are skipped, the
// count is returned alongside the plan.
func OrderRoute(start models.GeoPoint, waypoints []models.GeoPoint) (models.RoutePlan, int, error) {
	if !start.Valid() {
		return models.RoutePlan{}, 0, fmt.Errorf("%w: start latitude=%v longitude=%v", ErrInvalidLocation, start.Lat, start.Lon)
	}
	type leg struct {
		point  models.GeoPoint
		distKm float64
	}
	legs := make([]leg, 0, len(waypoints))
	skipped := 0
	for _, wp := range waypoints {
		if !wp.Valid() {
			skipped++
			continue
		}
		legs = append(legs, leg{point: wp, distKm: geo.DistanceKm(start, wp)})
	}
	// insertion sort keeps equal-distance stops in input order; fine for
	// the handful of stops a volunteer round carries
	for i := 1; i < len(legs); i++ {
		key := legs[i]
		j := i - 1
		for j >= 0 && legs[j].distKm > key.distKm {
			legs[j+1] = legs[j]
			j--
		}
		legs[j+1] = key
	}

	plan := models.RoutePlan{Stops: make([]models.RouteStop, 0, len(legs))}
	total := 0.0
	for i, l := range legs {
		total += l.distKm
		plan.Stops = append(plan.Stops, models.RouteStop{
			Point:               l.point,
			StopNumber:          i + 1,
			DistanceFromStartKm: round2(l.distKm),
		})
	}
	plan.TotalDistanceKm = round2(total)
	plan.EstimatedDurationMinutes = int(math.Ceil(total*minutesPerKm + float64(len(legs))*minutesPerStop))
	return plan, skipped, nil
}
