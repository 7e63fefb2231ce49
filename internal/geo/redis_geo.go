package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nourishsa/geo-matching/internal/models"
)

// RedisIndex implements Index using Redis GEO commands.
type RedisIndex struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisIndex(addr, password, key string) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisIndex{client: c, key: key, ctx: context.Background()}
}

func (r *RedisIndex) Upsert(d models.DonationLocation) {
	// GEOADD for position, HSET for metadata
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{Longitude: d.Loc.Lon, Latitude: d.Loc.Lat, Name: d.ID}).Result()
	_ = r.client.HSet(r.ctx, metaKey(d.ID), map[string]interface{}{
		"category":  d.Category,
		"meals":     strconv.Itoa(d.Meals),
		"available": strconv.FormatBool(d.Available),
		"updated":   time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisIndex) Nearby(lat, lon float64, limit int) []models.DonationLocation {
	res, err := r.client.GeoRadius(r.ctx, r.key, lon, lat, &redis.GeoRadiusQuery{Radius: 50, Unit: "km", WithCoord: true, WithDist: true, Count: limit, Sort: "ASC"}).Result()
	if err != nil {
		return nil
	}
	out := make([]models.DonationLocation, 0, len(res))
	for _, g := range res {
		d := models.DonationLocation{ID: g.Name, Loc: models.GeoPoint{Lat: g.Latitude, Lon: g.Longitude}}
		if m, err := r.client.HGetAll(r.ctx, metaKey(g.Name)).Result(); err == nil {
			d.Category = m["category"]
			if v, ok := m["meals"]; ok {
				if n, err := strconv.Atoi(v); err == nil {
					d.Meals = n
				}
			}
			if v, ok := m["available"]; ok {
				d.Available = (v == "true")
			}
		}
		out = append(out, d)
	}
	return out
}

func metaKey(id string) string { return "donation:meta:" + id }
