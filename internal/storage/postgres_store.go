package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"github.com/nourishsa/geo-matching/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) ListDonations() ([]models.Donation, error) {
	rows, err := p.db.Query(`SELECT id, latitude, longitude, food_category, dietary_flags, estimated_meals, expires_at, created_at FROM donations WHERE status = 'available'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Donation
	for rows.Next() {
		var d models.Donation
		var flags []byte
		var expires sql.NullTime
		if err := rows.Scan(&d.ID, &d.Lat, &d.Lon, &d.FoodCategory, &flags, &d.EstimatedMeals, &expires, &d.CreatedAt); err != nil {
			return nil, err
		}
		if len(flags) > 0 {
			_ = json.Unmarshal(flags, &d.DietaryFlags)
		}
		if expires.Valid {
			t := expires.Time
			d.ExpiresAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListTasks() ([]models.Task, error) {
	rows, err := p.db.Query(`SELECT id, latitude, longitude, created_at, scheduled_for, related_meals FROM volunteer_tasks WHERE status = 'open'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Lat, &t.Lon, &t.CreatedAt, &t.ScheduledFor, &t.RelatedMeals); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListHubs() ([]models.Hub, error) {
	rows, err := p.db.Query(`SELECT id, latitude, longitude, kind FROM hubs WHERE active = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Hub
	for rows.Next() {
		var h models.Hub
		if err := rows.Scan(&h.ID, &h.Lat, &h.Lon, &h.Kind); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SaveMatch(m *models.Match) error {
	_, err := p.db.Exec(`INSERT INTO matches(id, role, candidate_id, requester_lat, requester_lon, distance_km, score, status, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.ID, string(m.Role), m.CandidateID, m.Requester.Lat, m.Requester.Lon, m.DistanceKm, m.Score, m.Status, m.CreatedAt, m.UpdatedAt)
	return err
}

func (p *PostgresStore) UpdateMatch(m *models.Match) error {
	_, err := p.db.Exec(`UPDATE matches SET status=$1, updated_at=$2 WHERE id=$3`, m.Status, time.Now(), m.ID)
	return err
}
