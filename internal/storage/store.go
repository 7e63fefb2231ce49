package storage

import (
	"sync"

	"github.com/nourishsa/geo-matching/internal/models"
)

// CandidateStore lists the match pools. Coarse status filtering (available
// donations, open tasks, active hubs) is the store's job; geo filtering and
// scoring stay in the engine.
type CandidateStore interface {
	ListDonations() ([]models.Donation, error)
	ListTasks() ([]models.Task, error)
	ListHubs() ([]models.Hub, error)
}

// MatchStore persists match records.
type MatchStore interface {
	SaveMatch(m *models.Match) error
	UpdateMatch(m *models.Match) error
}

// Store is the full persistence surface the service needs.
type Store interface {
	CandidateStore
	MatchStore
}

// MemoryStore backs local runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	donations map[string]models.Donation
	tasks     map[string]models.Task
	hubs      map[string]models.Hub
	matches   map[string]*models.Match
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		donations: make(map[string]models.Donation),
		tasks:     make(map[string]models.Task),
		hubs:      make(map[string]models.Hub),
		matches:   make(map[string]*models.Match),
	}
}

func (m *MemoryStore) AddDonation(d models.Donation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donations[d.ID] = d
}

func (m *MemoryStore) AddTask(t models.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
}

func (m *MemoryStore) AddHub(h models.Hub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hubs[h.ID] = h
}

func (m *MemoryStore) ListDonations() ([]models.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Donation, 0, len(m.donations))
	for _, d := range m.donations {
		out = append(out, d)
	}
	return out, nil
}

func (m *MemoryStore) ListTasks() ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (m *MemoryStore) ListHubs() ([]models.Hub, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Hub, 0, len(m.hubs))
	for _, h := range m.hubs {
		out = append(out, h)
	}
	return out, nil
}

func (m *MemoryStore) SaveMatch(r *models.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[r.ID] = r
	return nil
}

func (m *MemoryStore) UpdateMatch(r *models.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[r.ID] = r
	return nil
}

func (m *MemoryStore) GetMatch(id string) (*models.Match, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.matches[id]
	return r, ok
}
