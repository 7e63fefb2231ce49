package dispatch

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nourishsa/geo-matching/internal/models"
)

// WSSession represents a connected volunteer session
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(offer models.MatchOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(offer)
}

// WSRegistry holds volunteer sessions
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

func (r *WSRegistry) Add(volunteerID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[volunteerID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(volunteerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, volunteerID)
}

func (r *WSRegistry) Offer(volunteerID string, offer models.MatchOffer) error {
	r.mu.RLock()
	s, ok := r.sessions[volunteerID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(offer); err != nil {
		log.Printf("ws send error: %v", err)
		return err
	}
	return nil
}

var ErrNoSession = &NoSessionError{}

type NoSessionError struct{}

func (n *NoSessionError) Error() string { return "no ws session" }
