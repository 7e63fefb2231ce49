package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nourishsa/geo-matching/internal/models"
)

// PushDispatcher delivers offers to the notification gateway (the service
// that fans out to WhatsApp/push). It tries an open websocket session first
// and falls back to POSTing the offer to the gateway endpoint.
type PushDispatcher struct {
	Endpoint string
	Key      string
	Client   *http.Client
	WS       *WSRegistry
}

func NewPushDispatcher(endpoint, key string, ws *WSRegistry) *PushDispatcher {
	return &PushDispatcher{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}, WS: ws}
}

func (p *PushDispatcher) Offer(matchID string, offer models.MatchOffer) error {
	// sessions are keyed by the requesting user's id, not the matched
	// candidate's
	if p.WS != nil && offer.RequesterID != "" {
		if err := p.WS.Offer(offer.RequesterID, offer); err == nil {
			return nil
		}
	}
	if p.Endpoint == "" {
		return ErrNoSession
	}
	body := map[string]interface{}{"match_id": matchID, "offer": offer}
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, p.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Key != "" {
		req.Header.Set("Authorization", "Bearer "+p.Key)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
