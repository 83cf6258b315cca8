package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const signatureEventsChannel = "signature_events"

// Workstation-facing session event types
const (
	EventSessionCompleted = "session.completed"
	EventSessionCancelled = "session.cancelled"
	EventSessionError     = "session.error"
)

// SessionEvent notifies the originating workstation about a session outcome.
// Delivery is best effort; the session state is already committed when one
// of these goes out.
type SessionEvent struct {
	EventID       string      `json:"event_id"`
	Type          string      `json:"type"`
	CompanyID     string      `json:"company_id"`
	WorkstationID string      `json:"workstation_id"`
	SessionID     string      `json:"session_id"`
	Data          interface{} `json:"data,omitempty"`
	OccurredAt    string      `json:"occurred_at"`
}

type SessionEventPublisher struct {
	rdb *redis.Client
}

func NewSessionEventPublisher(rdb *redis.Client) *SessionEventPublisher {
	return &SessionEventPublisher{rdb: rdb}
}

func (p *SessionEventPublisher) Publish(ctx context.Context, eventType, companyID, workstationID, sessionID string, data interface{}) error {
	event := SessionEvent{
		EventID:       uuid.New().String(),
		Type:          eventType,
		CompanyID:     companyID,
		WorkstationID: workstationID,
		SessionID:     sessionID,
		Data:          data,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.rdb.Publish(ctx, signatureEventsChannel, payload).Err(); err != nil {
		log.Printf("[WARN] failed to publish %s for session %s: %v", eventType, sessionID, err)
		return err
	}
	return nil
}
