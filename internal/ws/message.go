package ws

import "encoding/json"

// Transport message kinds (server ⇄ tablet)
const (
	MsgConnected        = "CONNECTED"
	MsgSignatureRequest = "SIGNATURE_REQUEST"
	MsgSignatureSubmit  = "SIGNATURE_SUBMIT"
	MsgSubmitAck        = "SIGNATURE_SUBMIT_ACK"
	MsgSessionProgress  = "SESSION_PROGRESS"
	MsgSessionCancelled = "SESSION_CANCELLED"
	MsgTestPing         = "TEST_PING"
	MsgTestAck          = "TEST_ACK"
	MsgError            = "error"
)

// Message is the envelope for every frame on the tablet socket.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// SignatureRequestPayload is pushed server→tablet when a session is created.
type SignatureRequestPayload struct {
	SessionID    string `json:"session_id"`
	CustomerName string `json:"customer_name"`
	VehicleInfo  string `json:"vehicle_info,omitempty"`
	Instructions string `json:"instructions"`
	ExpiresAt    string `json:"expires_at"`
}

// SignatureSubmitPayload arrives tablet→server with the captured signature.
type SignatureSubmitPayload struct {
	SessionID      string `json:"session_id"`
	SignatureImage string `json:"signature_image"` // base64 data-url
	SignedAt       string `json:"signed_at"`
}

// SessionProgressPayload reports VIEWING_DOCUMENT / SIGNING_IN_PROGRESS.
type SessionProgressPayload struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type SessionCancelledPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
}

type TestPingPayload struct {
	ProbeID string `json:"probe_id"`
}
