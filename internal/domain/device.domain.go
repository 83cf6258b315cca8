package domain

import "time"

// Tablet device status
const (
	DeviceActive       = "ACTIVE"
	DeviceRevoked      = "REVOKED"
	DeviceDisconnected = "DISCONNECTED"
)

type TabletDevice struct {
	ID            string     `json:"id"`
	CompanyID     string     `json:"company_id"`
	WorkstationID string     `json:"workstation_id,omitempty"`
	TokenHash     string     `json:"-"`
	FriendlyName  string     `json:"friendly_name"`
	Status        string     `json:"status"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TabletCredentials is returned exactly once, on pairing-code redemption.
// The plaintext token is never stored.
type TabletCredentials struct {
	DeviceID          string `json:"device_id"`
	DeviceToken       string `json:"device_token"`
	TransportEndpoint string `json:"transport_endpoint"`
}
