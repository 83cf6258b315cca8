package domain

import "time"

// PairingCode binds a not-yet-registered tablet to a company/workstation
// for the duration of its TTL. Lives only in redis; consumed exactly once.
type PairingCode struct {
	Code          string    `json:"code"`
	CompanyID     string    `json:"company_id"`
	WorkstationID string    `json:"workstation_id"`
	IssuedAt      time.Time `json:"issued_at"`
}
