package domain

import "time"

// Signature session statuses
const (
	SessionPending   = "PENDING"
	SessionSent      = "SENT_TO_TABLET"
	SessionViewing   = "VIEWING_DOCUMENT"
	SessionSigning   = "SIGNING_IN_PROGRESS"
	SessionCompleted = "COMPLETED"
	SessionCancelled = "CANCELLED"
	SessionExpired   = "EXPIRED"
	SessionError     = "ERROR"
)

type SignatureSession struct {
	ID            string     `json:"id"`
	CompanyID     string     `json:"company_id"`
	WorkstationID string     `json:"workstation_id"`
	TabletID      string     `json:"tablet_id"`
	CreatedBy     string     `json:"created_by"`
	CustomerName  string     `json:"customer_name"`
	VehicleInfo   string     `json:"vehicle_info,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	ArtifactRef   string     `json:"artifact_ref,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	CancelledBy   string     `json:"cancelled_by,omitempty"`
	ErrorDetails  string     `json:"error_details,omitempty"`
}

// sessionTransitions enumerates every legal status change. Anything not
// listed is rejected; terminal states have no outgoing edges.
var sessionTransitions = map[string][]string{
	SessionPending: {SessionSent, SessionCancelled, SessionExpired, SessionError},
	SessionSent:    {SessionViewing, SessionSigning, SessionCompleted, SessionCancelled, SessionExpired, SessionError},
	SessionViewing: {SessionSigning, SessionCompleted, SessionCancelled, SessionExpired, SessionError},
	SessionSigning: {SessionCompleted, SessionCancelled, SessionExpired, SessionError},
}

func CanTransition(from, to string) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminalStatus(status string) bool {
	switch status {
	case SessionCompleted, SessionCancelled, SessionExpired, SessionError:
		return true
	}
	return false
}

// IsSignableStatus reports whether a submission may complete the session.
// Expiry is checked separately against ExpiresAt.
func IsSignableStatus(status string) bool {
	switch status {
	case SessionSent, SessionViewing, SessionSigning:
		return true
	}
	return false
}

func (s *SignatureSession) IsExpired(now time.Time) bool {
	return !IsTerminalStatus(s.Status) && !now.Before(s.ExpiresAt)
}
