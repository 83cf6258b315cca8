package xerrors

import "errors"
import "github.com/jackc/pgx/v5/pgconn"

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
)

// Pairing
var (
	ErrInvalidOrExpiredCode = errors.New("invalid or expired pairing code")
	ErrDeviceNameRequired   = errors.New("device name required")
)

// Devices
var (
	ErrDeviceNotFound = errors.New("tablet device not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrDeviceRevoked  = errors.New("tablet device revoked")
	ErrInvalidToken   = errors.New("invalid device token")
)

// Signature sessions
var (
	ErrWorkstationBusy         = errors.New("workstation already has an active signature session")
	ErrSessionNotFound         = errors.New("signature session not found")
	ErrSessionNotSignable      = errors.New("signature session not signable")
	ErrSessionNotCancellable   = errors.New("signature session not cancellable")
	ErrInvalidSignaturePayload = errors.New("invalid signature payload")
	ErrTabletOffline           = errors.New("tablet not connected")
	ErrInvalidTimeout          = errors.New("timeout minutes out of range")
)

// Artifact store
var (
	ErrArtifactNotFound = errors.New("signature artifact not found")
)
