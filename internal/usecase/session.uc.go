package usecase

import (
	"context"
	"log"
	"time"

	"signature-service/internal/domain"
	"signature-service/internal/repository"
	"signature-service/internal/service/artifact"
	"signature-service/internal/ws"
	"signature-service/pkg/id"
	xerrors "signature-service/pkg/xerrors"
)

const (
	defaultTimeoutMinutes = 10
	maxTimeoutMinutes     = 30
)

// ConnectionRegistry is the slice of the ws hub the usecases need.
type ConnectionRegistry interface {
	IsOnline(tabletID string) bool
	Send(tabletID, kind string, data interface{}) bool
	Kick(tabletID string) bool
}

// EventPublisher notifies the originating workstation, best effort.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, companyID, workstationID, sessionID string, data interface{}) error
}

// SessionUsecase owns the signature session state machine: creation,
// dispatch, submission, cancellation and lazy expiry. All transitions go
// through the repository's compare-and-set updates, so they are totally
// ordered per session.
type SessionUsecase struct {
	sessions  repository.SessionRepository
	devices   repository.DeviceRepository
	artifacts artifact.Store
	registry  ConnectionRegistry
	events    EventPublisher
	sf        *id.Snowflake

	minImageBytes int
	maxImageBytes int

	now func() time.Time
}

func NewSessionUsecase(
	sessions repository.SessionRepository,
	devices repository.DeviceRepository,
	artifacts artifact.Store,
	registry ConnectionRegistry,
	events EventPublisher,
	sf *id.Snowflake,
	minImageBytes, maxImageBytes int,
) *SessionUsecase {
	return &SessionUsecase{
		sessions:      sessions,
		devices:       devices,
		artifacts:     artifacts,
		registry:      registry,
		events:        events,
		sf:            sf,
		minImageBytes: minImageBytes,
		maxImageBytes: maxImageBytes,
		now:           time.Now,
	}
}

// CreateSession creates a session for the workstation and dispatches the
// signature request to the tablet. The workstation may hold at most one
// non-terminal session; the repository enforces that atomically. A dispatch
// failure is surfaced as ErrTabletOffline with the session left in ERROR,
// never as a dangling PENDING row.
func (u *SessionUsecase) CreateSession(ctx context.Context, companyID, userID, workstationID, tabletID, customerName, vehicleInfo string, timeoutMinutes int) (*domain.SignatureSession, error) {
	if timeoutMinutes == 0 {
		timeoutMinutes = defaultTimeoutMinutes
	}
	if timeoutMinutes < 1 || timeoutMinutes > maxTimeoutMinutes {
		return nil, xerrors.ErrInvalidTimeout
	}

	device, err := u.devices.FindByID(ctx, tabletID)
	if err != nil {
		return nil, err
	}
	if device.CompanyID != companyID {
		return nil, xerrors.ErrAccessDenied
	}
	if device.Status == domain.DeviceRevoked {
		return nil, xerrors.ErrDeviceRevoked
	}
	if device.Status != domain.DeviceActive {
		// DISCONNECTED tablets are rejected before any row is written;
		// no point parking a session on a device that cannot receive it.
		return nil, xerrors.ErrTabletOffline
	}

	now := u.now().UTC()
	session := &domain.SignatureSession{
		ID:            id.GenerateUUID("sess"),
		CompanyID:     companyID,
		WorkstationID: workstationID,
		TabletID:      tabletID,
		CreatedBy:     userID,
		CustomerName:  customerName,
		VehicleInfo:   vehicleInfo,
		Status:        domain.SessionPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(timeoutMinutes) * time.Minute),
	}
	if err := u.sessions.CreateActive(ctx, session); err != nil {
		return nil, err
	}

	delivered := u.registry.Send(tabletID, ws.MsgSignatureRequest, ws.SignatureRequestPayload{
		SessionID:    session.ID,
		CustomerName: customerName,
		VehicleInfo:  vehicleInfo,
		Instructions: "Please review the document and sign in the field below.",
		ExpiresAt:    session.ExpiresAt.Format(time.RFC3339),
	})
	if !delivered {
		if _, err := u.sessions.MarkError(ctx, session.ID, domain.SessionPending, "tablet not connected"); err != nil {
			log.Printf("[SESSION] failed to mark %s as ERROR: %v", session.ID, err)
		}
		u.notify(ctx, ws.EventSessionError, session, map[string]string{"error": "tablet not connected"})
		return nil, xerrors.ErrTabletOffline
	}

	if ok, err := u.sessions.CompareAndSetStatus(ctx, session.ID, domain.SessionPending, domain.SessionSent); err != nil {
		return nil, err
	} else if ok {
		session.Status = domain.SessionSent
	}

	log.Printf("[SESSION] %s created for workstation=%s tablet=%s expires=%s",
		session.ID, workstationID, tabletID, session.ExpiresAt.Format(time.RFC3339))
	return session, nil
}

// GetStatus returns the session after reconciling expiry, so a caller never
// observes a non-terminal status past expires_at.
func (u *SessionUsecase) GetStatus(ctx context.Context, companyID, sessionID string) (*domain.SignatureSession, error) {
	session, err := u.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CompanyID != companyID {
		return nil, xerrors.ErrAccessDenied
	}
	return u.reconcileExpiry(ctx, session)
}

// SubmitSignature validates and stores the signature, completing the
// session. A submission for a terminal or unknown session fails with
// ErrSessionNotSignable and never touches the stored artifact.
func (u *SessionUsecase) SubmitSignature(ctx context.Context, deviceID, sessionID, imageDataURL string, signedAt time.Time) (*domain.SignatureSession, error) {
	session, err := u.sessions.FindByID(ctx, sessionID)
	if err != nil {
		// Unknown session is indistinguishable from a purged one; the
		// tablet gets the same answer either way.
		return nil, xerrors.ErrSessionNotSignable
	}
	if session.TabletID != deviceID {
		return nil, xerrors.ErrAccessDenied
	}

	session, err = u.reconcileExpiry(ctx, session)
	if err != nil {
		return nil, err
	}
	if !domain.IsSignableStatus(session.Status) {
		return nil, xerrors.ErrSessionNotSignable
	}

	imageBytes, err := decodeSignatureImage(imageDataURL, u.minImageBytes, u.maxImageBytes)
	if err != nil {
		return nil, err
	}

	if signedAt.IsZero() {
		signedAt = u.now().UTC()
	}
	ref := u.sf.Generate()

	// The completion CAS is the gate: only its winner may touch the
	// artifact store, so a duplicate submission racing in over the other
	// transport can never mutate a terminal session's blob.
	completed, err := u.sessions.MarkCompleted(ctx, sessionID, ref, signedAt)
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, xerrors.ErrSessionNotSignable
	}

	if err := u.artifacts.Store(ctx, sessionID, imageBytes); err != nil {
		// The completion committed but its artifact did not; surface the
		// session as failed rather than completed-with-nothing-to-download.
		if _, markErr := u.sessions.MarkError(ctx, sessionID, domain.SessionCompleted, "artifact store failed"); markErr != nil {
			log.Printf("[SESSION] failed to mark %s as ERROR after store failure: %v", sessionID, markErr)
		}
		u.notify(ctx, ws.EventSessionError, session, map[string]string{"error": "artifact store failed"})
		return nil, err
	}

	session.Status = domain.SessionCompleted
	session.SignedAt = &signedAt
	session.ArtifactRef = ref

	u.notify(ctx, ws.EventSessionCompleted, session, map[string]string{
		"signed_at": signedAt.Format(time.RFC3339),
	})

	log.Printf("[SESSION] %s completed (%d bytes)", sessionID, len(imageBytes))
	return session, nil
}

// CancelSession transitions a non-terminal session to CANCELLED and tells
// the tablet to stop showing the request. Cancellation is cooperative: an
// in-flight submission is not interrupted, but one arriving afterwards is
// rejected.
func (u *SessionUsecase) CancelSession(ctx context.Context, companyID, userID, sessionID, reason string) error {
	session, err := u.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.CompanyID != companyID {
		return xerrors.ErrAccessDenied
	}

	session, err = u.reconcileExpiry(ctx, session)
	if err != nil {
		return err
	}
	if domain.IsTerminalStatus(session.Status) {
		return xerrors.ErrSessionNotCancellable
	}

	cancelled, err := u.sessions.MarkCancelled(ctx, sessionID, reason, userID)
	if err != nil {
		return err
	}
	if !cancelled {
		return xerrors.ErrSessionNotCancellable
	}

	u.registry.Send(session.TabletID, ws.MsgSessionCancelled, ws.SessionCancelledPayload{
		SessionID: sessionID,
		Reason:    reason,
	})
	session.Status = domain.SessionCancelled
	u.notify(ctx, ws.EventSessionCancelled, session, map[string]string{"reason": reason})

	log.Printf("[SESSION] %s cancelled by %s", sessionID, userID)
	return nil
}

// MarkProgress applies a tablet-reported VIEWING_DOCUMENT or
// SIGNING_IN_PROGRESS transition.
func (u *SessionUsecase) MarkProgress(ctx context.Context, deviceID, sessionID, status string) error {
	if status != domain.SessionViewing && status != domain.SessionSigning {
		return xerrors.ErrInvalidRequest
	}

	session, err := u.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.TabletID != deviceID {
		return xerrors.ErrAccessDenied
	}

	session, err = u.reconcileExpiry(ctx, session)
	if err != nil {
		return err
	}
	if !domain.CanTransition(session.Status, status) {
		return xerrors.ErrSessionNotSignable
	}

	ok, err := u.sessions.CompareAndSetStatus(ctx, sessionID, session.Status, status)
	if err != nil {
		return err
	}
	if !ok {
		// A cancel or expiry won the race between our read and the write.
		return xerrors.ErrSessionNotSignable
	}
	return nil
}

// TestTablet pushes a synthetic probe through the live connection. No
// session is created or persisted.
func (u *SessionUsecase) TestTablet(ctx context.Context, companyID, tabletID string) (bool, error) {
	device, err := u.devices.FindByID(ctx, tabletID)
	if err != nil {
		return false, err
	}
	if device.CompanyID != companyID {
		return false, xerrors.ErrAccessDenied
	}

	delivered := u.registry.Send(tabletID, ws.MsgTestPing, ws.TestPingPayload{
		ProbeID: id.GenerateUUID("probe"),
	})
	return delivered, nil
}

// reconcileExpiry lazily transitions an overdue non-terminal session to
// EXPIRED. Applied on every read path (status, submit, cancel, progress) so
// staleness is never observable.
func (u *SessionUsecase) reconcileExpiry(ctx context.Context, session *domain.SignatureSession) (*domain.SignatureSession, error) {
	if !session.IsExpired(u.now().UTC()) {
		return session, nil
	}

	ok, err := u.sessions.CompareAndSetStatus(ctx, session.ID, session.Status, domain.SessionExpired)
	if err != nil {
		return nil, err
	}
	if ok {
		session.Status = domain.SessionExpired
		return session, nil
	}
	// Lost the race; whatever transition won is authoritative.
	return u.sessions.FindByID(ctx, session.ID)
}

func (u *SessionUsecase) notify(ctx context.Context, eventType string, session *domain.SignatureSession, data interface{}) {
	if err := u.events.Publish(ctx, eventType, session.CompanyID, session.WorkstationID, session.ID, data); err != nil {
		log.Printf("[SESSION] workstation notification %s for %s failed: %v", eventType, session.ID, err)
	}
}
