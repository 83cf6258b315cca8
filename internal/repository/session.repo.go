package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"signature-service/internal/domain"
	xerrors "signature-service/pkg/xerrors"
)

// SessionRepository persists signature sessions. Status changes go through
// CompareAndSetStatus so no two transitions interleave for one session, and
// CreateActive carries the one-active-session-per-workstation invariant
// (partial unique index on workstation_id over non-terminal statuses).
type SessionRepository interface {
	CreateActive(ctx context.Context, s *domain.SignatureSession) error
	FindByID(ctx context.Context, id string) (*domain.SignatureSession, error)
	CompareAndSetStatus(ctx context.Context, id, from, to string) (bool, error)
	MarkCompleted(ctx context.Context, id, artifactRef string, signedAt time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id, reason, cancelledBy string) (bool, error)
	MarkError(ctx context.Context, id, from, details string) (bool, error)
}

type SessionRepo struct {
	db *pgxpool.Pool
}

func NewSessionRepo(db *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `id, company_id, workstation_id, tablet_id, created_by, customer_name,
	COALESCE(vehicle_info,''), status, created_at, expires_at, signed_at,
	COALESCE(artifact_ref,''), COALESCE(cancel_reason,''), COALESCE(cancelled_by,''), COALESCE(error_details,'')`

// CreateActive inserts a session in PENDING. The partial unique index
// sig_sessions_one_active_per_workstation rejects a second non-terminal
// session for the same workstation; that violation maps to ErrWorkstationBusy.
func (r *SessionRepo) CreateActive(ctx context.Context, s *domain.SignatureSession) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO signature_sessions
			(id, company_id, workstation_id, tablet_id, created_by, customer_name, vehicle_info, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, s.ID, s.CompanyID, s.WorkstationID, s.TabletID, s.CreatedBy, s.CustomerName, s.VehicleInfo, s.Status, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		if xerrors.ParsePGErrorCode(err) == "23505" {
			return xerrors.ErrWorkstationBusy
		}
		return err
	}
	return nil
}

func (r *SessionRepo) FindByID(ctx context.Context, id string) (*domain.SignatureSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM signature_sessions WHERE id=$1
	`, id)
	return scanSession(row)
}

// CompareAndSetStatus applies one transition atomically. Returns false when
// the session is no longer in the expected status (a concurrent transition
// or terminal state won).
func (r *SessionRepo) CompareAndSetStatus(ctx context.Context, id, from, to string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE signature_sessions SET status=$3 WHERE id=$1 AND status=$2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCompleted succeeds only from a signable state, so a submission racing
// a cancel or a second submission loses cleanly.
func (r *SessionRepo) MarkCompleted(ctx context.Context, id, artifactRef string, signedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE signature_sessions
		SET status='COMPLETED', signed_at=$2, artifact_ref=$3
		WHERE id=$1 AND status IN ('SENT_TO_TABLET','VIEWING_DOCUMENT','SIGNING_IN_PROGRESS')
	`, id, signedAt, artifactRef)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SessionRepo) MarkCancelled(ctx context.Context, id, reason, cancelledBy string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE signature_sessions
		SET status='CANCELLED', cancel_reason=$2, cancelled_by=$3
		WHERE id=$1 AND status IN ('PENDING','SENT_TO_TABLET','VIEWING_DOCUMENT','SIGNING_IN_PROGRESS')
	`, id, reason, cancelledBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SessionRepo) MarkError(ctx context.Context, id, from, details string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE signature_sessions
		SET status='ERROR', error_details=$3
		WHERE id=$1 AND status=$2
	`, id, from, details)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanSession(row rowScanner) (*domain.SignatureSession, error) {
	var s domain.SignatureSession
	err := row.Scan(&s.ID, &s.CompanyID, &s.WorkstationID, &s.TabletID, &s.CreatedBy, &s.CustomerName,
		&s.VehicleInfo, &s.Status, &s.CreatedAt, &s.ExpiresAt, &s.SignedAt,
		&s.ArtifactRef, &s.CancelReason, &s.CancelledBy, &s.ErrorDetails)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
