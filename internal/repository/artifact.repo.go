package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	xerrors "signature-service/pkg/xerrors"
)

// ArtifactRepository is the durable fallback behind the artifact cache.
// The cache may evict at any time; this row survives until an external
// retention policy removes it.
type ArtifactRepository interface {
	Save(ctx context.Context, sessionID string, imageBytes []byte, storedAt time.Time) error
	FindBySessionID(ctx context.Context, sessionID string) ([]byte, error)
}

type ArtifactRepo struct {
	db *pgxpool.Pool
}

func NewArtifactRepo(db *pgxpool.Pool) *ArtifactRepo {
	return &ArtifactRepo{db: db}
}

func (r *ArtifactRepo) Save(ctx context.Context, sessionID string, imageBytes []byte, storedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO signature_artifacts (session_id, image_bytes, stored_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (session_id) DO NOTHING
	`, sessionID, imageBytes, storedAt)
	return err
}

func (r *ArtifactRepo) FindBySessionID(ctx context.Context, sessionID string) ([]byte, error) {
	var b []byte
	err := r.db.QueryRow(ctx, `
		SELECT image_bytes FROM signature_artifacts WHERE session_id=$1
	`, sessionID).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
