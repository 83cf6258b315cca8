package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"signature-service/internal/domain"
	xerrors "signature-service/pkg/xerrors"
)

// DeviceRepository is the durable registry of paired tablets.
type DeviceRepository interface {
	Create(ctx context.Context, d *domain.TabletDevice) error
	FindByID(ctx context.Context, id string) (*domain.TabletDevice, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.TabletDevice, error)
	ListForCompany(ctx context.Context, companyID string) ([]domain.TabletDevice, error)
	UpdateStatus(ctx context.Context, id, status string) error
	TouchLastSeen(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type DeviceRepo struct {
	db *pgxpool.Pool
}

func NewDeviceRepo(db *pgxpool.Pool) *DeviceRepo {
	return &DeviceRepo{db: db}
}

const deviceColumns = `id, company_id, workstation_id, token_hash, friendly_name, status, last_seen_at, created_at, updated_at`

func (r *DeviceRepo) Create(ctx context.Context, d *domain.TabletDevice) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tablet_devices (id, company_id, workstation_id, token_hash, friendly_name, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, d.ID, d.CompanyID, d.WorkstationID, d.TokenHash, d.FriendlyName, d.Status, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *DeviceRepo) FindByID(ctx context.Context, id string) (*domain.TabletDevice, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+deviceColumns+` FROM tablet_devices WHERE id=$1
	`, id)
	return scanDevice(row)
}

func (r *DeviceRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.TabletDevice, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+deviceColumns+` FROM tablet_devices WHERE token_hash=$1
	`, tokenHash)
	return scanDevice(row)
}

func (r *DeviceRepo) ListForCompany(ctx context.Context, companyID string) ([]domain.TabletDevice, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+deviceColumns+` FROM tablet_devices
		WHERE company_id=$1
		ORDER BY created_at DESC
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TabletDevice
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateStatus flips ACTIVE/DISCONNECTED on connect/disconnect and sets
// REVOKED on revoke. A revoked device never leaves REVOKED through this path.
func (r *DeviceRepo) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tablet_devices
		SET status=$2, updated_at=NOW()
		WHERE id=$1 AND (status != 'REVOKED' OR $2 = 'REVOKED')
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepo) TouchLastSeen(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE tablet_devices SET last_seen_at=NOW(), updated_at=NOW() WHERE id=$1
	`, id)
	return err
}

func (r *DeviceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tablet_devices WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrDeviceNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*domain.TabletDevice, error) {
	var d domain.TabletDevice
	var workstationID *string
	err := row.Scan(&d.ID, &d.CompanyID, &workstationID, &d.TokenHash, &d.FriendlyName, &d.Status, &d.LastSeenAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	if workstationID != nil {
		d.WorkstationID = *workstationID
	}
	return &d, nil
}
