package usecase

import (
	"context"
	"log"

	"signature-service/internal/domain"
	"signature-service/internal/repository"
	"signature-service/pkg/id"
	xerrors "signature-service/pkg/xerrors"
)

// DeviceUsecase covers tablet lifecycle outside of pairing: listing,
// presence, transport authentication, revocation and unpairing.
type DeviceUsecase struct {
	devices  repository.DeviceRepository
	registry ConnectionRegistry
}

func NewDeviceUsecase(devices repository.DeviceRepository, registry ConnectionRegistry) *DeviceUsecase {
	return &DeviceUsecase{devices: devices, registry: registry}
}

// TabletWithPresence joins the durable device row with live hub presence.
type TabletWithPresence struct {
	domain.TabletDevice
	Online bool `json:"online"`
}

func (u *DeviceUsecase) ListTablets(ctx context.Context, companyID string) ([]TabletWithPresence, error) {
	devices, err := u.devices.ListForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	out := make([]TabletWithPresence, 0, len(devices))
	for _, d := range devices {
		out = append(out, TabletWithPresence{
			TabletDevice: d,
			Online:       u.registry.IsOnline(d.ID),
		})
	}
	return out, nil
}

// ListOnline returns the company's currently connected tablet ids. The hub
// itself is tenant-agnostic, so this joins against the registry.
func (u *DeviceUsecase) ListOnline(ctx context.Context, companyID string) ([]string, error) {
	devices, err := u.devices.ListForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	online := make([]string, 0, len(devices))
	for _, d := range devices {
		if u.registry.IsOnline(d.ID) {
			online = append(online, d.ID)
		}
	}
	return online, nil
}

// GetTablet is company-scoped; a tablet owned by another tenant is an
// access violation, never silently someone else's data.
func (u *DeviceUsecase) GetTablet(ctx context.Context, companyID, tabletID string) (*domain.TabletDevice, error) {
	device, err := u.devices.FindByID(ctx, tabletID)
	if err != nil {
		return nil, err
	}
	if device.CompanyID != companyID {
		return nil, xerrors.ErrAccessDenied
	}
	return device, nil
}

// Revoke marks the tablet REVOKED and drops its live connection. The row
// stays for audit; only Unpair deletes it.
func (u *DeviceUsecase) Revoke(ctx context.Context, companyID, tabletID string) error {
	if _, err := u.GetTablet(ctx, companyID, tabletID); err != nil {
		return err
	}
	if err := u.devices.UpdateStatus(ctx, tabletID, domain.DeviceRevoked); err != nil {
		return err
	}
	u.registry.Kick(tabletID)
	log.Printf("[DEVICE] tablet %s revoked", tabletID)
	return nil
}

func (u *DeviceUsecase) Unpair(ctx context.Context, companyID, tabletID string) error {
	if _, err := u.GetTablet(ctx, companyID, tabletID); err != nil {
		return err
	}
	if err := u.devices.Delete(ctx, tabletID); err != nil {
		return err
	}
	u.registry.Kick(tabletID)
	log.Printf("[DEVICE] tablet %s unpaired", tabletID)
	return nil
}

// AuthenticateToken resolves an inbound transport connection to its device.
func (u *DeviceUsecase) AuthenticateToken(ctx context.Context, token string) (*domain.TabletDevice, error) {
	if token == "" {
		return nil, xerrors.ErrInvalidToken
	}
	device, err := u.devices.FindByTokenHash(ctx, id.HashToken(token))
	if err != nil {
		return nil, xerrors.ErrInvalidToken
	}
	if device.Status == domain.DeviceRevoked {
		return nil, xerrors.ErrDeviceRevoked
	}
	return device, nil
}

// HandleConnect flips the device back to ACTIVE and stamps last-seen.
func (u *DeviceUsecase) HandleConnect(ctx context.Context, tabletID string) {
	if err := u.devices.UpdateStatus(ctx, tabletID, domain.DeviceActive); err != nil {
		log.Printf("[DEVICE] connect status update failed for %s: %v", tabletID, err)
	}
	if err := u.devices.TouchLastSeen(ctx, tabletID); err != nil {
		log.Printf("[DEVICE] touch last seen failed for %s: %v", tabletID, err)
	}
}

// HandleDisconnect records the drop; the row survives, only status changes.
func (u *DeviceUsecase) HandleDisconnect(ctx context.Context, tabletID string) {
	if err := u.devices.UpdateStatus(ctx, tabletID, domain.DeviceDisconnected); err != nil {
		log.Printf("[DEVICE] disconnect status update failed for %s: %v", tabletID, err)
	}
	if err := u.devices.TouchLastSeen(ctx, tabletID); err != nil {
		log.Printf("[DEVICE] touch last seen failed for %s: %v", tabletID, err)
	}
}

// TouchLastSeen is called on transport heartbeats.
func (u *DeviceUsecase) TouchLastSeen(ctx context.Context, tabletID string) {
	if err := u.devices.TouchLastSeen(ctx, tabletID); err != nil {
		log.Printf("[DEVICE] touch last seen failed for %s: %v", tabletID, err)
	}
}
