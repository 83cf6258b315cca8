package pairing

import (
	"context"
	"log"
	"strings"
	"time"

	"signature-service/internal/domain"
	"signature-service/internal/repository"
	"signature-service/pkg/id"
	xerrors "signature-service/pkg/xerrors"
)

const (
	codeLength = 8
	// Code TTL is fixed system-wide; the workstation UI shows a countdown
	// from the expires_in it gets back.
	CodeTTL = 5 * time.Minute
)

// Service issues and redeems pairing codes. A redeemed code creates the
// tablet's durable identity in the device registry.
//
// Redemption deletes the code (atomic consume), so IsActive reports false
// for both "redeemed" and "expired"; the workstation tells them apart by
// the new device appearing in its tablet list.
type Service struct {
	codes             CodeStore
	devices           repository.DeviceRepository
	transportEndpoint string
}

func NewService(codes CodeStore, devices repository.DeviceRepository, transportEndpoint string) *Service {
	return &Service{
		codes:             codes,
		devices:           devices,
		transportEndpoint: transportEndpoint,
	}
}

type IssuedCode struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

func (s *Service) Issue(ctx context.Context, companyID, workstationID string) (*IssuedCode, error) {
	pc := &domain.PairingCode{
		Code:          id.GeneratePairingCode(codeLength),
		CompanyID:     companyID,
		WorkstationID: workstationID,
		IssuedAt:      time.Now().UTC(),
	}
	if err := s.codes.Put(ctx, pc, CodeTTL); err != nil {
		return nil, err
	}

	log.Printf("[PAIRING] issued code for company=%s workstation=%s ttl=%s", companyID, workstationID, CodeTTL)
	return &IssuedCode{Code: pc.Code, ExpiresIn: int(CodeTTL.Seconds())}, nil
}

// Redeem consumes the code and registers the tablet. Exactly one of two
// concurrent redemptions wins; the loser gets ErrInvalidOrExpiredCode.
func (s *Service) Redeem(ctx context.Context, code, deviceName string) (*domain.TabletCredentials, error) {
	deviceName = strings.TrimSpace(deviceName)
	if deviceName == "" {
		return nil, xerrors.ErrDeviceNameRequired
	}

	pc, err := s.codes.Consume(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}

	token := id.GenerateDeviceToken()
	now := time.Now().UTC()
	device := &domain.TabletDevice{
		ID:            id.GenerateUUID("tab"),
		CompanyID:     pc.CompanyID,
		WorkstationID: pc.WorkstationID,
		TokenHash:     id.HashToken(token),
		FriendlyName:  deviceName,
		Status:        domain.DeviceActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, err
	}

	log.Printf("[PAIRING] tablet %s paired to company=%s workstation=%s", device.ID, pc.CompanyID, pc.WorkstationID)
	return &domain.TabletCredentials{
		DeviceID:          device.ID,
		DeviceToken:       token,
		TransportEndpoint: s.transportEndpoint,
	}, nil
}

// IsActive is the non-consuming poll used by the workstation UI. It never
// extends the TTL.
func (s *Service) IsActive(ctx context.Context, code string) (bool, error) {
	return s.codes.Exists(ctx, normalizeCode(code))
}

type CodeStatus struct {
	Active    bool `json:"active"`
	ExpiresIn int  `json:"expires_in,omitempty"` // seconds remaining
}

// Status adds the remaining lifetime to the poll so the workstation can show
// a countdown without tracking the issue time itself.
func (s *Service) Status(ctx context.Context, code string) (*CodeStatus, error) {
	ttl, err := s.codes.TTL(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return &CodeStatus{Active: false}, nil
	}
	return &CodeStatus{Active: true, ExpiresIn: int(ttl.Seconds())}, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
