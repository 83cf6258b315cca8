package pairing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-service/internal/domain"
	xerrors "signature-service/pkg/xerrors"
)

// memoryCodeStore mirrors the redis store's semantics for tests: TTL
// enforced on read, atomic consume under a mutex.
type memoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]memoryEntry
}

type memoryEntry struct {
	pc        domain.PairingCode
	expiresAt time.Time
}

func newMemoryCodeStore() *memoryCodeStore {
	return &memoryCodeStore{codes: make(map[string]memoryEntry)}
}

func (s *memoryCodeStore) Put(ctx context.Context, pc *domain.PairingCode, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[pc.Code] = memoryEntry{pc: *pc, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memoryCodeStore) Consume(ctx context.Context, code string) (*domain.PairingCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.codes[code]
	if !ok || time.Now().After(e.expiresAt) {
		delete(s.codes, code)
		return nil, xerrors.ErrInvalidOrExpiredCode
	}
	delete(s.codes, code)
	pc := e.pc
	return &pc, nil
}

func (s *memoryCodeStore) Exists(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.codes[code]
	if ok && time.Now().After(e.expiresAt) {
		delete(s.codes, code)
		return false, nil
	}
	return ok, nil
}

func (s *memoryCodeStore) TTL(ctx context.Context, code string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.codes[code]
	if !ok {
		return -2 * time.Second, nil // redis convention for a missing key
	}
	return time.Until(e.expiresAt), nil
}

// memoryDeviceRepo implements just enough of the device registry for
// pairing tests.
type memoryDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]domain.TabletDevice
}

func newMemoryDeviceRepo() *memoryDeviceRepo {
	return &memoryDeviceRepo{devices: make(map[string]domain.TabletDevice)}
}

func (r *memoryDeviceRepo) Create(ctx context.Context, d *domain.TabletDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[d.ID] = *d
	return nil
}

func (r *memoryDeviceRepo) FindByID(ctx context.Context, id string) (*domain.TabletDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return nil, xerrors.ErrDeviceNotFound
	}
	return &d, nil
}

func (r *memoryDeviceRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.TabletDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.TokenHash == tokenHash {
			d := d
			return &d, nil
		}
	}
	return nil, xerrors.ErrDeviceNotFound
}

func (r *memoryDeviceRepo) ListForCompany(ctx context.Context, companyID string) ([]domain.TabletDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TabletDevice
	for _, d := range r.devices {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryDeviceRepo) UpdateStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return xerrors.ErrDeviceNotFound
	}
	d.Status = status
	r.devices[id] = d
	return nil
}

func (r *memoryDeviceRepo) TouchLastSeen(ctx context.Context, id string) error { return nil }

func (r *memoryDeviceRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
	return nil
}

func (r *memoryDeviceRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

func newTestService() (*Service, *memoryCodeStore, *memoryDeviceRepo) {
	codes := newMemoryCodeStore()
	devices := newMemoryDeviceRepo()
	return NewService(codes, devices, "wss://sig.example.com/api/v1/tablets/ws"), codes, devices
}

func TestIssueAndRedeem(t *testing.T) {
	ctx := context.Background()
	svc, _, devices := newTestService()

	issued, err := svc.Issue(ctx, "comp_1", "ws_1")
	require.NoError(t, err)
	assert.Len(t, issued.Code, 8)
	assert.Equal(t, int(CodeTTL.Seconds()), issued.ExpiresIn)

	active, err := svc.IsActive(ctx, issued.Code)
	require.NoError(t, err)
	assert.True(t, active)

	creds, err := svc.Redeem(ctx, issued.Code, "Front Desk iPad")
	require.NoError(t, err)
	assert.NotEmpty(t, creds.DeviceID)
	assert.NotEmpty(t, creds.DeviceToken)
	assert.Equal(t, "wss://sig.example.com/api/v1/tablets/ws", creds.TransportEndpoint)

	d, err := devices.FindByID(ctx, creds.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, "comp_1", d.CompanyID)
	assert.Equal(t, "ws_1", d.WorkstationID)
	assert.Equal(t, domain.DeviceActive, d.Status)
	assert.Equal(t, "Front Desk iPad", d.FriendlyName)
	assert.NotEqual(t, creds.DeviceToken, d.TokenHash, "registry must store the hash, not the token")

	// Redemption consumes the code.
	active, err = svc.IsActive(ctx, issued.Code)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = svc.Redeem(ctx, issued.Code, "Second Tablet")
	assert.ErrorIs(t, err, xerrors.ErrInvalidOrExpiredCode)
}

func TestCodeStatusCountdown(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	issued, err := svc.Issue(ctx, "comp_1", "ws_1")
	require.NoError(t, err)

	status, err := svc.Status(ctx, issued.Code)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Greater(t, status.ExpiresIn, 0)
	assert.LessOrEqual(t, status.ExpiresIn, int(CodeTTL.Seconds()))

	status, err = svc.Status(ctx, "NOTACODE")
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.Zero(t, status.ExpiresIn)
}

func TestRedeemNormalizesCode(t *testing.T) {
	ctx := context.Background()
	svc, codes, _ := newTestService()

	require.NoError(t, codes.Put(ctx, &domain.PairingCode{
		Code: "ABCD2345", CompanyID: "comp_1", WorkstationID: "ws_1",
	}, time.Minute))

	_, err := svc.Redeem(ctx, "  abcd2345 ", "Lane 3 Tablet")
	require.NoError(t, err)
}

func TestRedeemRequiresDeviceName(t *testing.T) {
	ctx := context.Background()
	svc, _, devices := newTestService()

	issued, err := svc.Issue(ctx, "comp_1", "ws_1")
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, issued.Code, "   ")
	assert.ErrorIs(t, err, xerrors.ErrDeviceNameRequired)
	assert.Equal(t, 0, devices.count())

	// The name check runs before consumption, so the code survives.
	active, err := svc.IsActive(ctx, issued.Code)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRedeemUnknownCode(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Redeem(context.Background(), "NOTACODE", "Tablet")
	assert.ErrorIs(t, err, xerrors.ErrInvalidOrExpiredCode)
}

func TestExpiredCodeIsInactive(t *testing.T) {
	ctx := context.Background()
	svc, codes, _ := newTestService()

	require.NoError(t, codes.Put(ctx, &domain.PairingCode{
		Code: "EXPD2345", CompanyID: "comp_1", WorkstationID: "ws_1",
	}, -time.Second))

	active, err := svc.IsActive(ctx, "EXPD2345")
	require.NoError(t, err)
	assert.False(t, active)

	_, err = svc.Redeem(ctx, "EXPD2345", "Tablet")
	assert.ErrorIs(t, err, xerrors.ErrInvalidOrExpiredCode)
}

func TestConcurrentRedeemHasOneWinner(t *testing.T) {
	ctx := context.Background()
	svc, _, devices := newTestService()

	issued, err := svc.Issue(ctx, "comp_1", "ws_1")
	require.NoError(t, err)

	const racers = 16
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(ctx, issued.Code, "Racing Tablet")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, xerrors.ErrInvalidOrExpiredCode)
			losses++
		}
	}
	assert.Equal(t, 1, wins, "exactly one redemption must succeed")
	assert.Equal(t, racers-1, losses)
	assert.Equal(t, 1, devices.count())
}

func TestPairingCodeAlphabet(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	for i := 0; i < 20; i++ {
		issued, err := svc.Issue(ctx, "comp_1", "ws_1")
		require.NoError(t, err)
		for _, r := range issued.Code {
			assert.NotContains(t, "0O1I", string(r), "ambiguous characters are excluded")
		}
	}
}
