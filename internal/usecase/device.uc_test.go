package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-service/internal/domain"
	"signature-service/pkg/id"
	xerrors "signature-service/pkg/xerrors"
)

func newDeviceFixture(t *testing.T, onlineTablets ...string) (*DeviceUsecase, *fakeDeviceRepo, *fakeRegistry) {
	t.Helper()
	devices := newFakeDeviceRepo()
	registry := newFakeRegistry(onlineTablets...)
	uc := NewDeviceUsecase(devices, registry)

	require.NoError(t, devices.Create(context.Background(), &domain.TabletDevice{
		ID:           "tab_1",
		CompanyID:    "comp_1",
		TokenHash:    id.HashToken("secret-token"),
		FriendlyName: "Front Desk",
		Status:       domain.DeviceActive,
	}))
	require.NoError(t, devices.Create(context.Background(), &domain.TabletDevice{
		ID:           "tab_2",
		CompanyID:    "comp_1",
		TokenHash:    id.HashToken("other-token"),
		FriendlyName: "Lane 3",
		Status:       domain.DeviceDisconnected,
	}))
	return uc, devices, registry
}

func TestListTabletsWithPresence(t *testing.T) {
	uc, _, _ := newDeviceFixture(t, "tab_1")

	tablets, err := uc.ListTablets(context.Background(), "comp_1")
	require.NoError(t, err)
	require.Len(t, tablets, 2)

	byID := map[string]TabletWithPresence{}
	for _, tab := range tablets {
		byID[tab.ID] = tab
	}
	assert.True(t, byID["tab_1"].Online)
	assert.False(t, byID["tab_2"].Online)

	other, err := uc.ListTablets(context.Background(), "comp_other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestListOnline(t *testing.T) {
	uc, _, registry := newDeviceFixture(t, "tab_1")

	ids, err := uc.ListOnline(context.Background(), "comp_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tab_1"}, ids)

	registry.Kick("tab_1")
	ids, err = uc.ListOnline(context.Background(), "comp_1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = uc.ListOnline(context.Background(), "comp_other")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGetTabletScoping(t *testing.T) {
	uc, _, _ := newDeviceFixture(t)

	d, err := uc.GetTablet(context.Background(), "comp_1", "tab_1")
	require.NoError(t, err)
	assert.Equal(t, "Front Desk", d.FriendlyName)

	_, err = uc.GetTablet(context.Background(), "comp_other", "tab_1")
	assert.ErrorIs(t, err, xerrors.ErrAccessDenied)

	_, err = uc.GetTablet(context.Background(), "comp_1", "tab_missing")
	assert.ErrorIs(t, err, xerrors.ErrDeviceNotFound)
}

func TestAuthenticateToken(t *testing.T) {
	ctx := context.Background()
	uc, devices, _ := newDeviceFixture(t)

	d, err := uc.AuthenticateToken(ctx, "secret-token")
	require.NoError(t, err)
	assert.Equal(t, "tab_1", d.ID)

	_, err = uc.AuthenticateToken(ctx, "")
	assert.ErrorIs(t, err, xerrors.ErrInvalidToken)

	_, err = uc.AuthenticateToken(ctx, "wrong-token")
	assert.ErrorIs(t, err, xerrors.ErrInvalidToken)

	require.NoError(t, devices.UpdateStatus(ctx, "tab_1", domain.DeviceRevoked))
	_, err = uc.AuthenticateToken(ctx, "secret-token")
	assert.ErrorIs(t, err, xerrors.ErrDeviceRevoked)
}

func TestRevokeKicksConnection(t *testing.T) {
	ctx := context.Background()
	uc, devices, registry := newDeviceFixture(t, "tab_1")

	require.NoError(t, uc.Revoke(ctx, "comp_1", "tab_1"))

	d, err := devices.FindByID(ctx, "tab_1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceRevoked, d.Status)
	assert.Contains(t, registry.kicked, "tab_1")
	assert.False(t, registry.IsOnline("tab_1"))

	// A reconnect status flip must not resurrect a revoked device.
	uc.HandleConnect(ctx, "tab_1")
	d, err = devices.FindByID(ctx, "tab_1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceRevoked, d.Status)
}

func TestRevokeCrossTenant(t *testing.T) {
	uc, _, registry := newDeviceFixture(t, "tab_1")

	err := uc.Revoke(context.Background(), "comp_other", "tab_1")
	assert.ErrorIs(t, err, xerrors.ErrAccessDenied)
	assert.Empty(t, registry.kicked)
}

func TestUnpairDeletesDevice(t *testing.T) {
	ctx := context.Background()
	uc, devices, registry := newDeviceFixture(t, "tab_1")

	require.NoError(t, uc.Unpair(ctx, "comp_1", "tab_1"))

	_, err := devices.FindByID(ctx, "tab_1")
	assert.ErrorIs(t, err, xerrors.ErrDeviceNotFound)
	assert.Contains(t, registry.kicked, "tab_1")
}

func TestConnectDisconnectStatusFlips(t *testing.T) {
	ctx := context.Background()
	uc, devices, _ := newDeviceFixture(t)

	uc.HandleConnect(ctx, "tab_2")
	d, err := devices.FindByID(ctx, "tab_2")
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceActive, d.Status)

	uc.HandleDisconnect(ctx, "tab_2")
	d, err = devices.FindByID(ctx, "tab_2")
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceDisconnected, d.Status)
}
