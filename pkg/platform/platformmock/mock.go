package platformmock

import (
	"context"

	"github.com/raterudder/solarbridge/pkg/platform"
	"github.com/raterudder/solarbridge/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockPlatform struct {
	mock.Mock
}

var _ platform.Platform = (*MockPlatform)(nil)

func (m *MockPlatform) GetStatus(ctx context.Context, deviceID string) (platform.DeviceStatus, error) {
	args := m.Called(ctx, deviceID)
	return args.Get(0).(platform.DeviceStatus), args.Error(1)
}

func (m *MockPlatform) CreateEvents(ctx context.Context, deviceID string, events []types.Event) error {
	args := m.Called(ctx, deviceID, events)
	return args.Error(0)
}

func (m *MockPlatform) ListDevices(ctx context.Context, locationID string) ([]platform.Device, error) {
	args := m.Called(ctx, locationID)
	if v := args.Get(0); v != nil {
		return v.([]platform.Device), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockDirectory returns whatever it was told to.
type MockDirectory struct {
	mock.Mock
}

var _ platform.Directory = (*MockDirectory)(nil)

func (m *MockDirectory) Devices(ctx context.Context) (types.Devices, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Devices), args.Error(1)
}
