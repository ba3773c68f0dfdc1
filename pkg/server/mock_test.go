package server

import (
	"context"
	"time"

	"github.com/raterudder/solarbridge/pkg/controller"
	"github.com/raterudder/solarbridge/pkg/platform/platformmock"
	"github.com/raterudder/solarbridge/pkg/types"
	"github.com/stretchr/testify/mock"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchMetrics(ctx context.Context, window types.Window) (types.Metrics, error) {
	args := m.Called(ctx, window)
	if v := args.Get(0); v != nil {
		return v.(types.Metrics), args.Error(1)
	}
	return nil, args.Error(1)
}

var testNow = time.Date(2026, 6, 1, 12, 15, 0, 0, time.UTC)

type testServer struct {
	*Server
	fetcher   *mockFetcher
	platform  *platformmock.MockPlatform
	directory *platformmock.MockDirectory
}

func newTestServer() testServer {
	f := &mockFetcher{}
	p := &platformmock.MockPlatform{}
	d := &platformmock.MockDirectory{}
	d.On("Devices", mock.Anything).Return(types.Devices{HouseID: "house-1", SolarID: "solar-1"}, nil)
	return testServer{
		Server: &Server{
			fetcher:      f,
			platform:     p,
			directory:    d,
			controller:   controller.NewController(),
			mapping:      types.DefaultDeviceMapping(),
			windowLength: 15 * time.Minute,
			now:          func() time.Time { return testNow },
			bypassAuth:   true,
		},
		fetcher:   f,
		platform:  p,
		directory: d,
	}
}
