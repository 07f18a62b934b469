package resolver

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/address-geocoder/pkg/geocode"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Name() string { return "mock" }

func (m *mockGeocoder) Geocode(ctx context.Context, query string) (*geocode.Match, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geocode.Match), args.Error(1)
}
