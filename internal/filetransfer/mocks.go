package filetransfer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetLatestUsersData(ctx context.Context) ([]data.UserRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.UserRecord), args.Error(1)
}

func (m *MockClient) GetLatestLocationsData(ctx context.Context) ([]data.LocationRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.LocationRecord), args.Error(1)
}

func (m *MockClient) Close() error {
	return m.Called().Error(0)
}

var _ ClientInterface = new(MockClient)
