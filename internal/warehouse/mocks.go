package warehouse

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDateRangeEvents(ctx context.Context, startDate, endDate string) (map[data.EventType][]data.EventRecord, error) {
	args := m.Called(ctx, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[data.EventType][]data.EventRecord), args.Error(1)
}

func (m *MockClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockClient) Close() error {
	return m.Called().Error(0)
}

var _ ClientInterface = new(MockClient)
