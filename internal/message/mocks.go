package message

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MessengerClientMock struct {
	mock.Mock
}

func (m *MessengerClientMock) SendMessage(ctx context.Context, message Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MessengerClientMock) MessengerType() MessengerType {
	return m.Called().Get(0).(MessengerType)
}

var _ MessengerClient = (*MessengerClientMock)(nil)
