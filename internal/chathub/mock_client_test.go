package chathub_test

import (
	"context"
	"sync/atomic"

	"zawaj/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	userID      string
	RecvChannel chan models.RealtimeEvent
	closed      atomic.Bool
}

func newMockClient(userID string, buffer int) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan models.RealtimeEvent, buffer),
	}
}

func (c *MockClient) GetUserID() string {
	return c.userID
}

func (c *MockClient) GetSendChannel() chan<- models.RealtimeEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed.Store(true)
}

func (c *MockClient) IsClosed() bool {
	return c.closed.Load()
}

// MockBroker stands in for the Redis-backed broker.
type MockBroker struct {
	mock.Mock
	events chan models.RealtimeEvent
}

func newMockBroker() *MockBroker {
	return &MockBroker{events: make(chan models.RealtimeEvent, 10)}
}

func (b *MockBroker) PublishEvent(ctx context.Context, event models.RealtimeEvent) error {
	args := b.Called(event)
	return args.Error(0)
}

func (b *MockBroker) SubscribeEvents(ctx context.Context) (<-chan models.RealtimeEvent, error) {
	args := b.Called()
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return b.events, nil
}
