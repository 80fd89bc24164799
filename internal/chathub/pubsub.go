package chathub

import (
	"context"

	"zawaj/backend/internal/logger"
)

// startPubSubListener forwards events from the broker into the local
// delivery queue. If the subscription cannot be opened the hub keeps
// working for local sessions only.
func (m *ManagerService) startPubSubListener(ctx context.Context) {
	events, err := m.broker.SubscribeEvents(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to subscribe to realtime broadcast channel")
		return
	}

	go func() {
		for event := range events {
			if err := m.enqueue(ctx, event); err != nil {
				return
			}
		}
	}()
}
