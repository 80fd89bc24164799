// Package chathub keeps the live WebSocket sessions of each user and delivers
// realtime events to them, across instances when a broker is configured.
package chathub

import (
	"context"
	"errors"
	"sync"

	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"
)

const deliverBuffer = 256

var errHubStopped = errors.New("hub stopped")

// Broker fans events out to every server instance. storage.Service
// implements it on Redis pub/sub.
type Broker interface {
	PublishEvent(ctx context.Context, event models.RealtimeEvent) error
	SubscribeEvents(ctx context.Context) (<-chan models.RealtimeEvent, error)
}

// ManagerService is the session hub. Run owns all map mutations; readers
// such as IsOnline take the read lock.
type ManagerService struct {
	clients map[string]map[Client]struct{}
	mu      sync.RWMutex

	RegisterCh   chan Client
	UnregisterCh chan Client
	deliverCh    chan models.RealtimeEvent
	done         chan struct{}

	broker Broker
}

// NewManagerService builds a hub. broker may be nil for a single instance.
func NewManagerService(broker Broker) *ManagerService {
	return &ManagerService{
		clients:      make(map[string]map[Client]struct{}),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		deliverCh:    make(chan models.RealtimeEvent, deliverBuffer),
		done:         make(chan struct{}),
		broker:       broker,
	}
}

// Run processes registrations and deliveries until ctx is done, then closes
// every session.
func (m *ManagerService) Run(ctx context.Context) {
	if m.broker != nil {
		m.startPubSubListener(ctx)
	}

	for {
		select {
		case client := <-m.RegisterCh:
			m.register(client)

		case client := <-m.UnregisterCh:
			m.unregister(client)

		case event := <-m.deliverCh:
			m.deliverLocal(event)

		case <-ctx.Done():
			close(m.done)
			m.closeAll()
			return
		}
	}
}

// Register adds client to the hub. It reports false when the hub has
// already stopped.
func (m *ManagerService) Register(client Client) bool {
	select {
	case m.RegisterCh <- client:
		return true
	case <-m.done:
		return false
	}
}

// Unregister asks the hub to drop client. It does not block once the hub
// has stopped.
func (m *ManagerService) Unregister(client Client) {
	select {
	case m.UnregisterCh <- client:
	case <-m.done:
	}
}

// Publish sends event to every session of event.UserID on every instance.
// Without a broker, or when publishing fails, it delivers locally.
func (m *ManagerService) Publish(ctx context.Context, event models.RealtimeEvent) error {
	if m.broker != nil {
		err := m.broker.PublishEvent(ctx, event)
		if err == nil {
			return nil
		}
		logger.Warn().Err(err).Str("user_id", event.UserID).Msg("broker publish failed, delivering locally")
	}
	return m.enqueue(ctx, event)
}

// Push delivers a persisted notification as a realtime event.
func (m *ManagerService) Push(ctx context.Context, n *models.Notification) error {
	event, err := models.NewRealtimeEvent(n.RecipientID, models.EventNotification, n)
	if err != nil {
		return err
	}
	return m.Publish(ctx, event)
}

// Name identifies the hub in push logs.
func (m *ManagerService) Name() string { return "websocket" }

// IsOnline reports whether the user has at least one local session.
func (m *ManagerService) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID]) > 0
}

// SessionCount returns the number of local sessions of the user.
func (m *ManagerService) SessionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

func (m *ManagerService) enqueue(ctx context.Context, event models.RealtimeEvent) error {
	select {
	case m.deliverCh <- event:
		return nil
	case <-m.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *ManagerService) register(client Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.clients[client.GetUserID()]
	if !ok {
		sessions = make(map[Client]struct{})
		m.clients[client.GetUserID()] = sessions
	}
	sessions[client] = struct{}{}
	logger.Debug().Str("user_id", client.GetUserID()).Int("sessions", len(sessions)).Msg("session registered")
}

func (m *ManagerService) unregister(client Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(client)
}

// removeLocked drops and closes client if it is still registered. Closing
// twice would panic on the send channel, so membership is checked first.
func (m *ManagerService) removeLocked(client Client) {
	sessions, ok := m.clients[client.GetUserID()]
	if !ok {
		return
	}
	if _, ok := sessions[client]; !ok {
		return
	}
	delete(sessions, client)
	if len(sessions) == 0 {
		delete(m.clients, client.GetUserID())
	}
	client.Close()
}

func (m *ManagerService) deliverLocal(event models.RealtimeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for client := range m.clients[event.UserID] {
		select {
		case client.GetSendChannel() <- event:
		default:
			logger.Warn().Str("user_id", event.UserID).Msg("dropping slow websocket session")
			m.removeLocked(client)
		}
	}
}

func (m *ManagerService) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sessions := range m.clients {
		for client := range sessions {
			client.Close()
		}
	}
	m.clients = make(map[string]map[Client]struct{})
}
