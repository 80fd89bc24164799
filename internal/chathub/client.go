package chathub

import "zawaj/backend/internal/models"

// Client is one live session of a user. A user may hold several sessions
// (tabs, devices); the hub delivers every event to all of them.
type Client interface {
	// GetUserID returns the authenticated user behind the session.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes events to. The hub
	// never blocks on it: a full channel drops the session.
	GetSendChannel() chan<- models.RealtimeEvent

	// Run starts the session's read and write pumps.
	Run()
	// Close shuts the session down. Only the hub calls it.
	Close()
}
