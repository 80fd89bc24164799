package models

import "encoding/json"

// Realtime event names pushed over the WebSocket.
const (
	EventNotification = "notification"
	EventMessage      = "message"
)

// RealtimeEvent is the unit the hub delivers to every session of UserID. It is
// also the payload published on the Redis fan-out channel.
type RealtimeEvent struct {
	UserID string          `json:"userId"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// NewRealtimeEvent marshals data into an event for userID.
func NewRealtimeEvent(userID, event string, data any) (RealtimeEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return RealtimeEvent{}, err
	}
	return RealtimeEvent{UserID: userID, Event: event, Data: raw}, nil
}
