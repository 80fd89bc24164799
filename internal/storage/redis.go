package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// BroadcastChannel carries RealtimeEvents between server instances.
const BroadcastChannel = "notifications:broadcast"

// ErrNoBroker is returned by the pub/sub methods when Redis is not configured.
var ErrNoBroker = errors.New("redis is not configured")

func suspensionKey(userID string) string { return "suspended:" + userID }
func linkCodeKey(code string) string     { return "tglink:" + code }

// SetSuspensionFlag caches the suspension for ttl; a zero ttl keeps it until
// cleared. No-op without Redis.
func (s *Service) SetSuspensionFlag(ctx context.Context, userID string, ttl time.Duration) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Set(ctx, suspensionKey(userID), "1", ttl).Err()
}

func (s *Service) ClearSuspensionFlag(ctx context.Context, userID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, suspensionKey(userID)).Err()
}

// IsUserSuspended checks the Redis flag first and falls back to the user row
// when Redis is absent or the flag is missing.
func (s *Service) IsUserSuspended(ctx context.Context, userID string) (bool, error) {
	if s.Redis != nil {
		status, err := s.Redis.Get(ctx, suspensionKey(userID)).Result()
		switch {
		case err == nil:
			return status != "", nil
		case !errors.Is(err, redis.Nil):
			logger.Warn().Err(err).Str("user_id", userID).Msg("suspension cache unavailable, using database")
		}
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsSuspendedAt(time.Now().UTC()), nil
}

// PublishEvent sends event to every instance subscribed to BroadcastChannel.
func (s *Service) PublishEvent(ctx context.Context, event models.RealtimeEvent) error {
	if s.Redis == nil {
		return ErrNoBroker
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, BroadcastChannel, payload).Err()
}

// SubscribeEvents streams events published on BroadcastChannel until ctx is
// done. Malformed payloads are logged and skipped.
func (s *Service) SubscribeEvents(ctx context.Context) (<-chan models.RealtimeEvent, error) {
	if s.Redis == nil {
		return nil, ErrNoBroker
	}
	pubsub := s.Redis.Subscribe(ctx, BroadcastChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan models.RealtimeEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.RealtimeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Error().Err(err).Str("channel", msg.Channel).Msg("failed to unmarshal realtime event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// SaveTelegramLinkCode stores a one-time account link code.
func (s *Service) SaveTelegramLinkCode(ctx context.Context, code, userID string, ttl time.Duration) error {
	if s.Redis == nil {
		return apperr.Internal(ErrNoBroker)
	}
	return s.Redis.Set(ctx, linkCodeKey(code), userID, ttl).Err()
}

// ConsumeTelegramLinkCode returns the user the code was issued for and
// deletes it. Unknown or expired codes are NotFound.
func (s *Service) ConsumeTelegramLinkCode(ctx context.Context, code string) (string, error) {
	if s.Redis == nil {
		return "", apperr.Internal(ErrNoBroker)
	}
	userID, err := s.Redis.GetDel(ctx, linkCodeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperr.NotFound("link code is invalid or expired")
	}
	return userID, err
}
