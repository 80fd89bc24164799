package workflow

import (
	"context"
	"time"

	"zawaj/backend/internal/config"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/notification"
)

// ExpireStale expires every pending request whose deadline is at or before
// now and notifies the senders. A request that fails to expire is logged and
// skipped; it is retried on the next sweep. It returns the number expired.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	batchSize := s.policy.SweepBatchSize
	if batchSize <= 0 {
		batchSize = config.ExpirySweepBatchSize
	}

	expired := 0
	// Rows listed but not expired this sweep. Excluding them keeps later
	// batches moving past rows that fail every time.
	var passed []string

	for {
		batch, err := s.store.ListExpiredPending(ctx, now, passed, batchSize)
		if err != nil {
			return expired, err
		}

		for i := range batch {
			req := &batch[i]
			ok, err := s.store.ExpireIfPending(ctx, req.ID, now)
			if err != nil {
				logger.Error().Err(err).Str("request_id", req.ID).Msg("failed to expire request")
				passed = append(passed, req.ID)
				continue
			}
			if !ok {
				// Answered or cancelled since it was listed.
				passed = append(passed, req.ID)
				continue
			}
			expired++
			s.notifyExpired(ctx, req)
		}

		if len(batch) < batchSize {
			return expired, nil
		}
		if err := ctx.Err(); err != nil {
			return expired, err
		}
	}
}

func (s *Service) notifyExpired(ctx context.Context, req *models.MarriageRequest) {
	name := ""
	if receiver, err := s.store.GetUser(ctx, req.ReceiverID); err == nil {
		name = receiver.FullName
	}
	s.notifier.NotifyAfter(ctx, req.SenderID, models.NotificationRequestExpired, notification.Payload{
		RequestID: req.ID,
		ProfileID: req.ReceiverID,
		Args:      map[string]string{"name": name},
	})
}

// Sweeper runs ExpireStale on an interval.
type Sweeper struct {
	svc      *Service
	interval time.Duration
}

func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	return &Sweeper{svc: svc, interval: interval}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (sw *Sweeper) Run(ctx context.Context) {
	logger.Info().Dur("interval", sw.interval).Msg("request expiry sweeper started")

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		sw.sweep(ctx)

		select {
		case <-ctx.Done():
			logger.Info().Msg("request expiry sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	n, err := sw.svc.ExpireStale(ctx, sw.svc.now())
	if err != nil {
		logger.Error().Err(err).Int("expired", n).Msg("request expiry sweep failed")
		return
	}
	if n > 0 {
		logger.Info().Int("expired", n).Msg("expired stale requests")
	}
}
