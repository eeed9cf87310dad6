package server

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskwiz/taskwiz/internal/models"
)

const defaultJanitorSchedule = "@every 1h"

func (s *Server) setupJanitor() {
	s.janitor = cron.New(cron.WithChain(cron.Recover(cronLogger{s})))

	schedule := s.config.Janitor.Schedule
	if schedule == "" {
		schedule = defaultJanitorSchedule
	}

	if _, err := s.janitor.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.purgeRevokedTokens(ctx, time.Now()); err != nil {
			s.logger.Error().Err(err).Msg("Failed to purge revoked tokens")
		}
	}); err != nil {
		s.logger.Error().Err(err).Str("schedule", schedule).Msg("Failed to schedule revoked token purge")
	}
}

// purgeRevokedTokens drops revocation rows for tokens that have expired
// anyway, since the JWT check rejects those on its own.
func (s *Server) purgeRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.logger.Info().Int64("purged", result.RowsAffected).Msg("Purged expired revoked tokens")
	}
	return result.RowsAffected, nil
}

// cronLogger adapts the server's zerolog logger to cron.Logger
type cronLogger struct {
	s *Server
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
