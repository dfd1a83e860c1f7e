package services

import (
	"time"

	"github.com/invoicemenecer/api/internal/config"
	"github.com/invoicemenecer/api/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// RetentionService periodically purges refresh token records that are both
// revoked and long past expiry. Records still useful for replay detection
// are never touched.
type RetentionService struct {
	store *RefreshTokenStore
	cfg   *config.RetentionConfig
	cron  *cron.Cron
}

func NewRetentionService(db *gorm.DB, cfg *config.RetentionConfig) *RetentionService {
	return &RetentionService{
		store: NewRefreshTokenStore(db),
		cfg:   cfg,
		cron:  cron.New(),
	}
}

// Start schedules the sweep. Returns an error for an invalid cron spec.
func (s *RetentionService) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()

	logger.Info().
		Str("schedule", s.cfg.Schedule).
		Int("age_days", s.cfg.RefreshTokenAge).
		Msg("started refresh token retention sweep")
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (s *RetentionService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one purge pass.
func (s *RetentionService) Sweep() {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RefreshTokenAge)

	purged, err := s.store.PurgeExpiredRevoked(cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("refresh token retention sweep failed")
		return
	}
	if purged > 0 {
		logger.Info().Int64("purged", purged).Msg("purged expired revoked refresh tokens")
	}
}
