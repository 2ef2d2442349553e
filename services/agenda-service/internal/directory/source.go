package directory

import (
	"context"
	"log/slog"
	"time"

	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

// Store is the local weekly-schedule read model (the storage repository).
type Store interface {
	GetForWeekday(ctx context.Context, professionalID string, weekday time.Weekday) (*model.WeeklySchedule, error)
}

// FallbackSource prefers the directory service when a provider is configured
// and falls back to the local read model on provider errors. A directory
// answer of "no schedule" is authoritative and does not fall back.
type FallbackSource struct {
	provider Provider
	local    Store
	logger   *slog.Logger
}

func NewFallbackSource(provider Provider, local Store, logger *slog.Logger) *FallbackSource {
	return &FallbackSource{provider: provider, local: local, logger: logger}
}

func (s *FallbackSource) GetForWeekday(ctx context.Context, professionalID string, weekday time.Weekday) (*model.WeeklySchedule, error) {
	if s.provider != nil {
		sched, err := s.provider.WeeklySchedule(ctx, professionalID, weekday)
		if err == nil {
			return sched, nil
		}
		s.logger.Warn("directory schedule fetch failed; using local read model", "err", err)
	}
	return s.local.GetForWeekday(ctx, professionalID, weekday)
}
