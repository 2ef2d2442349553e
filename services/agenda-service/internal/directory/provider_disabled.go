//go:build !protogen

package directory

import (
	"context"
	"time"

	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

// Provider looks up a professional's weekday template in the clinic directory
// service. Builds without the protogen tag have no generated client; the
// service then reads only its local read model.
type Provider interface {
	WeeklySchedule(ctx context.Context, professionalID string, weekday time.Weekday) (*model.WeeklySchedule, error)
}

func NewProvider(_ string) (Provider, error) {
	return nil, nil
}
