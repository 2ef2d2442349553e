//go:build protogen

package directory

import (
	"context"
	"time"

	"github.com/mv-carvalho/clinsched/libs/grpcx"
	directoryv1 "github.com/mv-carvalho/clinsched/protos/gen/directory/v1"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Provider looks up a professional's weekday template in the clinic directory
// service. Builds without the protogen tag have no generated client; the
// service then reads only its local read model.
type Provider interface {
	WeeklySchedule(ctx context.Context, professionalID string, weekday time.Weekday) (*model.WeeklySchedule, error)
}

type grpcProvider struct {
	client directoryv1.DirectoryServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: directoryv1.NewDirectoryServiceClient(conn)}, nil
}

func (p *grpcProvider) WeeklySchedule(ctx context.Context, professionalID string, weekday time.Weekday) (*model.WeeklySchedule, error) {
	resp, err := p.client.GetWeeklySchedule(ctx, &directoryv1.WeeklyScheduleRequest{
		ProfessionalId: professionalID,
		Weekday:        int32(weekday),
		EffectiveAt:    timestamppb.New(time.Now().UTC()),
	})
	if err != nil {
		return nil, err
	}
	if !resp.GetExists() {
		return nil, nil
	}
	sched := &model.WeeklySchedule{
		ID:             resp.GetScheduleId(),
		ProfessionalID: professionalID,
		Weekday:        weekday,
		WorkStart:      resp.GetWorkStart(),
		WorkEnd:        resp.GetWorkEnd(),
		LunchStart:     resp.GetLunchStart(),
		LunchEnd:       resp.GetLunchEnd(),
		SlotMinutes:    int(resp.GetSlotMinutes()),
	}
	if resp.GetUpdatedAt() != nil {
		sched.UpdatedAt = resp.GetUpdatedAt().AsTime()
	}
	return sched, nil
}
