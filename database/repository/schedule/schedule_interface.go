package scheduleRepo

import (
	"context"

	"meetwise/models"
)

// ScheduleRepository stores weekly availability, booking policy and blocked
// dates per expert.
type ScheduleRepository interface {
	LoadSchedule(ctx context.Context, expertID models.ExpertID) (*models.WeeklySchedule, error)
	SaveSchedule(ctx context.Context, schedule *models.WeeklySchedule) error
	// LoadPolicy returns the expert's policy with defaults applied for
	// unset fields; a missing document yields the defaults themselves.
	LoadPolicy(ctx context.Context, expertID models.ExpertID) (models.BookingPolicy, error)
	SavePolicy(ctx context.Context, expertID models.ExpertID, policy models.BookingPolicy) error
	ListBlockedDates(ctx context.Context, expertID models.ExpertID, fromLocalDate, toLocalDate string) ([]models.BlockedDate, error)
	AddBlockedDate(ctx context.Context, blocked *models.BlockedDate) error
	RemoveBlockedDate(ctx context.Context, expertID models.ExpertID, localDate string) error
}
