package expertRepo

import (
	"context"

	"meetwise/models"
)

// ExpertRepository provides access to experts and their bookable events.
type ExpertRepository interface {
	GetByID(ctx context.Context, id models.ExpertID) (*models.Expert, error)
	GetEvent(ctx context.Context, id models.EventID) (*models.Event, error)
	GetEventBySlug(ctx context.Context, expertID models.ExpertID, slug string) (*models.Event, error)
	ListEvents(ctx context.Context, expertID models.ExpertID) ([]models.Event, error)
	CreateEvent(ctx context.Context, ev *models.Event) error
	UpdateEvent(ctx context.Context, ev *models.Event) error
}
