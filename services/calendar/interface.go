package calendar

import (
	"context"
	"time"

	"meetwise/models"
)

// Gateway is the external-calendar boundary. Implementations own OAuth
// token handling; callers only see busy intervals and entry handles.
type Gateway interface {
	// HasValidTokens probes token freshness. A booking page must not be
	// rendered unless this succeeds. Positive results are cached briefly.
	HasValidTokens(ctx context.Context, expertID models.ExpertID) (bool, error)

	// BusyIntervals returns occupied spans over [from, to) from the
	// expert's calendar. Intervals may overlap and are not sorted; they
	// are trimmed to the query range. Cancelled and declined entries are
	// excluded. A failure means "cannot answer", never "no busy time".
	BusyIntervals(ctx context.Context, expertID models.ExpertID, from, to time.Time) ([]models.BusyInterval, error)

	// InsertMeetingEntry creates the calendar entry for a confirmed
	// meeting and returns its provider-side id.
	InsertMeetingEntry(ctx context.Context, expertID models.ExpertID, meeting *models.Meeting, eventTitle string) (string, error)

	// DeleteMeetingEntry removes a previously created entry.
	DeleteMeetingEntry(ctx context.Context, expertID models.ExpertID, entryID string) error

	// InvalidateProbe drops the cached token-probe result, forcing the next
	// availability read to re-verify against the provider.
	InvalidateProbe(ctx context.Context, expertID models.ExpertID) error

	// AuthCodeURL starts the authorization-code flow for an expert.
	AuthCodeURL(expertID models.ExpertID) string

	// ExchangeCode finishes the flow and stores the refresh token.
	ExchangeCode(ctx context.Context, expertID models.ExpertID, code string) error
}
