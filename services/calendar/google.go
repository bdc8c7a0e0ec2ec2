package calendar

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	credentialRepo "meetwise/database/repository/credential"
	"meetwise/models"
	"meetwise/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	probeKeyPrefix = "calprobe:"
	probeTTL       = 5 * time.Minute

	fetchAttempts  = 3
	fetchBaseDelay = 300 * time.Millisecond
)

// GoogleGateway implements Gateway against the Google Calendar API using
// per-expert refresh tokens obtained via the authorization-code flow.
type GoogleGateway struct {
	oauthCfg   *oauth2.Config
	creds      credentialRepo.CredentialRepository
	probeCache *redis.Client
	logger     *zap.Logger
	sleep      func(time.Duration)
}

// NewGoogleGateway builds the gateway. probeCache holds short-lived positive
// token-probe results so booking pages do not refresh tokens on every view.
func NewGoogleGateway(clientID, clientSecret, redirectURL string, creds credentialRepo.CredentialRepository, probeCache *redis.Client, logger *zap.Logger) *GoogleGateway {
	return &GoogleGateway{
		oauthCfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{gcal.CalendarEventsScope, gcal.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		creds:      creds,
		probeCache: probeCache,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// tokenSource loads the expert's stored token and wraps it in a refreshing
// source. Refreshed tokens are written back so the newest refresh token wins.
func (g *GoogleGateway) tokenSource(ctx context.Context, expertID models.ExpertID) (oauth2.TokenSource, error) {
	stored, err := g.creds.LoadToken(ctx, expertID)
	if err != nil {
		if utils.IsKind(err, utils.KindNotFound) {
			return nil, errNotConnected(expertID.String())
		}
		return nil, err
	}
	if stored.RefreshToken == "" {
		return nil, errNotConnected(expertID.String())
	}

	ts := g.oauthCfg.TokenSource(ctx, stored)
	fresh, err := ts.Token()
	if err != nil {
		return nil, errTokenExpired(expertID.String())
	}
	if fresh.AccessToken != stored.AccessToken {
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = stored.RefreshToken
		}
		if err := g.creds.SaveToken(ctx, expertID, fresh); err != nil {
			g.logger.Warn("failed to persist refreshed calendar token",
				zap.String("expertID", expertID.String()), zap.Error(err))
		}
	}
	return oauth2.StaticTokenSource(fresh), nil
}

func (g *GoogleGateway) service(ctx context.Context, expertID models.ExpertID) (*gcal.Service, error) {
	ts, err := g.tokenSource(ctx, expertID)
	if err != nil {
		return nil, err
	}
	srv, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, errProviderUnavailable(err)
	}
	return srv, nil
}

func (g *GoogleGateway) HasValidTokens(ctx context.Context, expertID models.ExpertID) (bool, error) {
	key := probeKeyPrefix + expertID.String()
	if cached, err := g.probeCache.Get(ctx, key).Result(); err == nil && cached == "1" {
		return true, nil
	}

	if _, err := g.tokenSource(ctx, expertID); err != nil {
		// Negative results are never cached; the next probe retries.
		return false, err
	}

	if err := g.probeCache.Set(ctx, key, "1", probeTTL).Err(); err != nil {
		g.logger.Warn("failed to cache calendar probe", zap.Error(err))
	}
	return true, nil
}

func (g *GoogleGateway) InvalidateProbe(ctx context.Context, expertID models.ExpertID) error {
	return g.probeCache.Del(ctx, probeKeyPrefix+expertID.String()).Err()
}

func (g *GoogleGateway) BusyIntervals(ctx context.Context, expertID models.ExpertID, from, to time.Time) ([]models.BusyInterval, error) {
	srv, err := g.service(ctx, expertID)
	if err != nil {
		return nil, err
	}

	req := &gcal.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: "primary"}},
	}

	var resp *gcal.FreeBusyResponse
	for attempt := 0; ; attempt++ {
		resp, err = srv.Freebusy.Query(req).Context(ctx).Do()
		if err == nil {
			break
		}
		if !isRateLimited(err) || attempt == fetchAttempts-1 {
			if isRateLimited(err) {
				return nil, errRateLimited(err)
			}
			return nil, errProviderUnavailable(err)
		}
		// Bounded retry with jitter on provider throttling.
		delay := fetchBaseDelay << attempt
		g.sleep(delay + time.Duration(rand.Int63n(int64(delay))))
	}

	cal, ok := resp.Calendars["primary"]
	if !ok {
		return nil, errProviderUnavailable(fmt.Errorf("freebusy response missing primary calendar"))
	}

	// The free/busy view already folds in all-day events (as the expert's
	// full local day in UTC) and drops declined and cancelled entries.
	var busy []models.BusyInterval
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, errProviderUnavailable(fmt.Errorf("unparseable busy start %q: %w", period.Start, err))
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, errProviderUnavailable(fmt.Errorf("unparseable busy end %q: %w", period.End, err))
		}
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if start.Before(end) {
			busy = append(busy, models.BusyInterval{Start: start.UTC(), End: end.UTC()})
		}
	}
	return busy, nil
}

func (g *GoogleGateway) InsertMeetingEntry(ctx context.Context, expertID models.ExpertID, meeting *models.Meeting, eventTitle string) (string, error) {
	srv, err := g.service(ctx, expertID)
	if err != nil {
		return "", err
	}

	entry := &gcal.Event{
		Summary:     eventTitle,
		Description: meeting.GuestNotes,
		Location:    meeting.LocationHandle,
		Start:       &gcal.EventDateTime{DateTime: meeting.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &gcal.EventDateTime{DateTime: meeting.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}

	created, err := srv.Events.Insert("primary", entry).Context(ctx).Do()
	if err != nil {
		if isRateLimited(err) {
			return "", errRateLimited(err)
		}
		return "", errProviderUnavailable(err)
	}
	return created.Id, nil
}

func (g *GoogleGateway) DeleteMeetingEntry(ctx context.Context, expertID models.ExpertID, entryID string) error {
	srv, err := g.service(ctx, expertID)
	if err != nil {
		return err
	}

	if err := srv.Events.Delete("primary", entryID).Context(ctx).Do(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
			return nil // already removed
		}
		if isRateLimited(err) {
			return errRateLimited(err)
		}
		return errProviderUnavailable(err)
	}
	return nil
}

func (g *GoogleGateway) AuthCodeURL(expertID models.ExpertID) string {
	return g.oauthCfg.AuthCodeURL(expertID.String(), oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *GoogleGateway) ExchangeCode(ctx context.Context, expertID models.ExpertID, code string) error {
	token, err := g.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return errProviderUnavailable(err)
	}
	if token.RefreshToken == "" {
		// Google only returns the refresh token on first consent; keep the
		// one we already have.
		if stored, loadErr := g.creds.LoadToken(ctx, expertID); loadErr == nil {
			token.RefreshToken = stored.RefreshToken
		}
	}
	if token.RefreshToken == "" {
		return errTokenExpired(expertID.String())
	}
	return g.creds.SaveToken(ctx, expertID, token)
}

func isRateLimited(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, e := range gerr.Errors {
			if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}
