package credentialRepo

import (
	"context"

	"meetwise/models"

	"golang.org/x/oauth2"
)

// CredentialRepository stores external-calendar OAuth tokens per expert.
// The refresh token is the durable credential; access tokens are transient.
type CredentialRepository interface {
	SaveToken(ctx context.Context, expertID models.ExpertID, token *oauth2.Token) error
	// LoadToken returns NotFound when the expert never connected a calendar.
	LoadToken(ctx context.Context, expertID models.ExpertID) (*oauth2.Token, error)
	DeleteToken(ctx context.Context, expertID models.ExpertID) error
}
