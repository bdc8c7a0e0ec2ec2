package credentialRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meetwise/database"
	"meetwise/models"
	"meetwise/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/oauth2"
)

// MongoCredentialRepo is the MongoDB-backed CredentialRepository.
type MongoCredentialRepo struct {
	credentialColl *mongo.Collection
}

// NewMongoCredentialRepo builds the repository over the shared client.
func NewMongoCredentialRepo() *MongoCredentialRepo {
	return &MongoCredentialRepo{credentialColl: database.Collection("calendar_credentials")}
}

type tokenDoc struct {
	ExpertID     models.ExpertID `bson:"expert_id"`
	AccessToken  string          `bson:"access_token"`
	RefreshToken string          `bson:"refresh_token"`
	TokenType    string          `bson:"token_type"`
	Expiry       time.Time       `bson:"expiry"`
	UpdatedAt    time.Time       `bson:"updated_at"`
}

func (r *MongoCredentialRepo) SaveToken(ctx context.Context, expertID models.ExpertID, token *oauth2.Token) error {
	doc := tokenDoc{
		ExpertID:     expertID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		UpdatedAt:    time.Now().UTC(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.credentialColl.ReplaceOne(ctx, bson.M{"expert_id": expertID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save calendar token for expert %s: %w", expertID, err)
	}
	return nil
}

func (r *MongoCredentialRepo) LoadToken(ctx context.Context, expertID models.ExpertID) (*oauth2.Token, error) {
	var doc tokenDoc
	err := r.credentialColl.FindOne(ctx, bson.M{"expert_id": expertID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "no calendar connected for expert %s", expertID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar token for expert %s: %w", expertID, err)
	}
	return &oauth2.Token{
		AccessToken:  doc.AccessToken,
		RefreshToken: doc.RefreshToken,
		TokenType:    doc.TokenType,
		Expiry:       doc.Expiry,
	}, nil
}

func (r *MongoCredentialRepo) DeleteToken(ctx context.Context, expertID models.ExpertID) error {
	if _, err := r.credentialColl.DeleteOne(ctx, bson.M{"expert_id": expertID}); err != nil {
		return fmt.Errorf("failed to delete calendar token for expert %s: %w", expertID, err)
	}
	return nil
}

// EnsureIndexes creates the credential index.
func (r *MongoCredentialRepo) EnsureIndexes(ctx context.Context) error {
	if _, err := r.credentialColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expert_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create credential index: %w", err)
	}
	return nil
}
