package expertRepo

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
)

// MongoExpertRepo is the MongoDB-backed ExpertRepository.
type MongoExpertRepo struct {
	expertColl *mongo.Collection
	eventColl  *mongo.Collection
}

// NewMongoExpertRepo builds the repository over the shared Mongo client.
func NewMongoExpertRepo() *MongoExpertRepo {
	return &MongoExpertRepo{
		expertColl: database.Collection("experts"),
		eventColl:  database.Collection("events"),
	}
}

func (r *MongoExpertRepo) GetByID(ctx context.Context, id models.ExpertID) (*models.Expert, error) {
	var expert models.Expert
	err := r.expertColl.FindOne(ctx, bson.M{"id": id}).Decode(&expert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "expert %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expert %s: %w", id, err)
	}
	return &expert, nil
}

func (r *MongoExpertRepo) GetEvent(ctx context.Context, id models.EventID) (*models.Event, error) {
	var ev models.Event
	err := r.eventColl.FindOne(ctx, bson.M{"id": id}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "event %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event %s: %w", id, err)
	}
	return &ev, nil
}

func (r *MongoExpertRepo) GetEventBySlug(ctx context.Context, expertID models.ExpertID, slug string) (*models.Event, error) {
	var ev models.Event
	err := r.eventColl.FindOne(ctx, bson.M{"expert_id": expertID, "slug": slug}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "event %s/%s not found", expertID, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event %s/%s: %w", expertID, slug, err)
	}
	return &ev, nil
}

func (r *MongoExpertRepo) ListEvents(ctx context.Context, expertID models.ExpertID) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "display_order", Value: 1}})
	cur, err := r.eventColl.Find(ctx, bson.M{"expert_id": expertID, "active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for expert %s: %w", expertID, err)
	}
	defer cur.Close(ctx)

	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (r *MongoExpertRepo) CreateEvent(ctx context.Context, ev *models.Event) error {
	ev.CreatedAt = time.Now().UTC()
	ev.UpdatedAt = ev.CreatedAt
	if _, err := r.eventColl.InsertOne(ctx, ev); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.E(utils.KindConflict, "event slug %q already exists for expert %s", ev.Slug, ev.ExpertID)
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *MongoExpertRepo) UpdateEvent(ctx context.Context, ev *models.Event) error {
	ev.UpdatedAt = time.Now().UTC()
	res, err := r.eventColl.ReplaceOne(ctx, bson.M{"id": ev.ID, "expert_id": ev.ExpertID}, ev)
	if err != nil {
		return fmt.Errorf("failed to update event %s: %w", ev.ID, err)
	}
	if res.MatchedCount == 0 {
		return utils.E(utils.KindNotFound, "event %s not found", ev.ID)
	}
	return nil
}
