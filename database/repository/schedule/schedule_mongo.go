package scheduleRepo

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

// MongoScheduleRepo is the MongoDB-backed ScheduleRepository.
type MongoScheduleRepo struct {
	scheduleColl *mongo.Collection
	policyColl   *mongo.Collection
	blockedColl  *mongo.Collection
	defaults     models.BookingPolicy
}

// NewMongoScheduleRepo builds the repository. defaults fill unset policy
// fields on load.
func NewMongoScheduleRepo(defaults models.BookingPolicy) *MongoScheduleRepo {
	return &MongoScheduleRepo{
		scheduleColl: database.Collection("schedules"),
		policyColl:   database.Collection("booking_policies"),
		blockedColl:  database.Collection("blocked_dates"),
		defaults:     defaults,
	}
}

func (r *MongoScheduleRepo) LoadSchedule(ctx context.Context, expertID models.ExpertID) (*models.WeeklySchedule, error) {
	var schedule models.WeeklySchedule
	err := r.scheduleColl.FindOne(ctx, bson.M{"expert_id": expertID}).Decode(&schedule)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "no schedule for expert %s", expertID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule for expert %s: %w", expertID, err)
	}
	return &schedule, nil
}

func (r *MongoScheduleRepo) SaveSchedule(ctx context.Context, schedule *models.WeeklySchedule) error {
	if err := schedule.Validate(); err != nil {
		return utils.WrapE(utils.KindPreconditionFailed, err, "invalid schedule")
	}
	schedule.UpdatedAt = time.Now().UTC()
	opts := options.Replace().SetUpsert(true)
	if _, err := r.scheduleColl.ReplaceOne(ctx, bson.M{"expert_id": schedule.ExpertID}, schedule, opts); err != nil {
		return fmt.Errorf("failed to save schedule for expert %s: %w", schedule.ExpertID, err)
	}
	return nil
}

// policyDoc wraps the policy with its owner for storage.
type policyDoc struct {
	ExpertID models.ExpertID      `bson:"expert_id"`
	Policy   models.BookingPolicy `bson:"policy"`
}

func (r *MongoScheduleRepo) LoadPolicy(ctx context.Context, expertID models.ExpertID) (models.BookingPolicy, error) {
	var doc policyDoc
	err := r.policyColl.FindOne(ctx, bson.M{"expert_id": expertID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return r.defaults, nil
	}
	if err != nil {
		return models.BookingPolicy{}, fmt.Errorf("failed to load policy for expert %s: %w", expertID, err)
	}
	return doc.Policy.ApplyDefaults(r.defaults), nil
}

func (r *MongoScheduleRepo) SavePolicy(ctx context.Context, expertID models.ExpertID, policy models.BookingPolicy) error {
	if err := policy.Validate(); err != nil {
		return utils.WrapE(utils.KindPreconditionFailed, err, "invalid booking policy")
	}
	opts := options.Replace().SetUpsert(true)
	doc := policyDoc{ExpertID: expertID, Policy: policy}
	if _, err := r.policyColl.ReplaceOne(ctx, bson.M{"expert_id": expertID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save policy for expert %s: %w", expertID, err)
	}
	return nil
}

func (r *MongoScheduleRepo) ListBlockedDates(ctx context.Context, expertID models.ExpertID, fromLocalDate, toLocalDate string) ([]models.BlockedDate, error) {
	filter := bson.M{
		"expert_id":  expertID,
		"local_date": bson.M{"$gte": fromLocalDate, "$lte": toLocalDate},
	}
	cur, err := r.blockedColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked dates for expert %s: %w", expertID, err)
	}
	defer cur.Close(ctx)

	var blocked []models.BlockedDate
	if err := cur.All(ctx, &blocked); err != nil {
		return nil, fmt.Errorf("failed to decode blocked dates: %w", err)
	}
	return blocked, nil
}

func (r *MongoScheduleRepo) AddBlockedDate(ctx context.Context, blocked *models.BlockedDate) error {
	if _, err := time.Parse("2006-01-02", blocked.LocalDate); err != nil {
		return utils.E(utils.KindPreconditionFailed, "invalid blocked date %q", blocked.LocalDate)
	}
	blocked.CreatedAt = time.Now().UTC()
	if _, err := r.blockedColl.InsertOne(ctx, blocked); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil // already blocked, idempotent
		}
		return fmt.Errorf("failed to add blocked date: %w", err)
	}
	return nil
}

func (r *MongoScheduleRepo) RemoveBlockedDate(ctx context.Context, expertID models.ExpertID, localDate string) error {
	if _, err := r.blockedColl.DeleteOne(ctx, bson.M{"expert_id": expertID, "local_date": localDate}); err != nil {
		return fmt.Errorf("failed to remove blocked date: %w", err)
	}
	return nil
}

// EnsureIndexes creates the schedule store indexes.
func (r *MongoScheduleRepo) EnsureIndexes(ctx context.Context) error {
	if _, err := r.scheduleColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expert_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create schedule index: %w", err)
	}
	if _, err := r.policyColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expert_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create policy index: %w", err)
	}
	if _, err := r.blockedColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expert_id", Value: 1}, {Key: "local_date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create blocked date index: %w", err)
	}
	return nil
}
