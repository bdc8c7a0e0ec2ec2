package transferRepo

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

// claimLease is how long a worker's disbursement claim stays exclusive.
const claimLease = 2 * time.Minute

// MongoTransferRepo is the MongoDB-backed TransferRepository.
type MongoTransferRepo struct {
	transferColl *mongo.Collection
}

// NewMongoTransferRepo builds the repository over the shared client.
func NewMongoTransferRepo() *MongoTransferRepo {
	return &MongoTransferRepo{transferColl: database.Collection("transfers")}
}

func (r *MongoTransferRepo) Insert(ctx context.Context, transfer *models.PaymentTransfer) error {
	now := time.Now().UTC()
	transfer.CreatedAt = now
	transfer.UpdatedAt = now
	if _, err := r.transferColl.InsertOne(ctx, transfer); err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

func (r *MongoTransferRepo) GetByID(ctx context.Context, id models.TransferID) (*models.PaymentTransfer, error) {
	var transfer models.PaymentTransfer
	err := r.transferColl.FindOne(ctx, bson.M{"id": id}).Decode(&transfer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "transfer %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transfer %s: %w", id, err)
	}
	return &transfer, nil
}

func (r *MongoTransferRepo) GetByMeeting(ctx context.Context, meetingID models.MeetingID) (*models.PaymentTransfer, error) {
	var transfer models.PaymentTransfer
	err := r.transferColl.FindOne(ctx, bson.M{"meeting_id": meetingID}).Decode(&transfer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "no transfer for meeting %s", meetingID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transfer for meeting %s: %w", meetingID, err)
	}
	return &transfer, nil
}

func (r *MongoTransferRepo) ListDue(ctx context.Context, now time.Time) ([]models.PaymentTransfer, error) {
	filter := bson.M{
		"status":       bson.M{"$in": bson.A{models.TransferPending, models.TransferApproved}},
		"scheduled_at": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}})
	cur, err := r.transferColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list due transfers: %w", err)
	}
	defer cur.Close(ctx)

	var transfers []models.PaymentTransfer
	if err := cur.All(ctx, &transfers); err != nil {
		return nil, fmt.Errorf("failed to decode transfers: %w", err)
	}
	return transfers, nil
}

func (r *MongoTransferRepo) Claim(ctx context.Context, id models.TransferID, now time.Time) (bool, error) {
	// Conditional update: the row must still be disbursable, without a
	// provider transfer, and not leased by a live worker.
	staleBefore := now.Add(-claimLease)
	res, err := r.transferColl.UpdateOne(ctx,
		bson.M{
			"id":                   id,
			"status":               bson.M{"$in": bson.A{models.TransferPending, models.TransferApproved}},
			"provider_transfer_id": bson.M{"$exists": false},
			"$or": bson.A{
				bson.M{"claimed_at": bson.M{"$exists": false}},
				bson.M{"claimed_at": nil},
				bson.M{"claimed_at": bson.M{"$lt": staleBefore}},
			},
		},
		bson.M{"$set": bson.M{"claimed_at": now, "updated_at": now}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim transfer %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoTransferRepo) ReleaseClaim(ctx context.Context, id models.TransferID) error {
	_, err := r.transferColl.UpdateOne(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{"claimed_at": nil, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to release claim on transfer %s: %w", id, err)
	}
	return nil
}

func (r *MongoTransferRepo) Approve(ctx context.Context, id models.TransferID) error {
	res, err := r.transferColl.UpdateOne(ctx,
		bson.M{"id": id, "status": models.TransferPending},
		bson.M{"$set": bson.M{"status": models.TransferApproved, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to approve transfer %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return utils.E(utils.KindConflict, "transfer %s is not pending", id)
	}
	return nil
}

func (r *MongoTransferRepo) MarkCompleted(ctx context.Context, id models.TransferID, providerTransferID string) error {
	res, err := r.transferColl.UpdateOne(ctx,
		bson.M{"id": id, "status": bson.M{"$in": bson.A{models.TransferPending, models.TransferApproved}}},
		bson.M{"$set": bson.M{
			"status":               models.TransferCompleted,
			"provider_transfer_id": providerTransferID,
			"claimed_at":           nil,
			"updated_at":           time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to complete transfer %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return utils.E(utils.KindConflict, "transfer %s is no longer disbursable", id)
	}
	return nil
}

func (r *MongoTransferRepo) RecordFailure(ctx context.Context, id models.TransferID, cause string, maxRetries int) (*models.PaymentTransfer, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var transfer models.PaymentTransfer
	err := r.transferColl.FindOneAndUpdate(ctx,
		bson.M{"id": id, "status": bson.M{"$in": bson.A{models.TransferPending, models.TransferApproved}}},
		bson.M{
			"$inc": bson.M{"retry_count": 1},
			"$set": bson.M{"last_error": cause, "claimed_at": nil, "updated_at": time.Now().UTC()},
		},
		opts,
	).Decode(&transfer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindConflict, "transfer %s is no longer disbursable", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record failure for transfer %s: %w", id, err)
	}

	if transfer.RetryCount >= maxRetries {
		if _, err := r.transferColl.UpdateOne(ctx,
			bson.M{"id": id, "status": bson.M{"$in": bson.A{models.TransferPending, models.TransferApproved}}},
			bson.M{"$set": bson.M{"status": models.TransferFailed, "updated_at": time.Now().UTC()}},
		); err != nil {
			return nil, fmt.Errorf("failed to mark transfer %s failed: %w", id, err)
		}
		transfer.Status = models.TransferFailed
	}
	return &transfer, nil
}

func (r *MongoTransferRepo) VoidByMeeting(ctx context.Context, meetingID models.MeetingID) (bool, error) {
	res, err := r.transferColl.UpdateOne(ctx,
		bson.M{
			"meeting_id": meetingID,
			"status":     bson.M{"$in": bson.A{models.TransferPending, models.TransferApproved}},
		},
		bson.M{"$set": bson.M{"status": models.TransferCancelled, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to void transfer for meeting %s: %w", meetingID, err)
	}
	return res.ModifiedCount > 0, nil
}

// EnsureIndexes creates the transfer indexes.
func (r *MongoTransferRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.transferColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "meeting_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create transfer indexes: %w", err)
	}
	return nil
}
