package meetingRepo

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

// MongoMeetingRepo is the MongoDB-backed MeetingRepository.
type MongoMeetingRepo struct {
	meetingColl *mongo.Collection
}

// NewMongoMeetingRepo builds the repository over the shared client.
func NewMongoMeetingRepo() *MongoMeetingRepo {
	return &MongoMeetingRepo{meetingColl: database.Collection("meetings")}
}

func (r *MongoMeetingRepo) GetByID(ctx context.Context, id models.MeetingID) (*models.Meeting, error) {
	var meeting models.Meeting
	err := r.meetingColl.FindOne(ctx, bson.M{"id": id}).Decode(&meeting)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "meeting %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meeting %s: %w", id, err)
	}
	return &meeting, nil
}

func (r *MongoMeetingRepo) FindByExpert(ctx context.Context, expertID models.ExpertID, from, to time.Time) ([]models.Meeting, error) {
	return r.find(ctx, bson.M{
		"expert_id": expertID,
		"start":     bson.M{"$gte": from, "$lt": to},
	})
}

func (r *MongoMeetingRepo) FindByGuest(ctx context.Context, guest models.GuestID, from, to time.Time) ([]models.Meeting, error) {
	return r.find(ctx, bson.M{
		"guest_identifier": guest,
		"start":            bson.M{"$gte": from, "$lt": to},
	})
}

func (r *MongoMeetingRepo) ListActiveOverlapping(ctx context.Context, expertID models.ExpertID, start, end time.Time) ([]models.Meeting, error) {
	return r.find(ctx, bson.M{
		"expert_id": expertID,
		"start":     bson.M{"$lt": end},
		"end":       bson.M{"$gt": start},
		"active":    true,
	})
}

func (r *MongoMeetingRepo) ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.Meeting, error) {
	return r.find(ctx, bson.M{
		"start":  bson.M{"$gte": from, "$lt": to},
		"active": true,
	})
}

func (r *MongoMeetingRepo) find(ctx context.Context, filter bson.M) ([]models.Meeting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})
	cur, err := r.meetingColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer cur.Close(ctx)

	var meetings []models.Meeting
	if err := cur.All(ctx, &meetings); err != nil {
		return nil, fmt.Errorf("failed to decode meetings: %w", err)
	}
	return meetings, nil
}

func (r *MongoMeetingRepo) Cancel(ctx context.Context, id models.MeetingID, reason, actor string, now time.Time) (*models.Meeting, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var meeting models.Meeting
	err := r.meetingColl.FindOneAndUpdate(ctx,
		bson.M{"id": id, "active": true},
		bson.M{"$set": bson.M{
			"active":        false,
			"cancelled_at":  now,
			"cancel_reason": reason,
			"cancel_actor":  actor,
		}},
		opts,
	).Decode(&meeting)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either unknown or already cancelled; disambiguate for the caller.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, utils.E(utils.KindGone, "meeting %s already cancelled", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel meeting %s: %w", id, err)
	}
	return &meeting, nil
}

func (r *MongoMeetingRepo) MarkRefunded(ctx context.Context, id models.MeetingID) error {
	_, err := r.meetingColl.UpdateOne(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{"payment_status": models.MeetingPaymentRefunded}})
	if err != nil {
		return fmt.Errorf("failed to mark meeting %s refunded: %w", id, err)
	}
	return nil
}

func (r *MongoMeetingRepo) SetCalendarEntryID(ctx context.Context, id models.MeetingID, entryID string) error {
	_, err := r.meetingColl.UpdateOne(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{"external_calendar_entry_id": entryID}})
	if err != nil {
		return fmt.Errorf("failed to set calendar entry for meeting %s: %w", id, err)
	}
	return nil
}

func (r *MongoMeetingRepo) ClearCalendarEntryID(ctx context.Context, id models.MeetingID) error {
	_, err := r.meetingColl.UpdateOne(ctx, bson.M{"id": id},
		bson.M{"$unset": bson.M{"external_calendar_entry_id": ""}})
	if err != nil {
		return fmt.Errorf("failed to clear calendar entry for meeting %s: %w", id, err)
	}
	return nil
}

func (r *MongoMeetingRepo) SetTransferState(ctx context.Context, id models.MeetingID, state string) error {
	_, err := r.meetingColl.UpdateOne(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{"transfer_state": state}})
	if err != nil {
		return fmt.Errorf("failed to set transfer state for meeting %s: %w", id, err)
	}
	return nil
}

// EnsureIndexes creates the meeting indexes. The unique (expert_id, start)
// index enforces the one-meeting-per-instant invariant at insert time.
func (r *MongoMeetingRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.meetingColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Partial over live meetings: a cancelled meeting frees its
			// slot for rebooking.
			Keys: bson.D{{Key: "expert_id", Value: 1}, {Key: "start", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys: bson.D{{Key: "guest_identifier", Value: 1}, {Key: "start", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create meeting indexes: %w", err)
	}
	return nil
}
