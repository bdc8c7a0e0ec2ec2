package reservationRepo

import (
	"context"
	"fmt"

	"meetwise/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the reservation indexes. The partial unique index on
// (expert_id, start) over non-terminal statuses is the backstop for the
// no-double-booking guarantee under concurrent holds.
func (r *MongoReservationRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.reservationColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "expert_id", Value: 1}, {Key: "start", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": bson.A{models.ReservationHeld, models.ReservationConfirmed}},
				}),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "payment_session_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create reservation indexes: %w", err)
	}
	return nil
}
