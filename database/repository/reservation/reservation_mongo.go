package reservationRepo

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
)

// MongoReservationRepo is the MongoDB-backed ReservationRepository. It holds
// both the reservation and meeting collections so overlap checks and the
// confirm transaction stay inside a single session.
type MongoReservationRepo struct {
	reservationColl *mongo.Collection
	meetingColl     *mongo.Collection
	transferColl    *mongo.Collection
}

// NewMongoReservationRepo builds the repository over the shared client.
func NewMongoReservationRepo() *MongoReservationRepo {
	return &MongoReservationRepo{
		reservationColl: database.Collection("reservations"),
		meetingColl:     database.Collection("meetings"),
		transferColl:    database.Collection("transfers"),
	}
}

// activeReservationFilter matches reservations that still occupy their slot:
// CONFIRMED rows, and HELD rows whose expiry has not passed.
func activeReservationFilter(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"status": models.ReservationConfirmed},
		bson.M{"status": models.ReservationHeld, "expires_at": bson.M{"$gt": now}},
	}}
}

func overlapFilter(expertID models.ExpertID, start, end time.Time) bson.M {
	return bson.M{
		"expert_id": expertID,
		"start":     bson.M{"$lt": end},
		"end":       bson.M{"$gt": start},
	}
}

// HoldTransactionally checks for overlaps and inserts the hold in one
// transaction. Snapshot isolation means two concurrent transactions with
// overlapping but distinct starts would not conflict here; the caller
// serializes per expert before entering.
func (r *MongoReservationRepo) HoldTransactionally(ctx context.Context, res *models.Reservation, now time.Time) error {
	client := r.reservationColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		resFilter := overlapFilter(res.ExpertID, res.Start, res.End)
		for k, v := range activeReservationFilter(now) {
			resFilter[k] = v
		}
		n, err := r.reservationColl.CountDocuments(sc, resFilter)
		if err != nil {
			return fmt.Errorf("overlap check failed: %w", err)
		}
		if n > 0 {
			return utils.E(utils.KindConflict, "slot %s already held for expert %s", res.Start.UTC().Format(time.RFC3339), res.ExpertID)
		}

		meetingFilter := overlapFilter(res.ExpertID, res.Start, res.End)
		meetingFilter["active"] = true
		n, err = r.meetingColl.CountDocuments(sc, meetingFilter)
		if err != nil {
			return fmt.Errorf("meeting overlap check failed: %w", err)
		}
		if n > 0 {
			return utils.E(utils.KindConflict, "slot %s already booked for expert %s", res.Start.UTC().Format(time.RFC3339), res.ExpertID)
		}

		if _, err := r.reservationColl.InsertOne(sc, res); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return utils.E(utils.KindConflict, "slot %s already held for expert %s", res.Start.UTC().Format(time.RFC3339), res.ExpertID)
			}
			return fmt.Errorf("insert reservation failed: %w", err)
		}
		return nil
	}

	return r.runTxn(ctx, sess, txnFn)
}

func (r *MongoReservationRepo) AttachPaymentSession(ctx context.Context, id models.ReservationID, sessionID models.PaymentSessionID) error {
	res, err := r.reservationColl.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"payment_session_id": sessionID}},
	)
	if err != nil {
		return fmt.Errorf("failed to attach payment session to reservation %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return utils.E(utils.KindNotFound, "reservation %s not found", id)
	}
	return nil
}

func (r *MongoReservationRepo) GetByID(ctx context.Context, id models.ReservationID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.reservationColl.FindOne(ctx, bson.M{"id": id}).Decode(&reservation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "reservation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservation %s: %w", id, err)
	}
	return &reservation, nil
}

func (r *MongoReservationRepo) GetByPaymentSession(ctx context.Context, sessionID models.PaymentSessionID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.reservationColl.FindOne(ctx, bson.M{"payment_session_id": sessionID}).Decode(&reservation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.E(utils.KindNotFound, "no reservation for payment session %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservation by session %s: %w", sessionID, err)
	}
	return &reservation, nil
}

func (r *MongoReservationRepo) ConfirmTransactionally(ctx context.Context, id models.ReservationID, capturedPaymentID string, meeting *models.Meeting, transfer *models.PaymentTransfer, now time.Time) error {
	client := r.reservationColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		// The conditional update is the linearization point: confirm wins
		// over a concurrent sweep only if the row is still HELD and live.
		res, err := r.reservationColl.UpdateOne(sc,
			bson.M{"id": id, "status": models.ReservationHeld, "expires_at": bson.M{"$gt": now}},
			bson.M{"$set": bson.M{
				"status":              models.ReservationConfirmed,
				"captured_payment_id": capturedPaymentID,
			}},
		)
		if err != nil {
			return fmt.Errorf("confirm update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return utils.E(utils.KindGone, "reservation %s is not a live hold", id)
		}

		if _, err := r.meetingColl.InsertOne(sc, meeting); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return utils.E(utils.KindConflict, "meeting slot %s already taken for expert %s", meeting.Start.UTC().Format(time.RFC3339), meeting.ExpertID)
			}
			return fmt.Errorf("insert meeting failed: %w", err)
		}

		if _, err := r.transferColl.InsertOne(sc, transfer); err != nil {
			return fmt.Errorf("insert transfer failed: %w", err)
		}
		return nil
	}

	return r.runTxn(ctx, sess, txnFn)
}

func (r *MongoReservationRepo) Cancel(ctx context.Context, id models.ReservationID, reason string) (bool, error) {
	res, err := r.reservationColl.UpdateOne(ctx,
		bson.M{"id": id, "status": models.ReservationHeld},
		bson.M{"$set": bson.M{"status": models.ReservationCancelled, "abort_reason": reason}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel reservation %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoReservationRepo) ExtendForVoucher(ctx context.Context, id models.ReservationID, newExpiry time.Time) error {
	res, err := r.reservationColl.UpdateOne(ctx,
		bson.M{"id": id, "status": models.ReservationHeld, "pending_voucher": false},
		bson.M{"$set": bson.M{"pending_voucher": true, "expires_at": newExpiry}},
	)
	if err != nil {
		return fmt.Errorf("failed to extend reservation %s for voucher: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return utils.E(utils.KindGone, "reservation %s is not a live hold", id)
	}
	return nil
}

func (r *MongoReservationRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.reservationColl.UpdateMany(ctx,
		bson.M{"status": models.ReservationHeld, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"status": models.ReservationExpired}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired reservations: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoReservationRepo) ListActiveOverlapping(ctx context.Context, expertID models.ExpertID, start, end, now time.Time) ([]models.Reservation, error) {
	filter := overlapFilter(expertID, start, end)
	for k, v := range activeReservationFilter(now) {
		filter[k] = v
	}
	cur, err := r.reservationColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list active reservations: %w", err)
	}
	defer cur.Close(ctx)

	var reservations []models.Reservation
	if err := cur.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

func (r *MongoReservationRepo) runTxn(ctx context.Context, sess mongo.Session, txnFn func(mongo.SessionContext) error) error {
	var txnErr error
	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			txnErr = err
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		// Surface the domain error untouched so callers can map its kind.
		if txnErr != nil {
			return txnErr
		}
		return fmt.Errorf("reservation transaction failed: %w", err)
	}
	return nil
}
