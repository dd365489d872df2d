package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

const collectionPayouts = "payout_transactions"

// PayoutLedger settles assignments inside a multi-document transaction.
// It requires a replica set or sharded cluster.
type PayoutLedger struct {
	client      *mongo.Client
	assignments *mongo.Collection
	users       *mongo.Collection
	payouts     *mongo.Collection
}

func NewPayoutLedger(client *mongo.Client, db *mongo.Database) *PayoutLedger {
	return &PayoutLedger{
		client:      client,
		assignments: db.Collection(collectionAssignments),
		users:       db.Collection(collectionUsers),
		payouts:     db.Collection(collectionPayouts),
	}
}

type mongoPayoutTxn struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	AssignmentID  string               `bson:"assignment_id"`
	HelperID      string               `bson:"helper_id"`
	Amount        primitive.Decimal128 `bson:"amount"`
	TransactionID string               `bson:"transaction_id"`
	Notes         string               `bson:"notes,omitempty"`
	ProcessedBy   string               `bson:"processed_by"`
	PaidAt        time.Time            `bson:"paid_at"`
}

func (d *mongoPayoutTxn) toDomain() *domain.PayoutTransaction {
	return &domain.PayoutTransaction{
		ID:            d.ID.Hex(),
		AssignmentID:  d.AssignmentID,
		HelperID:      d.HelperID,
		Amount:        fromDecimal128(d.Amount),
		TransactionID: d.TransactionID,
		Notes:         d.Notes,
		PaidAt:        d.PaidAt.UTC(),
	}
}

type settlement struct {
	assignment *domain.Assignment
	txn        *domain.PayoutTransaction
}

// RecordPayout performs the paid transition, the receipt insert and the
// earnings increment in one transaction. The unique index on assignment_id
// rejects a second receipt even if the status filter were bypassed.
func (l *PayoutLedger) RecordPayout(ctx context.Context, rec ports.PayoutRecord) (*domain.Assignment, *domain.PayoutTransaction, error) {
	aoid, err := objectID("assignment", rec.AssignmentID)
	if err != nil {
		return nil, nil, err
	}
	hoid, err := objectID("user", rec.HelperID)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	session, err := l.client.StartSession()
	if err != nil {
		return nil, nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	paidAt := rec.PaidAt.UTC()
	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		filter := bson.M{
			"_id":       aoid,
			"status":    string(domain.StatusReadyForPayout),
			"helper_id": rec.HelperID,
			"payout":    bson.M{"$ne": nil},
		}
		update := bson.M{
			"$set": bson.M{"status": string(domain.StatusPaid), "paid_at": paidAt},
			"$push": bson.M{"status_history": mongoHistory{
				Status: string(domain.StatusPaid), Timestamp: paidAt, ActorID: rec.ActorID, Notes: rec.Notes,
			}},
		}
		var doc mongoAssignment
		err := l.assignments.FindOneAndUpdate(sc, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("assignment %s is not payable: %w", rec.AssignmentID, domain.ErrConflict)
		}
		if err != nil {
			return nil, fmt.Errorf("mark paid: %w", err)
		}

		txn := mongoPayoutTxn{
			AssignmentID:  rec.AssignmentID,
			HelperID:      rec.HelperID,
			Amount:        doc.Payout.HelperAmount,
			TransactionID: rec.TransactionID,
			Notes:         rec.Notes,
			ProcessedBy:   rec.ActorID,
			PaidAt:        paidAt,
		}
		res, err := l.payouts.InsertOne(sc, txn)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, fmt.Errorf("payout for %s already recorded: %w", rec.AssignmentID, domain.ErrConflict)
			}
			return nil, fmt.Errorf("insert payout transaction: %w", err)
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			txn.ID = oid
		}

		ur, err := l.users.UpdateOne(sc, bson.M{"_id": hoid}, bson.M{
			"$inc": bson.M{"total_earnings": txn.Amount},
			"$set": bson.M{"updated_at": paidAt.Unix()},
		})
		if err != nil {
			return nil, fmt.Errorf("credit helper earnings: %w", err)
		}
		if ur.MatchedCount == 0 {
			return nil, domain.NewNotFoundError("user", rec.HelperID)
		}

		return settlement{assignment: doc.toDomain(), txn: txn.toDomain()}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	s := result.(settlement)
	return s.assignment, s.txn, nil
}

func (l *PayoutLedger) FindByAssignment(ctx context.Context, assignmentID string) (*domain.PayoutTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoPayoutTxn
	if err := l.payouts.FindOne(ctx, bson.M{"assignment_id": assignmentID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("payout transaction", assignmentID)
		}
		return nil, fmt.Errorf("find payout transaction: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes enforces one receipt per assignment.
func (l *PayoutLedger) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignment_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "helper_id", Value: 1}, {Key: "paid_at", Value: -1}}},
	}
	_, err := l.payouts.Indexes().CreateMany(ctx, indexes)
	return err
}
