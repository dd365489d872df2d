package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

const collectionAssignments = "assignments"

type AssignmentRepository struct {
	col *mongo.Collection
}

func NewAssignmentRepository(db *mongo.Database) *AssignmentRepository {
	return &AssignmentRepository{col: db.Collection(collectionAssignments)}
}

type mongoAttachment struct {
	Locator  string `bson:"locator"`
	Filename string `bson:"filename"`
}

type mongoHistory struct {
	Status    string    `bson:"status"`
	Timestamp time.Time `bson:"timestamp"`
	ActorID   string    `bson:"actor_id,omitempty"`
	Notes     string    `bson:"notes,omitempty"`
}

type mongoPayout struct {
	HelperAmount  primitive.Decimal128 `bson:"helper_amount"`
	PlatformFee   primitive.Decimal128 `bson:"platform_fee"`
	OperatorShare primitive.Decimal128 `bson:"operator_share"`
	PartnerShare  primitive.Decimal128 `bson:"partner_share"`
}

type mongoAssignment struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty"`
	OwnerID            string               `bson:"owner_id"`
	HelperID           string               `bson:"helper_id,omitempty"`
	Title              string               `bson:"title"`
	Description        string               `bson:"description"`
	DescriptionSummary string               `bson:"description_summary,omitempty"`
	AttachmentSummary  string               `bson:"attachment_summary,omitempty"`
	Category           string               `bson:"category"`
	Complexity         string               `bson:"complexity"`
	PaymentAmount      primitive.Decimal128 `bson:"payment_amount"`
	Payout             *mongoPayout         `bson:"payout,omitempty"`
	Deadline           time.Time            `bson:"deadline"`
	Status             string               `bson:"status"`
	Attachments        []mongoAttachment    `bson:"attachments"`
	CompletedWork      []mongoAttachment    `bson:"completed_work_attachments"`
	TicketChannelID    string               `bson:"ticket_channel_id,omitempty"`
	CreatedAt          time.Time            `bson:"created_at"`
	CompletedAt        *time.Time           `bson:"completed_at,omitempty"`
	PaidAt             *time.Time           `bson:"paid_at,omitempty"`
	StatusHistory      []mongoHistory       `bson:"status_history"`
}

// Create inserts a new assignment document and sets a.ID.
func (r *AssignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toMongoAssignment(a)
	if err != nil {
		return err
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid.Hex()
	}
	return nil
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*domain.Assignment, error) {
	oid, err := objectID("assignment", id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAssignment
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("assignment", id)
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns a page of assignments matching the filter, newest first.
func (r *AssignmentRepository) List(ctx context.Context, f ports.ListAssignmentsFilter) ([]*domain.Assignment, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	if f.HelperID != "" {
		filter["helper_id"] = f.HelperID
	}
	if f.Unassigned {
		filter["helper_id"] = unassigned()
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": statusValues(f.Statuses)}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAssignment
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode assignments: %w", err)
	}
	items := make([]*domain.Assignment, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toDomain())
	}
	return items, total, nil
}

// Transition applies t with a single FindOneAndUpdate whose filter carries the
// preconditions, then appends the history entry in the same write.
func (r *AssignmentRepository) Transition(ctx context.Context, t ports.Transition) (*domain.Assignment, error) {
	oid, err := objectID("assignment", t.AssignmentID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":    oid,
		"status": bson.M{"$in": statusValues(t.From)},
	}
	if t.RequireUnassigned {
		filter["helper_id"] = unassigned()
	}
	if t.RequireHelperID != "" {
		filter["helper_id"] = t.RequireHelperID
	}

	set := bson.M{"status": string(t.To)}
	if t.Set.HelperID != nil {
		set["helper_id"] = *t.Set.HelperID
	}
	if t.Set.CompletedWork != nil {
		set["completed_work_attachments"] = toMongoAttachments(*t.Set.CompletedWork)
	}
	if t.Set.CompletedAt != nil {
		set["completed_at"] = t.Set.CompletedAt.UTC()
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"status_history": toMongoHistory(t.History)},
	}

	return r.findOneAndUpdate(ctx, oid, t.AssignmentID, filter, update)
}

// SetPayout overwrites the payout breakdown while the assignment is open.
func (r *AssignmentRepository) SetPayout(ctx context.Context, id string, payout domain.Payout) (*domain.Assignment, error) {
	oid, err := objectID("assignment", id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":    oid,
		"status": bson.M{"$in": statusValues(domain.ActiveStatuses())},
	}
	doc, err := toMongoPayout(payout)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"payout": doc}}
	return r.findOneAndUpdate(ctx, oid, id, filter, update)
}

func (r *AssignmentRepository) ListOverdue(ctx context.Context, now time.Time) ([]*domain.Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"status":   string(domain.StatusAccepted),
		"deadline": bson.M{"$lt": now.UTC()},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "deadline", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list overdue: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAssignment
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode overdue: %w", err)
	}
	out := make([]*domain.Assignment, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *AssignmentRepository) CountActiveForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"$or":    bson.A{bson.M{"owner_id": userID}, bson.M{"helper_id": userID}},
		"status": bson.M{"$in": statusValues(domain.ActiveStatuses())},
	}
	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return n, nil
}

func (r *AssignmentRepository) SumPayments(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, nil, "$payment_amount")
}

func (r *AssignmentRepository) SumPaidPayouts(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, bson.M{"status": string(domain.StatusPaid)}, "$payout.helper_amount")
}

func (r *AssignmentRepository) sum(ctx context.Context, match bson.M, field string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.M{
		"_id":   nil,
		"total": bson.M{"$sum": field},
	}}})

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("aggregate %s: %w", field, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total primitive.Decimal128 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("decode %s total: %w", field, err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return fromDecimal128(rows[0].Total), nil
}

// EnsureIndexes creates necessary indexes on the assignments collection.
func (r *AssignmentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "helper_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// findOneAndUpdate runs a conditional update. When nothing matched it tells a
// missing document apart from a failed precondition.
func (r *AssignmentRepository) findOneAndUpdate(ctx context.Context, oid primitive.ObjectID, id string, filter, update bson.M) (*domain.Assignment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoAssignment
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update assignment: %w", err)
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("count assignment: %w", err)
	}
	if n == 0 {
		return nil, domain.NewNotFoundError("assignment", id)
	}
	return nil, fmt.Errorf("assignment %s: preconditions not met: %w", id, domain.ErrConflict)
}

// unassigned matches a helper_id that is absent, null or empty.
func unassigned() bson.M {
	return bson.M{"$in": bson.A{nil, ""}}
}

func statusValues(statuses []domain.AssignmentStatus) bson.A {
	out := make(bson.A, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func toMongoAttachments(in []domain.Attachment) []mongoAttachment {
	out := make([]mongoAttachment, 0, len(in))
	for _, a := range in {
		out = append(out, mongoAttachment{Locator: a.Locator, Filename: a.Filename})
	}
	return out
}

func fromMongoAttachments(in []mongoAttachment) []domain.Attachment {
	out := make([]domain.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, domain.Attachment{Locator: a.Locator, Filename: a.Filename})
	}
	return out
}

func toMongoHistory(h domain.StatusHistoryEntry) mongoHistory {
	return mongoHistory{Status: string(h.Status), Timestamp: h.Timestamp.UTC(), ActorID: h.ActorID, Notes: h.Notes}
}

func toMongoPayout(p domain.Payout) (*mongoPayout, error) {
	var doc mongoPayout
	fields := []struct {
		dst *primitive.Decimal128
		src decimal.Decimal
	}{
		{&doc.HelperAmount, p.HelperAmount},
		{&doc.PlatformFee, p.PlatformFee},
		{&doc.OperatorShare, p.OperatorShare},
		{&doc.PartnerShare, p.PartnerShare},
	}
	for _, f := range fields {
		v, err := toDecimal128(f.src)
		if err != nil {
			return nil, fmt.Errorf("payout: %w", err)
		}
		*f.dst = v
	}
	return &doc, nil
}

func toMongoAssignment(a *domain.Assignment) (mongoAssignment, error) {
	amount, err := toDecimal128(a.PaymentAmount)
	if err != nil {
		return mongoAssignment{}, fmt.Errorf("payment_amount: %w", err)
	}
	doc := mongoAssignment{
		OwnerID:            a.OwnerID,
		HelperID:           a.HelperID,
		Title:              a.Title,
		Description:        a.Description,
		DescriptionSummary: a.DescriptionSummary,
		AttachmentSummary:  a.AttachmentSummary,
		Category:           a.Category,
		Complexity:         string(a.Complexity),
		PaymentAmount:      amount,
		Deadline:           a.Deadline.UTC(),
		Status:             string(a.Status),
		Attachments:        toMongoAttachments(a.Attachments),
		CompletedWork:      toMongoAttachments(a.CompletedWork),
		TicketChannelID:    a.TicketChannelID,
		CreatedAt:          a.CreatedAt.UTC(),
		CompletedAt:        a.CompletedAt,
		PaidAt:             a.PaidAt,
	}
	if a.Payout != nil {
		if doc.Payout, err = toMongoPayout(*a.Payout); err != nil {
			return mongoAssignment{}, err
		}
	}
	for _, h := range a.StatusHistory {
		doc.StatusHistory = append(doc.StatusHistory, toMongoHistory(h))
	}
	return doc, nil
}

func (d *mongoAssignment) toDomain() *domain.Assignment {
	a := &domain.Assignment{
		ID:                 d.ID.Hex(),
		OwnerID:            d.OwnerID,
		HelperID:           d.HelperID,
		Title:              d.Title,
		Description:        d.Description,
		DescriptionSummary: d.DescriptionSummary,
		AttachmentSummary:  d.AttachmentSummary,
		Category:           d.Category,
		Complexity:         domain.Complexity(d.Complexity),
		PaymentAmount:      fromDecimal128(d.PaymentAmount),
		Deadline:           d.Deadline.UTC(),
		Status:             domain.AssignmentStatus(d.Status),
		Attachments:        fromMongoAttachments(d.Attachments),
		CompletedWork:      fromMongoAttachments(d.CompletedWork),
		TicketChannelID:    d.TicketChannelID,
		CreatedAt:          d.CreatedAt.UTC(),
		CompletedAt:        d.CompletedAt,
		PaidAt:             d.PaidAt,
	}
	if d.Payout != nil {
		a.Payout = &domain.Payout{
			HelperAmount:  fromDecimal128(d.Payout.HelperAmount),
			PlatformFee:   fromDecimal128(d.Payout.PlatformFee),
			OperatorShare: fromDecimal128(d.Payout.OperatorShare),
			PartnerShare:  fromDecimal128(d.Payout.PartnerShare),
		}
	}
	for _, h := range d.StatusHistory {
		a.StatusHistory = append(a.StatusHistory, domain.StatusHistoryEntry{
			Status:    domain.AssignmentStatus(h.Status),
			Timestamp: h.Timestamp.UTC(),
			ActorID:   h.ActorID,
			Notes:     h.Notes,
		})
	}
	return a
}
