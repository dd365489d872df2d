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
)

const collectionUsers = "users"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(collectionUsers)}
}

type mongoDestination struct {
	Kind          string `bson:"kind"`
	AccountNumber string `bson:"account_number,omitempty"`
	AccountName   string `bson:"account_name,omitempty"`
	PayPalEmail   string `bson:"paypal_email,omitempty"`
	CashAppTag    string `bson:"cashapp_tag,omitempty"`
	CryptoAddress string `bson:"crypto_address,omitempty"`
	CryptoNetwork string `bson:"crypto_network,omitempty"`
}

type mongoUser struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Username        string               `bson:"username"`
	DiscordID       string               `bson:"discord_id,omitempty"`
	Email           string               `bson:"email,omitempty"`
	PasswordHash    string               `bson:"password_hash,omitempty"`
	AuthType        string               `bson:"auth_type"`
	Roles           []string             `bson:"roles"`
	IsAdmin         bool                 `bson:"is_admin"`
	IsActive        bool                 `bson:"is_active"`
	Specializations []string             `bson:"specializations"`
	TotalEarnings   primitive.Decimal128 `bson:"total_earnings"`
	Destination     *mongoDestination    `bson:"payment_destination,omitempty"`
	CreatedAt       int64                `bson:"created_at"`
	UpdatedAt       int64                `bson:"updated_at"`
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toMongoUser(user)
	if err != nil {
		return nil, err
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID("user", id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid}, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, username)
}

func (r *UserRepository) FindByDiscordID(ctx context.Context, discordID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"discord_id": discordID}, discordID)
}

// FindHelpersFor returns active helpers whose specializations include category.
func (r *UserRepository) FindHelpersFor(ctx context.Context, category string) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"roles":           domain.RoleHelper,
		"is_active":       true,
		"specializations": category,
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find helpers: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode helpers: %w", err)
	}
	out := make([]*domain.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// UpdateRoles replaces the role set and keeps the is_admin flag in step.
func (r *UserRepository) UpdateRoles(ctx context.Context, id string, roles []string) (*domain.User, error) {
	withRoles := &domain.User{Roles: roles}
	return r.update(ctx, id, bson.M{"roles": roles, "is_admin": withRoles.IsAdmin()})
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	return r.update(ctx, id, bson.M{"is_active": active})
}

// UpsertByDiscordID creates the user or refreshes its name, roles and active
// flag. Earnings and specializations of an existing user are preserved.
func (r *UserRepository) UpsertByDiscordID(ctx context.Context, user *domain.User) (*domain.User, error) {
	earnings, err := toDecimal128(user.TotalEarnings)
	if err != nil {
		return nil, fmt.Errorf("total_earnings: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC().Unix()
	update := bson.M{
		"$set": bson.M{
			"username":   user.Username,
			"roles":      user.Roles,
			"is_admin":   user.IsAdmin(),
			"is_active":  user.Active,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"auth_type":       domain.AuthTypeDiscord,
			"specializations": []string{},
			"total_earnings":  earnings,
			"created_at":      now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc mongoUser
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"discord_id": user.DiscordID}, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID("user", id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NewNotFoundError("user", id)
	}
	return nil
}

// EnsureIndexes creates the unique username and external identity indexes.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "discord_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "roles", Value: 1}, {Key: "specializations", Value: 1}}},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, key string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("user", key)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) update(ctx context.Context, id string, set bson.M) (*domain.User, error) {
	oid, err := objectID("user", id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC().Unix()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoUser
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("user", id)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return doc.toDomain(), nil
}

func toMongoUser(u *domain.User) (mongoUser, error) {
	earnings, err := toDecimal128(u.TotalEarnings)
	if err != nil {
		return mongoUser{}, fmt.Errorf("total_earnings: %w", err)
	}
	doc := mongoUser{
		Username:        u.Username,
		DiscordID:       u.DiscordID,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		AuthType:        u.AuthType,
		Roles:           u.Roles,
		IsAdmin:         u.IsAdmin(),
		IsActive:        u.Active,
		Specializations: u.Specializations,
		TotalEarnings:   earnings,
		CreatedAt:       u.CreatedAt.Unix(),
		UpdatedAt:       u.UpdatedAt.Unix(),
	}
	if doc.Specializations == nil {
		doc.Specializations = []string{}
	}
	if d := u.Destination; d != nil {
		doc.Destination = &mongoDestination{
			Kind:          string(d.Kind),
			AccountNumber: d.AccountNumber,
			AccountName:   d.AccountName,
			PayPalEmail:   d.PayPalEmail,
			CashAppTag:    d.CashAppTag,
			CryptoAddress: d.CryptoAddress,
			CryptoNetwork: d.CryptoNetwork,
		}
	}
	return doc, nil
}

func (mu *mongoUser) toDomain() *domain.User {
	u := &domain.User{
		ID:              mu.ID.Hex(),
		Username:        mu.Username,
		DiscordID:       mu.DiscordID,
		Email:           mu.Email,
		PasswordHash:    mu.PasswordHash,
		AuthType:        mu.AuthType,
		Roles:           mu.Roles,
		Active:          mu.IsActive,
		Specializations: mu.Specializations,
		TotalEarnings:   fromDecimal128(mu.TotalEarnings),
		CreatedAt:       unixToTime(mu.CreatedAt),
		UpdatedAt:       unixToTime(mu.UpdatedAt),
	}
	if d := mu.Destination; d != nil {
		u.Destination = &domain.PaymentDestination{
			Kind:          domain.DestinationKind(d.Kind),
			AccountNumber: d.AccountNumber,
			AccountName:   d.AccountName,
			PayPalEmail:   d.PayPalEmail,
			CashAppTag:    d.CashAppTag,
			CryptoAddress: d.CryptoAddress,
			CryptoNetwork: d.CryptoNetwork,
		}
	}
	return u
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
