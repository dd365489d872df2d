package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/assignhub/marketplace/internal/core/domain"
)

const (
	collectionSettings = "global_settings"
	settingsID         = "global"
)

// SettingsRepository stores the settings singleton as one document.
type SettingsRepository struct {
	col *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{col: db.Collection(collectionSettings)}
}

type mongoSettings struct {
	ID                     string `bson:"_id"`
	HelperRegistrationOpen bool   `bson:"helper_registration_open"`
}

// Get returns the stored settings, or the defaults when none were saved yet.
func (r *SettingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoSettings
	if err := r.col.FindOne(ctx, bson.M{"_id": settingsID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &domain.Settings{}, nil
		}
		return nil, fmt.Errorf("find settings: %w", err)
	}
	return &domain.Settings{HelperRegistrationOpen: doc.HelperRegistrationOpen}, nil
}

func (r *SettingsRepository) SetHelperRegistrationOpen(ctx context.Context, open bool) (*domain.Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc mongoSettings
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": settingsID},
		bson.M{"$set": bson.M{"helper_registration_open": open}},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return &domain.Settings{HelperRegistrationOpen: doc.HelperRegistrationOpen}, nil
}
