package ports

import (
	"context"

	"github.com/assignhub/marketplace/internal/core/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByUsername includes the password hash.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByDiscordID(ctx context.Context, discordID string) (*domain.User, error)
	// FindHelpersFor returns active helpers specialized in category.
	FindHelpersFor(ctx context.Context, category string) ([]*domain.User, error)
	UpdateRoles(ctx context.Context, id string, roles []string) (*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) (*domain.User, error)
	// UpsertByDiscordID creates or updates the user keyed by its external identity.
	UpsertByDiscordID(ctx context.Context, u *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
	Upsert(ctx context.Context, c *domain.Category) error
}

// SettingsRepository reads and writes the global settings singleton.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	SetHelperRegistrationOpen(ctx context.Context, open bool) (*domain.Settings, error)
}
