package ports

import (
	"context"

	"github.com/assignhub/marketplace/internal/core/domain"
)

// RegisterHelperInput carries a helper self-registration.
type RegisterHelperInput struct {
	Username        string
	Password        string
	Specializations []string
	Destination     domain.PaymentDestination
}

// AuthService handles local registration and login.
type AuthService interface {
	RegisterHelper(ctx context.Context, input RegisterHelperInput) (string, *domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}

// UserService contains the admin user-management operations.
type UserService interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateRoles(ctx context.Context, actor *domain.User, id string, roles []string) (*domain.User, error)
	SetActive(ctx context.Context, actor *domain.User, id string, active bool) (*domain.User, error)
	Delete(ctx context.Context, actor *domain.User, id string) error
	RegistrationOpen(ctx context.Context) (bool, error)
	SetRegistrationOpen(ctx context.Context, actor *domain.User, open bool) (bool, error)
}
