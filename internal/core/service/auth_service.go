package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

const minPasswordLength = 6

// AuthService implements helper self-registration and local login.
type AuthService struct {
	users      ports.UserRepository
	categories ports.CategoryRepository
	settings   ports.SettingsRepository
	jwtSecret  string
	tokenTTL   time.Duration
}

func NewAuthService(users ports.UserRepository, categories ports.CategoryRepository, settings ports.SettingsRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{users: users, categories: categories, settings: settings, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// RegisterHelper creates an active helper account and returns a session token.
func (s *AuthService) RegisterHelper(ctx context.Context, in ports.RegisterHelperInput) (string, *domain.User, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", nil, domain.WrapStorage("load settings", err)
	}
	if !settings.HelperRegistrationOpen {
		return "", nil, domain.ErrRegistrationClosed
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return "", nil, domain.NewValidationError("username", "username is required")
	}
	if len(in.Password) < minPasswordLength {
		return "", nil, domain.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	specs := make([]string, 0, len(in.Specializations))
	for _, name := range in.Specializations {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(specs, name) {
			continue
		}
		if _, err := s.categories.FindByName(ctx, name); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return "", nil, domain.NewValidationError("specializations", fmt.Sprintf("unknown category %q", name))
			}
			return "", nil, domain.WrapStorage("find category", err)
		}
		specs = append(specs, name)
	}
	if len(specs) < domain.MinHelperSpecializations {
		return "", nil, domain.NewValidationError("specializations",
			fmt.Sprintf("select at least %d specialization categories", domain.MinHelperSpecializations))
	}
	if err := in.Destination.Validate(); err != nil {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	dest := in.Destination
	user := &domain.User{
		Username:        username,
		PasswordHash:    string(hash),
		AuthType:        domain.AuthTypeLocal,
		Roles:           []string{domain.RoleHelper},
		Active:          true,
		Specializations: specs,
		Destination:     &dest,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := user.Validate(); err != nil {
		return "", nil, err
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return "", nil, domain.WrapStorage("create user", err)
	}
	token, err := s.generateToken(created)
	if err != nil {
		return "", nil, err
	}
	return token, created, nil
}

// Login verifies local credentials. Inactive accounts are refused even with
// a correct password.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, domain.WrapStorage("find user", err)
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return "", nil, domain.ErrUserInactive
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"roles":    user.Roles,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
