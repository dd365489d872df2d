package service

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

type userService struct {
	users       ports.UserRepository
	assignments ports.AssignmentRepository
	settings    ports.SettingsRepository
	log         zerolog.Logger
}

// NewUserService returns the admin user-management service.
func NewUserService(users ports.UserRepository, assignments ports.AssignmentRepository, settings ports.SettingsRepository, log zerolog.Logger) ports.UserService {
	return &userService{users: users, assignments: assignments, settings: settings, log: log}
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.WrapStorage("find user", err)
	}
	return u, nil
}

func (s *userService) UpdateRoles(ctx context.Context, actor *domain.User, id string, roles []string) (*domain.User, error) {
	if !domain.IsAdmin(actor) {
		return nil, domain.NewAuthorizationError("admin role required")
	}
	var clean []string
	for _, r := range roles {
		if r != domain.RoleAdmin && r != domain.RoleClient && r != domain.RoleHelper {
			return nil, domain.NewValidationError("roles", "unknown role "+r)
		}
		if !slices.Contains(clean, r) {
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return nil, domain.NewValidationError("roles", "at least one role is required")
	}
	if actor.ID == id && !slices.Contains(clean, domain.RoleAdmin) {
		return nil, domain.NewValidationError("roles", "you cannot remove your own admin role")
	}

	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if slices.Contains(clean, domain.RoleHelper) && len(target.Specializations) < domain.MinHelperSpecializations {
		return nil, domain.NewValidationError("roles", "helpers must specialize in at least 3 categories")
	}

	updated, err := s.users.UpdateRoles(ctx, id, clean)
	if err != nil {
		return nil, domain.WrapStorage("update roles", err)
	}
	s.log.Info().Str("user_id", id).Strs("roles", clean).Str("admin_id", actor.ID).Msg("user roles updated")
	return updated, nil
}

func (s *userService) SetActive(ctx context.Context, actor *domain.User, id string, active bool) (*domain.User, error) {
	if !domain.IsAdmin(actor) {
		return nil, domain.NewAuthorizationError("admin role required")
	}
	if actor.ID == id && !active {
		return nil, domain.NewValidationError("active", "you cannot deactivate your own account")
	}
	updated, err := s.users.SetActive(ctx, id, active)
	if err != nil {
		return nil, domain.WrapStorage("set active", err)
	}
	s.log.Info().Str("user_id", id).Bool("active", active).Str("admin_id", actor.ID).Msg("user status updated")
	return updated, nil
}

// Delete removes a user that is not the acting admin and has no active
// assignments as owner or helper.
func (s *userService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if !domain.IsAdmin(actor) {
		return domain.NewAuthorizationError("admin role required")
	}
	if actor.ID == id {
		return domain.NewValidationError("id", "you cannot delete your own account")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	active, err := s.assignments.CountActiveForUser(ctx, id)
	if err != nil {
		return domain.WrapStorage("count active assignments", err)
	}
	if active > 0 {
		return domain.NewConflictError(nil, "cannot delete user with active assignments")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return domain.WrapStorage("delete user", err)
	}
	s.log.Info().Str("user_id", id).Str("admin_id", actor.ID).Msg("user deleted")
	return nil
}

func (s *userService) RegistrationOpen(ctx context.Context) (bool, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return false, domain.WrapStorage("load settings", err)
	}
	return st.HelperRegistrationOpen, nil
}

func (s *userService) SetRegistrationOpen(ctx context.Context, actor *domain.User, open bool) (bool, error) {
	if !domain.IsAdmin(actor) {
		return false, domain.NewAuthorizationError("admin role required")
	}
	st, err := s.settings.SetHelperRegistrationOpen(ctx, open)
	if err != nil {
		return false, domain.WrapStorage("update settings", err)
	}
	s.log.Info().Bool("open", st.HelperRegistrationOpen).Str("admin_id", actor.ID).Msg("helper registration toggled")
	return st.HelperRegistrationOpen, nil
}
