package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

// AdminSpec names an account that must exist with admin rights.
type AdminSpec struct {
	DiscordID string
	Username  string
}

var adminRoles = []string{domain.RoleAdmin, domain.RoleClient}

// PlanAdminUpserts returns the users that have to be written so every desired
// admin exists, is active and holds the admin and client roles. existing is
// keyed by external identity. Accounts that already satisfy this are left out,
// which makes repeated runs no-ops.
func PlanAdminUpserts(existing map[string]*domain.User, desired []AdminSpec, now time.Time) []*domain.User {
	var out []*domain.User
	for _, d := range desired {
		cur, ok := existing[d.DiscordID]
		if !ok || cur == nil {
			out = append(out, &domain.User{
				DiscordID: d.DiscordID,
				Username:  d.Username,
				AuthType:  domain.AuthTypeDiscord,
				Roles:     slices.Clone(adminRoles),
				Active:    true,
				CreatedAt: now,
				UpdatedAt: now,
			})
			continue
		}

		roles := slices.Clone(cur.Roles)
		for _, r := range adminRoles {
			if !slices.Contains(roles, r) {
				roles = append(roles, r)
			}
		}
		if cur.Active && len(roles) == len(cur.Roles) && cur.Username == d.Username {
			continue
		}
		next := *cur
		next.Username = d.Username
		next.Roles = roles
		next.Active = true
		next.UpdatedAt = now
		out = append(out, &next)
	}
	return out
}

// EnsureAdmins applies PlanAdminUpserts against users and returns how many
// accounts were written.
func EnsureAdmins(ctx context.Context, users ports.UserRepository, desired []AdminSpec, log zerolog.Logger) (int, error) {
	existing := make(map[string]*domain.User, len(desired))
	for _, d := range desired {
		u, err := users.FindByDiscordID(ctx, d.DiscordID)
		switch {
		case err == nil:
			existing[d.DiscordID] = u
		case errors.Is(err, domain.ErrNotFound):
		default:
			return 0, domain.WrapStorage("find admin", err)
		}
	}

	written := 0
	for _, u := range PlanAdminUpserts(existing, desired, time.Now().UTC()) {
		if _, err := users.UpsertByDiscordID(ctx, u); err != nil {
			return written, domain.WrapStorage("upsert admin", err)
		}
		written++
		log.Info().Str("discord_id", u.DiscordID).Str("username", u.Username).Msg("admin account ensured")
	}
	return written, nil
}
