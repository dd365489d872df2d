package domain

import (
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
	RoleHelper = "helper"
)

const (
	AuthTypeDiscord = "discord"
	AuthTypeLocal   = "local"
)

// MinHelperSpecializations is the number of categories a helper must cover.
const MinHelperSpecializations = 3

// DestinationKind discriminates PaymentDestination.
type DestinationKind string

const (
	DestinationLocal   DestinationKind = "local"
	DestinationPayPal  DestinationKind = "paypal"
	DestinationCashApp DestinationKind = "cashapp"
	DestinationCrypto  DestinationKind = "crypto"
)

var cryptoNetworks = []string{"BTC", "USDT", "ETH", "LTC"}

// PaymentDestination describes where a helper's payouts are sent.
// Only the fields of the selected Kind are meaningful.
type PaymentDestination struct {
	Kind          DestinationKind `json:"kind"`
	AccountNumber string          `json:"account_number,omitempty"`
	AccountName   string          `json:"account_name,omitempty"`
	PayPalEmail   string          `json:"paypal_email,omitempty"`
	CashAppTag    string          `json:"cashapp_tag,omitempty"`
	CryptoAddress string          `json:"crypto_address,omitempty"`
	CryptoNetwork string          `json:"crypto_network,omitempty"`
}

// Validate checks the fields required by the destination kind.
func (d PaymentDestination) Validate() error {
	switch d.Kind {
	case DestinationLocal:
		if d.AccountNumber == "" || d.AccountName == "" {
			return NewValidationError("payment_destination", "account number and account name are required")
		}
	case DestinationPayPal:
		if _, err := mail.ParseAddress(d.PayPalEmail); err != nil {
			return NewValidationError("paypal_email", "invalid PayPal email format")
		}
	case DestinationCashApp:
		if !strings.HasPrefix(d.CashAppTag, "$") {
			return NewValidationError("cashapp_tag", `CashApp tag must start with "$"`)
		}
	case DestinationCrypto:
		if len(d.CryptoAddress) < 10 {
			return NewValidationError("crypto_address", "crypto wallet address is too short")
		}
		if !slices.Contains(cryptoNetworks, strings.ToUpper(d.CryptoNetwork)) {
			return NewValidationError("crypto_network", "supported networks: BTC, USDT, ETH, LTC")
		}
	default:
		return NewValidationError("payment_destination", "unknown destination kind")
	}
	return nil
}

// User models an authenticated actor in the system.
type User struct {
	ID              string              `json:"id"`
	Username        string              `json:"username"`
	DiscordID       string              `json:"discord_id,omitempty"`
	Email           string              `json:"email,omitempty"`
	PasswordHash    string              `json:"-"`
	AuthType        string              `json:"auth_type"`
	Roles           []string            `json:"roles"`
	Active          bool                `json:"active"`
	Specializations []string            `json:"specializations,omitempty"`
	TotalEarnings   decimal.Decimal     `json:"total_earnings"`
	Destination     *PaymentDestination `json:"payment_destination,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

// IsAdmin is derived from the role set.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// SpecializesIn reports whether category is among the user's specializations.
func (u *User) SpecializesIn(category string) bool {
	return slices.Contains(u.Specializations, category)
}

// Validate enforces the user invariants.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return NewValidationError("username", "username is required")
	}
	for _, r := range u.Roles {
		if r != RoleAdmin && r != RoleClient && r != RoleHelper {
			return NewValidationError("roles", "unknown role "+r)
		}
	}
	if u.HasRole(RoleHelper) && len(u.Specializations) < MinHelperSpecializations {
		return NewValidationError("specializations", "helpers must specialize in at least 3 categories")
	}
	if u.PasswordHash == "" && u.DiscordID == "" {
		return NewValidationError("discord_id", "users without a password must have an external identity")
	}
	if u.AuthType == AuthTypeLocal && u.PasswordHash == "" {
		return NewValidationError("password", "local users must have a password")
	}
	return nil
}

// IsAdmin reports whether actor may perform admin-only operations.
func IsAdmin(actor *User) bool {
	return actor != nil && actor.Active && actor.IsAdmin()
}

// IsOwnerOrAdmin reports whether actor may perform owner actions on a.
func IsOwnerOrAdmin(actor *User, a *Assignment) bool {
	if actor == nil || a == nil || !actor.Active {
		return false
	}
	return actor.ID == a.OwnerID || actor.IsAdmin()
}

// CanView reports whether actor may read a: owner, attached helper or admin.
func CanView(actor *User, a *Assignment) bool {
	if IsOwnerOrAdmin(actor, a) {
		return true
	}
	return actor != nil && a != nil && a.HasHelper() && a.HelperID == actor.ID
}
