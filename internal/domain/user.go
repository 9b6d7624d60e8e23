package domain

import (
	"strings"
	"time"
)

// Auth providers a credential can originate from.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// User is the credential record. TwoFactorSecret holds ciphertext and is set
// exactly when TwoFactorEnabled is true. BackupCodes holds SHA-256 hashes of the
// normalized codes; a redeemed code is removed from the set.
type User struct {
	UserID           string     `json:"id" dynamodbav:"user_id"`
	Email            string     `json:"email" dynamodbav:"email"`
	EmailVerifiedAt  *time.Time `json:"email_verified_at" dynamodbav:"email_verified_at"`
	Name             string     `json:"name" dynamodbav:"name"`
	Image            *string    `json:"image" dynamodbav:"image"`
	Role             string     `json:"role" dynamodbav:"role"`
	TwoFactorEnabled bool       `json:"two_factor_enabled" dynamodbav:"two_factor_enabled"`
	TwoFactorSecret  *string    `json:"-" dynamodbav:"two_factor_secret,omitempty"`
	BackupCodes      []string   `json:"-" dynamodbav:"backup_codes,stringset,omitempty"`
	AuthProvider     string     `json:"auth_provider,omitempty" dynamodbav:"auth_provider"` // "email" | "google"
	GoogleSub        string     `json:"-" dynamodbav:"google_sub"`
	Enable           int        `json:"enable" dynamodbav:"enable"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt        time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// HasTwoFactor reports whether sign-in must go through the second factor.
func (u *User) HasTwoFactor() bool {
	return u.TwoFactorEnabled && u.TwoFactorSecret != nil
}

type UpdateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Image *string `json:"image" validate:"omitempty,url"`
	Role  *string `json:"role"`
	// Enable is only honored for admins. 1 = enabled, 0 = disabled.
	Enable *int `json:"enable"`
}

// Principal is the authenticated caller, extracted once from the bearer token
// and passed explicitly into every service call.
type Principal struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// NormalizeEmail is the canonical form used for lookups and as the OTP subject.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Active reports whether the account may sign in.
func (u *User) Active() bool {
	return u.Enable == 1 && u.DeletedAt == nil
}
