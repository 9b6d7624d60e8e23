// Package twofactor enrolls and removes TOTP second factors for the signed-in user.
// Nothing is persisted until Enable, so an abandoned setup leaves no trace.
package twofactor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/infrastructure/totp"
	"github.com/creator-studio/internal/pkg/backupcode"
)

// SetupResult is what the authenticator app and the user need to finish enrollment.
type SetupResult struct {
	Secret         string   `json:"secret"`
	QRCodeURL      string   `json:"qrCodeUrl"`
	ManualEntryKey string   `json:"manualEntryKey"`
	BackupCodes    []string `json:"backupCodes"`
}

type VerifySetupRequest struct {
	Secret string `json:"secret" validate:"required"`
	Token  string `json:"token" validate:"required,otp"`
}

type EnableRequest struct {
	Secret      string   `json:"secret" validate:"required"`
	BackupCodes []string `json:"backupCodes" validate:"min=1,dive,backupcode"`
}

type Service interface {
	Setup(ctx context.Context, p domain.Principal) (*SetupResult, error)
	VerifySetup(ctx context.Context, p domain.Principal, req VerifySetupRequest) error
	Enable(ctx context.Context, p domain.Principal, req EnableRequest) error
	Disable(ctx context.Context, p domain.Principal) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	EnableTwoFactor(ctx context.Context, userID, encryptedSecret string, codeHashes []string) error
	DisableTwoFactor(ctx context.Context, userID string) error
}

type enroller interface {
	Generate(accountName string) (*totp.Enrollment, error)
	Validate(secret, code string) bool
}

type secretSealer interface {
	Encrypt(plain string) (string, error)
}

type service struct {
	users       userStore
	totp        enroller
	sealer      secretSealer
	backupCount int
}

type ServiceDeps struct {
	UserRepo    userStore
	TOTP        enroller
	Secrets     secretSealer
	BackupCodes int
}

func NewService(deps ServiceDeps) Service {
	n := deps.BackupCodes
	if n <= 0 {
		n = 10
	}
	return &service{
		users:       deps.UserRepo,
		totp:        deps.TOTP,
		sealer:      deps.Secrets,
		backupCount: n,
	}
}

func (s *service) Setup(ctx context.Context, p domain.Principal) (*SetupResult, error) {
	u, err := s.users.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if u.HasTwoFactor() {
		return nil, fmt.Errorf("two-factor authentication is already enabled: %w", domain.ErrConflict)
	}
	enr, err := s.totp.Generate(u.Email)
	if err != nil {
		return nil, err
	}
	codes, err := backupcode.Generate(s.backupCount)
	if err != nil {
		return nil, err
	}
	return &SetupResult{
		Secret:         enr.Secret,
		QRCodeURL:      enr.QRDataURI,
		ManualEntryKey: enr.Secret,
		BackupCodes:    codes,
	}, nil
}

// VerifySetup checks a code against the unconfirmed secret. It never enables 2FA.
func (s *service) VerifySetup(_ context.Context, _ domain.Principal, req VerifySetupRequest) error {
	if !s.totp.Validate(req.Secret, req.Token) {
		return fmt.Errorf("invalid verification code: %w", domain.ErrBadRequest)
	}
	return nil
}

func (s *service) Enable(ctx context.Context, p domain.Principal, req EnableRequest) error {
	secret := strings.ToUpper(strings.TrimSpace(req.Secret))
	if !base32Secret(secret) {
		return fmt.Errorf("malformed secret: %w", domain.ErrBadRequest)
	}
	if len(req.BackupCodes) == 0 {
		return fmt.Errorf("backup codes are required: %w", domain.ErrBadRequest)
	}
	seen := make(map[string]struct{}, len(req.BackupCodes))
	for _, c := range req.BackupCodes {
		if !backupcode.Valid(c) {
			return fmt.Errorf("malformed backup code: %w", domain.ErrBadRequest)
		}
		n := backupcode.Normalize(c)
		if _, dup := seen[n]; dup {
			return fmt.Errorf("duplicate backup code: %w", domain.ErrBadRequest)
		}
		seen[n] = struct{}{}
	}
	sealed, err := s.sealer.Encrypt(secret)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}
	if err := s.users.EnableTwoFactor(ctx, p.UserID, sealed, backupcode.HashAll(req.BackupCodes)); err != nil {
		return err
	}
	slog.Info("two-factor enabled", "user_id", p.UserID)
	return nil
}

func (s *service) Disable(ctx context.Context, p domain.Principal) error {
	if err := s.users.DisableTwoFactor(ctx, p.UserID); err != nil {
		return err
	}
	slog.Info("two-factor disabled", "user_id", p.UserID)
	return nil
}

// base32Secret reports whether s looks like an RFC 4648 base32 TOTP secret.
func base32Secret(s string) bool {
	if len(s) < 16 {
		return false
	}
	for _, r := range strings.TrimRight(s, "=") {
		if !(r >= 'A' && r <= 'Z') && !(r >= '2' && r <= '7') {
			return false
		}
	}
	return true
}
