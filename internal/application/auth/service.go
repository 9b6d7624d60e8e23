package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/infrastructure/google"
	jwtinfra "github.com/creator-studio/internal/infrastructure/jwt"
	"github.com/creator-studio/internal/infrastructure/smtp"
	"github.com/creator-studio/internal/observability/metrics"
	"github.com/creator-studio/internal/pkg/backupcode"
	"github.com/creator-studio/internal/pkg/id"
	"github.com/creator-studio/internal/pkg/otpcode"
	pkgtoken "github.com/creator-studio/internal/pkg/token"
)

// MaxOTPFailures wrong guesses discard an emailed code.
const MaxOTPFailures = 3

// LookupResult tells the sign-in wizard which path an address takes.
type LookupResult struct {
	Exists           bool   `json:"exists"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
	UserID           string `json:"userId,omitempty"`
}

type SecondFactorRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Code         string `json:"code" validate:"required"`
	IsBackupCode bool   `json:"isBackupCode"`
}

// SecondFactorResult carries the challenge token that SignInWithChallenge
// exchanges for a session.
type SecondFactorResult struct {
	Valid                bool   `json:"valid"`
	RemainingBackupCodes *int   `json:"remainingBackupCodes,omitempty"`
	ChallengeToken       string `json:"challengeToken"`
}

type SignInResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type Service interface {
	LookupAccount(ctx context.Context, email string) (*LookupResult, error)
	IssueOTP(ctx context.Context, email string) error
	ConsumeOTP(ctx context.Context, email, code string) (*SignInResult, error)
	VerifySecondFactor(ctx context.Context, req SecondFactorRequest) (*SecondFactorResult, error)
	SignInWithChallenge(ctx context.Context, email, challengeToken string) (*SignInResult, error)
	SignInWithGoogle(ctx context.Context, idToken string) (*SignInResult, error)
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.Verification) error
	Get(ctx context.Context, subject, verType string) (*domain.Verification, error)
	Consume(ctx context.Context, subject, verType, codeHash string) error
	RecordFailure(ctx context.Context, subject, verType, codeHash string) (int, error)
	Claim(ctx context.Context, subject, verType string, expiresAt int64) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	ConsumeBackupCode(ctx context.Context, userID, codeHash string) (int, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
}

type tokenIssuer interface {
	Sign(userID, email, role, sessionID string) (string, error)
	SignChallenge(userID, email string) (string, error)
	VerifyChallenge(token string) (*jwtinfra.Claims, error)
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

type totpValidator interface {
	Validate(secret, code string) bool
}

type secretOpener interface {
	Decrypt(sealed string) (string, error)
}

type service struct {
	verificationRepo verificationStore
	userRepo         userStore
	sessionRepo      sessionStore
	mailer           smtp.Mailer
	tokens           tokenIssuer
	google           googleVerifier
	totp             totpValidator
	secrets          secretOpener
	otpTTL           time.Duration
	refreshTokenDur  time.Duration
	now              func() time.Time
}

type ServiceDeps struct {
	VerificationRepo verificationStore
	UserRepo         userStore
	SessionRepo      sessionStore
	Mailer           smtp.Mailer
	JWTProvider      tokenIssuer
	GoogleVerifier   googleVerifier
	TOTP             totpValidator
	Secrets          secretOpener
	OTPExpiry        time.Duration
	RefreshTokenDur  time.Duration
}

func NewService(deps ServiceDeps) Service {
	otpTTL := deps.OTPExpiry
	if otpTTL <= 0 {
		otpTTL = 3 * time.Minute
	}
	return &service{
		verificationRepo: deps.VerificationRepo,
		userRepo:         deps.UserRepo,
		sessionRepo:      deps.SessionRepo,
		mailer:           deps.Mailer,
		tokens:           deps.JWTProvider,
		google:           deps.GoogleVerifier,
		totp:             deps.TOTP,
		secrets:          deps.Secrets,
		otpTTL:           otpTTL,
		refreshTokenDur:  deps.RefreshTokenDur,
		now:              time.Now,
	}
}

func (s *service) LookupAccount(ctx context.Context, email string) (*LookupResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email required: %w", domain.ErrBadRequest)
	}
	u, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return &LookupResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &LookupResult{Exists: true, TwoFactorEnabled: u.HasTwoFactor(), UserID: u.UserID}, nil
}

// IssueOTP emails a fresh code, replacing any earlier one for the address.
func (s *service) IssueOTP(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email required: %w", domain.ErrBadRequest)
	}
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if u != nil && u.HasTwoFactor() {
		return fmt.Errorf("account requires the second factor: %w", domain.ErrForbidden)
	}

	code, err := otpcode.New()
	if err != nil {
		return err
	}
	hash, err := otpcode.Hash(code)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	v := &domain.Verification{
		Subject:   email,
		Type:      domain.VerificationOTP,
		CodeHash:  hash,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.otpTTL).Unix(),
	}
	if err := s.verificationRepo.Put(ctx, v); err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, smtp.SignInCode(email, code, s.otpTTL)); err != nil {
		return fmt.Errorf("send otp email: %w: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// ConsumeOTP checks the emailed code and signs the caller in, creating the
// credential on first sign-in.
func (s *service) ConsumeOTP(ctx context.Context, email, code string) (res *SignInResult, err error) {
	defer func() { metrics.AuthAttemptsTotal.WithLabelValues("otp", metrics.Result(err)).Inc() }()

	email = domain.NormalizeEmail(email)
	if email == "" || !otpcode.WellFormed(code) {
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrUnauthorized)
	}
	v, err := s.verificationRepo.Get(ctx, email, domain.VerificationOTP)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrUnauthorized)
	}
	if v.ExpiresAt < s.now().Unix() {
		return nil, fmt.Errorf("OTP expired: %w", domain.ErrUnauthorized)
	}
	if v.Failures >= MaxOTPFailures {
		return nil, fmt.Errorf("too many failed attempts, request a new code: %w", domain.ErrUnauthorized)
	}
	if !otpcode.Matches(v.CodeHash, code) {
		s.recordOTPFailure(ctx, email, v.CodeHash)
		return nil, fmt.Errorf("invalid OTP: %w", domain.ErrUnauthorized)
	}
	if err := s.verificationRepo.Consume(ctx, email, domain.VerificationOTP, v.CodeHash); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("OTP already used: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}

	u, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.createUser(ctx, email, domain.ProviderEmail, "", "", nil)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if u.HasTwoFactor() {
			return nil, fmt.Errorf("account requires the second factor: %w", domain.ErrForbidden)
		}
		if u.EmailVerifiedAt == nil {
			now := s.now().UTC()
			if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"email_verified_at": now}); err != nil {
				slog.Warn("failed to mark email verified", "user_id", u.UserID, "err", err)
			}
			u.EmailVerifiedAt = &now
		}
	}
	return s.startSession(ctx, u, domain.ProviderEmail)
}

// VerifySecondFactor checks a TOTP code or redeems a backup code. Backup codes
// are single-use; the redemption is atomic in the store.
func (s *service) VerifySecondFactor(ctx context.Context, req SecondFactorRequest) (res *SecondFactorResult, err error) {
	flow := "totp"
	if req.IsBackupCode {
		flow = "backup_code"
	}
	defer func() { metrics.AuthAttemptsTotal.WithLabelValues(flow, metrics.Result(err)).Inc() }()

	u, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(req.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !u.HasTwoFactor() {
		return nil, fmt.Errorf("two-factor authentication is not enabled: %w", domain.ErrBadRequest)
	}
	if !u.Active() {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}

	res = &SecondFactorResult{}
	if req.IsBackupCode {
		normalized := backupcode.Normalize(req.Code)
		if !backupcode.Valid(normalized) {
			return nil, fmt.Errorf("invalid backup code: %w", domain.ErrUnauthorized)
		}
		remaining, err := s.userRepo.ConsumeBackupCode(ctx, u.UserID, backupcode.Hash(normalized))
		if err != nil {
			return nil, err
		}
		res.RemainingBackupCodes = &remaining
	} else {
		secret, err := s.secrets.Decrypt(*u.TwoFactorSecret)
		if err != nil {
			return nil, fmt.Errorf("stored secret unreadable: %w", err)
		}
		if !s.totp.Validate(secret, req.Code) {
			return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
		}
	}

	tok, err := s.tokens.SignChallenge(u.UserID, u.Email)
	if err != nil {
		return nil, err
	}
	res.Valid = true
	res.ChallengeToken = tok
	return res, nil
}

// recordOTPFailure counts a wrong guess and burns the code once the count
// reaches MaxOTPFailures.
func (s *service) recordOTPFailure(ctx context.Context, email, codeHash string) {
	n, err := s.verificationRepo.RecordFailure(ctx, email, domain.VerificationOTP, codeHash)
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			slog.Warn("failed to record OTP failure", "subject", email, "err", err)
		}
		return
	}
	if n < MaxOTPFailures {
		return
	}
	if err := s.verificationRepo.Consume(ctx, email, domain.VerificationOTP, codeHash); err != nil && !errors.Is(err, domain.ErrConflict) {
		slog.Warn("failed to discard OTP after repeated failures", "subject", email, "err", err)
		return
	}
	slog.Info("OTP discarded after repeated failures", "subject", email)
}

// SignInWithChallenge mints a session for an account whose second factor was
// verified by VerifySecondFactor.
func (s *service) SignInWithChallenge(ctx context.Context, email, challengeToken string) (res *SignInResult, err error) {
	defer func() { metrics.AuthAttemptsTotal.WithLabelValues("challenge", metrics.Result(err)).Inc() }()

	claims, err := s.tokens.VerifyChallenge(challengeToken)
	if err != nil {
		return nil, fmt.Errorf("invalid challenge: %w", domain.ErrUnauthorized)
	}
	if claims.Email != domain.NormalizeEmail(email) {
		return nil, fmt.Errorf("challenge does not match account: %w", domain.ErrUnauthorized)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("challenge has no id: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid challenge: %w", domain.ErrUnauthorized)
	}
	exp := s.now().Add(time.Hour).Unix()
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Unix()
	}
	if err := s.verificationRepo.Claim(ctx, claims.ID, domain.VerificationChallenge, exp); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("challenge already used: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return s.startSession(ctx, u, domain.ProviderEmail)
}

// SignInWithGoogle verifies a Google ID token and creates or links the credential.
func (s *service) SignInWithGoogle(ctx context.Context, idToken string) (res *SignInResult, err error) {
	defer func() { metrics.AuthAttemptsTotal.WithLabelValues("google", metrics.Result(err)).Inc() }()

	p, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if !p.EmailVerified || p.Email == "" || p.Sub == "" {
		return nil, fmt.Errorf("google account email is not verified: %w", domain.ErrUnauthorized)
	}
	email := domain.NormalizeEmail(p.Email)

	u, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		var image *string
		if p.Picture != "" {
			image = &p.Picture
		}
		u, err = s.createUser(ctx, email, domain.ProviderGoogle, p.Sub, p.Name, image)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if u.HasTwoFactor() {
			return nil, fmt.Errorf("account requires the second factor; sign in with email: %w", domain.ErrForbidden)
		}
		if u.GoogleSub == "" {
			if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"google_sub": p.Sub}); err != nil {
				return nil, err
			}
			u.GoogleSub = p.Sub
		} else if u.GoogleSub != p.Sub {
			return nil, fmt.Errorf("email linked to another google account: %w", domain.ErrConflict)
		}
	}
	return s.startSession(ctx, u, domain.ProviderGoogle)
}

func (s *service) createUser(ctx context.Context, email, provider, googleSub, name string, image *string) (*domain.User, error) {
	now := s.now().UTC()
	u := &domain.User{
		UserID:          id.New(),
		Email:           email,
		EmailVerifiedAt: &now,
		Name:            name,
		Image:           image,
		Role:            domain.RoleUser,
		AuthProvider:    provider,
		GoogleSub:       googleSub,
		Enable:          1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("credential created", "user_id", u.UserID, "provider", provider)
	return u, nil
}

func (s *service) startSession(ctx context.Context, u *domain.User, provider string) (*SignInResult, error) {
	if !u.Active() {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Provider:         provider,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.tokens.Sign(u.UserID, u.Email, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &SignInResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}
