// Package authflow drives the sign-in wizard: email lookup, emailed OTP,
// authenticator code and backup code, ending in a minted session.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/creator-studio/internal/client"
	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/pkg/backupcode"
)

type Step string

const (
	StepEmail      Step = "email"
	StepCode       Step = "code"
	StepTwoFactor  Step = "twoFactor"
	StepBackupCode Step = "backupCode"
	StepSuccess    Step = "success"
)

// MaxOTPAttempts caps failed OTP submissions until a resend or restart.
const MaxOTPAttempts = 3

var (
	ErrBusy      = errors.New("authflow: a transition is already in flight")
	ErrWrongStep = errors.New("authflow: action not available in this step")
)

type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastSuccess
	ToastError
)

// Toast is a user-visible outcome notification.
type Toast struct {
	Kind    ToastKind
	Title   string
	Message string
}

type Notifier interface {
	Toast(t Toast)
}

// API is the subset of the server the wizard calls.
type API interface {
	LookupAccount(ctx context.Context, email string) (*client.Account, error)
	IssueOTP(ctx context.Context, email string) error
	ConsumeOTP(ctx context.Context, email, code string) (*client.Session, error)
	VerifySecondFactor(ctx context.Context, email, code string, isBackupCode bool) (*client.SecondFactor, error)
	SignInWithChallenge(ctx context.Context, email, challengeToken string) (*client.Session, error)
}

// Pacing holds the cosmetic pauses around a successful sign-in.
type Pacing struct {
	Confirm  time.Duration
	Redirect time.Duration
}

var DefaultPacing = Pacing{Confirm: 2 * time.Second, Redirect: 2 * time.Second}

type Config struct {
	API      API
	Notifier Notifier
	Pacing   Pacing
	// OnSuccess, if set, is called after the redirect pause.
	OnSuccess func(*client.Session)
}

// Controller owns all wizard state. Transitions are serialized: a submit
// started while another is running returns ErrBusy.
type Controller struct {
	api       API
	notify    Notifier
	pacing    Pacing
	onSuccess func(*client.Session)

	busy atomic.Bool

	mu        sync.RWMutex
	step      Step
	email     string
	otp       CodeInput
	totp      CodeInput
	backup    string
	attempts  int
	twoFactor bool
	userID    string
	session   *client.Session
}

func New(cfg Config) *Controller {
	return &Controller{
		api:       cfg.API,
		notify:    cfg.Notifier,
		pacing:    cfg.Pacing,
		onSuccess: cfg.OnSuccess,
		step:      StepEmail,
	}
}

func (c *Controller) begin() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (c *Controller) end() { c.busy.Store(false) }

func (c *Controller) toast(kind ToastKind, title, msg string) {
	if c.notify != nil {
		c.notify.Toast(Toast{Kind: kind, Title: title, Message: msg})
	}
}

// SubmitEmail looks the account up and moves to the OTP or authenticator step.
func (c *Controller) SubmitEmail(ctx context.Context, email string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()
	if c.Step() != StepEmail {
		return ErrWrongStep
	}

	email = strings.TrimSpace(email)
	if email == "" {
		c.toast(ToastError, "Email Required", "Please enter your email address.")
		return nil
	}

	acct, err := c.api.LookupAccount(ctx, email)
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		c.toast(ToastError, "Slow Down", "Too many attempts. Please wait a moment and try again.")
		return nil
	case err != nil:
		c.toast(ToastError, "Error", "Could not check this email. Please try again.")
		return nil
	case !acct.Exists:
		c.toast(ToastError, "User Not Registered", "No account exists for this email.")
		return nil
	case acct.TwoFactorEnabled:
		c.mu.Lock()
		c.step, c.email, c.userID, c.twoFactor = StepTwoFactor, email, acct.UserID, true
		c.totp.Clear()
		c.mu.Unlock()
		c.toast(ToastInfo, "2FA Required", "Enter the 6-digit code from your authenticator app.")
		return nil
	}

	if err := c.api.IssueOTP(ctx, email); err != nil {
		c.toast(ToastError, "Error", "Could not send a sign-in code. Please try again.")
		return nil
	}
	c.mu.Lock()
	c.step, c.email, c.userID, c.twoFactor = StepCode, email, acct.UserID, false
	c.attempts = 0
	c.otp.Clear()
	c.mu.Unlock()
	c.toast(ToastSuccess, "OTP Sent", "Check your email for a 6-digit code.")
	return nil
}

// Input types v into slot i of the active code and submits once the last
// slot completes it.
func (c *Controller) Input(ctx context.Context, i int, v string) error {
	if c.busy.Load() {
		return ErrBusy
	}
	c.mu.Lock()
	var complete bool
	step := c.step
	switch step {
	case StepCode:
		complete = c.otp.Type(i, v)
	case StepTwoFactor:
		complete = c.totp.Type(i, v)
	default:
		c.mu.Unlock()
		return ErrWrongStep
	}
	c.mu.Unlock()
	if !complete {
		return nil
	}
	return c.submitStep(ctx, step)
}

func (c *Controller) Backspace(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.step {
	case StepCode:
		c.otp.Backspace(i)
	case StepTwoFactor:
		c.totp.Backspace(i)
	default:
		return ErrWrongStep
	}
	return nil
}

// Paste fills the active code. OTP pastes may contain dashes or whitespace,
// authenticator pastes may contain whitespace. A valid paste submits immediately.
func (c *Controller) Paste(ctx context.Context, s string) error {
	if c.busy.Load() {
		return ErrBusy
	}
	c.mu.Lock()
	var ok bool
	step := c.step
	switch step {
	case StepCode:
		ok = c.otp.Paste(s, isSeparator)
	case StepTwoFactor:
		ok = c.totp.Paste(s, unicode.IsSpace)
	default:
		c.mu.Unlock()
		return ErrWrongStep
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.submitStep(ctx, step)
}

func (c *Controller) submitStep(ctx context.Context, step Step) error {
	if step == StepCode {
		return c.SubmitOTP(ctx)
	}
	return c.SubmitTOTP(ctx)
}

// SubmitOTP redeems the emailed code. After MaxOTPAttempts failures no
// request is made until Resend or Back.
func (c *Controller) SubmitOTP(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	if c.step != StepCode {
		c.mu.Unlock()
		return ErrWrongStep
	}
	if c.attempts >= MaxOTPAttempts {
		c.mu.Unlock()
		c.toast(ToastError, "Maximum Attempts Reached", "Request a new code or go back to start over.")
		return nil
	}
	if !c.otp.Full() {
		c.mu.Unlock()
		c.toast(ToastError, "Incomplete Code", "Enter all 6 digits.")
		return nil
	}
	email, code := c.email, c.otp.Value()
	c.mu.Unlock()

	sess, err := c.api.ConsumeOTP(ctx, email, code)
	if err != nil {
		c.mu.Lock()
		c.attempts++
		left := MaxOTPAttempts - c.attempts
		c.otp.Clear()
		c.mu.Unlock()
		msg := fmt.Sprintf("%d attempts remaining.", left)
		if left == 0 {
			msg = "No attempts remaining. Request a new code."
		}
		c.toast(ToastError, "Invalid OTP", msg)
		return nil
	}

	c.toast(ToastSuccess, "Login Successful", "Redirecting...")
	return c.complete(ctx, func(context.Context) (*client.Session, error) { return sess, nil })
}

// SubmitTOTP checks the authenticator code. Failures are not counted.
func (c *Controller) SubmitTOTP(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	if c.step != StepTwoFactor {
		c.mu.Unlock()
		return ErrWrongStep
	}
	if !c.totp.Full() {
		c.mu.Unlock()
		c.toast(ToastError, "Incomplete Code", "Enter all 6 digits.")
		return nil
	}
	email, code := c.email, c.totp.Value()
	c.mu.Unlock()

	res, err := c.api.VerifySecondFactor(ctx, email, code, false)
	if err != nil || !res.Valid {
		c.mu.Lock()
		c.totp.Clear()
		c.mu.Unlock()
		c.toast(ToastError, "Invalid Code", "The authenticator code is incorrect. Please try again.")
		return nil
	}

	c.toast(ToastSuccess, "2FA Verified", "Redirecting...")
	return c.complete(ctx, c.mintWith(email, res.ChallengeToken))
}

// UseBackupCode switches from the authenticator step to backup-code entry.
func (c *Controller) UseBackupCode() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepTwoFactor {
		return ErrWrongStep
	}
	c.step, c.backup = StepBackupCode, ""
	return nil
}

// SetBackupCode stores the display form of s and returns it.
func (c *Controller) SetBackupCode(s string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backup = backupcode.Format(s)
	return c.backup
}

// SubmitBackupCode redeems a backup code. The field is kept on failure.
func (c *Controller) SubmitBackupCode(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.RLock()
	step, email, code := c.step, c.email, c.backup
	c.mu.RUnlock()
	if step != StepBackupCode {
		return ErrWrongStep
	}
	if !backupcode.Valid(code) {
		c.toast(ToastError, "Invalid Backup Code", "Backup codes are 8 letters and digits.")
		return nil
	}

	res, err := c.api.VerifySecondFactor(ctx, email, backupcode.Normalize(code), true)
	if err != nil || !res.Valid {
		c.toast(ToastError, "Invalid Backup Code", "That backup code is not valid or was already used.")
		return nil
	}

	msg := "Redirecting..."
	if res.RemainingBackupCodes != nil {
		msg = fmt.Sprintf("%d backup codes remaining.", *res.RemainingBackupCodes)
	}
	c.toast(ToastSuccess, "Backup Code Verified", msg)
	return c.complete(ctx, c.mintWith(email, res.ChallengeToken))
}

func (c *Controller) BackToTwoFactor() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepBackupCode {
		return ErrWrongStep
	}
	c.step, c.backup = StepTwoFactor, ""
	c.totp.Clear()
	return nil
}

// Resend issues a fresh OTP and resets the attempt counter.
func (c *Controller) Resend(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.RLock()
	step, email, twoFactor := c.step, c.email, c.twoFactor
	c.mu.RUnlock()
	if step != StepCode || twoFactor {
		return ErrWrongStep
	}

	if err := c.api.IssueOTP(ctx, email); err != nil {
		c.toast(ToastError, "Error", "Could not resend the code. Please try again.")
		return nil
	}
	c.mu.Lock()
	c.attempts = 0
	c.otp.Clear()
	c.mu.Unlock()
	c.toast(ToastSuccess, "OTP Resent", "A new code is on its way.")
	return nil
}

// Back returns to the email step and forgets the account.
func (c *Controller) Back() error {
	if c.busy.Load() {
		return ErrBusy
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepSuccess {
		return ErrWrongStep
	}
	c.step = StepEmail
	c.email, c.userID, c.backup = "", "", ""
	c.twoFactor = false
	c.attempts = 0
	c.otp.Clear()
	c.totp.Clear()
	return nil
}

func (c *Controller) mintWith(email, challenge string) func(context.Context) (*client.Session, error) {
	return func(ctx context.Context) (*client.Session, error) {
		return c.api.SignInWithChallenge(ctx, email, challenge)
	}
}

// complete runs the confirmation pause, mints the session, enters the success
// step and runs the redirect pause.
func (c *Controller) complete(ctx context.Context, mint func(context.Context) (*client.Session, error)) error {
	if err := wait(ctx, c.pacing.Confirm); err != nil {
		return err
	}
	sess, err := mint(ctx)
	if err != nil {
		c.mu.Lock()
		c.totp.Clear()
		c.mu.Unlock()
		c.toast(ToastError, "Sign-in Failed", "Your code was accepted but the session could not be created. Please try again.")
		return nil
	}
	c.mu.Lock()
	c.step, c.session = StepSuccess, sess
	c.mu.Unlock()
	if err := wait(ctx, c.pacing.Redirect); err != nil {
		return err
	}
	if c.onSuccess != nil {
		c.onSuccess(sess)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Controller) Step() Step {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.step
}

func (c *Controller) Attempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempts
}

func (c *Controller) TwoFactor() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.twoFactor
}

func (c *Controller) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Controller) BackupCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backup
}

// Session is nil until the success step.
func (c *Controller) Session() *client.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Code returns the active code input, or an empty one outside the code steps.
func (c *Controller) Code() CodeInput {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.step {
	case StepCode:
		return c.otp
	case StepTwoFactor:
		return c.totp
	}
	return CodeInput{}
}
