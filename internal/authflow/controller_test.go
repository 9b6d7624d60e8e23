package authflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/creator-studio/internal/client"
	"github.com/creator-studio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) LookupAccount(ctx context.Context, email string) (*client.Account, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*client.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) IssueOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAPI) ConsumeOTP(ctx context.Context, email, code string) (*client.Session, error) {
	args := m.Called(ctx, email, code)
	if s, _ := args.Get(0).(*client.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) VerifySecondFactor(ctx context.Context, email, code string, isBackupCode bool) (*client.SecondFactor, error) {
	args := m.Called(ctx, email, code, isBackupCode)
	if r, _ := args.Get(0).(*client.SecondFactor); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) SignInWithChallenge(ctx context.Context, email, challengeToken string) (*client.Session, error) {
	args := m.Called(ctx, email, challengeToken)
	if s, _ := args.Get(0).(*client.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type toasts struct {
	mu  sync.Mutex
	all []Toast
}

func (t *toasts) Toast(x Toast) {
	t.mu.Lock()
	t.all = append(t.all, x)
	t.mu.Unlock()
}

func (t *toasts) titles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.all))
	for i, x := range t.all {
		out[i] = x.Title
	}
	return out
}

func (t *toasts) last() Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.all[len(t.all)-1]
}

const email = "user@example.com"

func newController(api API) (*Controller, *toasts) {
	n := &toasts{}
	return New(Config{API: api, Notifier: n}), n
}

func typeCode(t *testing.T, c *Controller, code string) {
	t.Helper()
	for i := 0; i < len(code); i++ {
		require.NoError(t, c.Input(context.Background(), i, code[i:i+1]))
	}
}

// inCodeStep drives a controller to the OTP step for an account without 2FA.
func inCodeStep(t *testing.T) (*Controller, *mockAPI, *toasts) {
	t.Helper()
	api := &mockAPI{}
	api.On("LookupAccount", mock.Anything, email).Return(&client.Account{Exists: true, UserID: "u1"}, nil)
	api.On("IssueOTP", mock.Anything, email).Return(nil)
	c, n := newController(api)
	require.NoError(t, c.SubmitEmail(context.Background(), email))
	require.Equal(t, StepCode, c.Step())
	return c, api, n
}

func TestSubmitEmail_WithoutTwoFactor_IssuesOTP(t *testing.T) {
	c, api, n := inCodeStep(t)

	assert.Equal(t, StepCode, c.Step())
	assert.Equal(t, "u1", c.UserID())
	assert.False(t, c.TwoFactor())
	assert.Equal(t, []string{"OTP Sent"}, n.titles())
	api.AssertCalled(t, "IssueOTP", mock.Anything, email)
}

func TestSubmitEmail_WithTwoFactor_SkipsOTP(t *testing.T) {
	api := &mockAPI{}
	api.On("LookupAccount", mock.Anything, email).Return(&client.Account{Exists: true, TwoFactorEnabled: true, UserID: "u1"}, nil)
	c, n := newController(api)

	require.NoError(t, c.SubmitEmail(context.Background(), "  "+email+" "))

	assert.Equal(t, StepTwoFactor, c.Step())
	assert.True(t, c.TwoFactor())
	assert.Equal(t, []string{"2FA Required"}, n.titles())
	api.AssertNotCalled(t, "IssueOTP", mock.Anything, mock.Anything)
}

func TestSubmitEmail_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		acct   *client.Account
		err    error
		title  string
		lookup bool
	}{
		{"empty", "   ", nil, nil, "Email Required", false},
		{"rate limited", email, nil, &client.APIError{Status: 429}, "Slow Down", true},
		{"not registered", email, &client.Account{Exists: false}, nil, "User Not Registered", true},
		{"network", email, nil, errors.New("dial tcp: refused"), "Error", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &mockAPI{}
			api.On("LookupAccount", mock.Anything, email).Return(tc.acct, tc.err).Maybe()
			c, n := newController(api)

			require.NoError(t, c.SubmitEmail(context.Background(), tc.input))

			assert.Equal(t, StepEmail, c.Step())
			assert.Equal(t, []string{tc.title}, n.titles())
			if tc.lookup {
				api.AssertNumberOfCalls(t, "LookupAccount", 1)
			} else {
				api.AssertNotCalled(t, "LookupAccount", mock.Anything, mock.Anything)
			}
			api.AssertNotCalled(t, "IssueOTP", mock.Anything, mock.Anything)
		})
	}
}

func TestRateLimitedErrorUnwraps(t *testing.T) {
	assert.ErrorIs(t, &client.APIError{Status: 429}, domain.ErrRateLimited)
}

func TestSubmitEmail_IssueFailureStaysOnEmail(t *testing.T) {
	api := &mockAPI{}
	api.On("LookupAccount", mock.Anything, email).Return(&client.Account{Exists: true}, nil)
	api.On("IssueOTP", mock.Anything, email).Return(errors.New("smtp down"))
	c, n := newController(api)

	require.NoError(t, c.SubmitEmail(context.Background(), email))
	assert.Equal(t, StepEmail, c.Step())
	assert.Equal(t, []string{"Error"}, n.titles())
}

func TestOTP_ThreeFailuresBlockFourthWithoutNetworkCall(t *testing.T) {
	c, api, n := inCodeStep(t)
	api.On("ConsumeOTP", mock.Anything, email, "000000").Return(nil, &client.APIError{Status: 401})

	for i := 1; i <= 3; i++ {
		typeCode(t, c, "000000")
		assert.Equal(t, i, c.Attempts())
		assert.Equal(t, "Invalid OTP", n.last().Title)
		assert.Equal(t, 0, code(c).Focus())
		assert.Equal(t, "", code(c).Value())
	}
	assert.Equal(t, "No attempts remaining. Request a new code.", n.last().Message)

	typeCode(t, c, "000000")

	api.AssertNumberOfCalls(t, "ConsumeOTP", 3)
	assert.Equal(t, 3, c.Attempts())
	assert.Equal(t, "Maximum Attempts Reached", n.last().Title)
	assert.Equal(t, StepCode, c.Step())
}

func TestOTP_ResendResetsAttempts(t *testing.T) {
	c, api, n := inCodeStep(t)
	api.On("ConsumeOTP", mock.Anything, email, "111111").Return(nil, &client.APIError{Status: 401}).Twice()
	typeCode(t, c, "111111")
	typeCode(t, c, "111111")
	require.Equal(t, 2, c.Attempts())

	require.NoError(t, c.Resend(context.Background()))

	assert.Equal(t, 0, c.Attempts())
	assert.Equal(t, "OTP Resent", n.last().Title)
	api.AssertNumberOfCalls(t, "IssueOTP", 2)
}

func TestOTP_BackResetsEverything(t *testing.T) {
	c, api, _ := inCodeStep(t)
	api.On("ConsumeOTP", mock.Anything, email, "222222").Return(nil, &client.APIError{Status: 401})
	typeCode(t, c, "222222")
	require.NoError(t, c.Input(context.Background(), 0, "9"))

	require.NoError(t, c.Back())

	assert.Equal(t, StepEmail, c.Step())
	assert.Equal(t, 0, c.Attempts())
	assert.Equal(t, "", c.UserID())
	assert.False(t, c.TwoFactor())
}

func TestOTP_Success(t *testing.T) {
	var redirected *client.Session
	api := &mockAPI{}
	api.On("LookupAccount", mock.Anything, email).Return(&client.Account{Exists: true}, nil)
	api.On("IssueOTP", mock.Anything, email).Return(nil)
	sess := &client.Session{AccessToken: "at"}
	api.On("ConsumeOTP", mock.Anything, email, "123456").Return(sess, nil)
	n := &toasts{}
	c := New(Config{API: api, Notifier: n, OnSuccess: func(s *client.Session) { redirected = s }})
	require.NoError(t, c.SubmitEmail(context.Background(), email))

	require.NoError(t, c.Paste(context.Background(), "123-456"))

	assert.Equal(t, StepSuccess, c.Step())
	assert.Same(t, sess, c.Session())
	assert.Same(t, sess, redirected)
	assert.Equal(t, []string{"OTP Sent", "Login Successful"}, n.titles())
	assert.ErrorIs(t, c.Back(), ErrWrongStep)
}

func TestOTP_SpacedPasteSubmits(t *testing.T) {
	api := &mockAPI{}
	api.On("LookupAccount", mock.Anything, email).Return(&client.Account{Exists: true}, nil)
	api.On("IssueOTP", mock.Anything, email).Return(nil)
	api.On("ConsumeOTP", mock.Anything, email, "123456").Return(&client.Session{AccessToken: "at"}, nil)
	c, _ := newController(api)
	require.NoError(t, c.SubmitEmail(context.Background(), email))

	require.NoError(t, c.Paste(context.Background(), "123 456"))

	assert.Equal(t, StepSuccess, c.Step())
	api.AssertCalled(t, "ConsumeOTP", mock.Anything, email, "123456")
}

func inTwoFactorStep(t *testing.T) (*Controller, *mockAPI, *toasts) {
	t.Helper()
	api := &mockAPI{}
	api.On("LookupAccount", mock.Anything, email).Return(&client.Account{Exists: true, TwoFactorEnabled: true}, nil)
	c, n := newController(api)
	require.NoError(t, c.SubmitEmail(context.Background(), email))
	return c, api, n
}

func TestTOTP_FailureIsUncapped(t *testing.T) {
	c, api, n := inTwoFactorStep(t)
	api.On("VerifySecondFactor", mock.Anything, email, "654321", false).Return(nil, &client.APIError{Status: 401})

	for i := 0; i < 5; i++ {
		typeCode(t, c, "654321")
		assert.Equal(t, "Invalid Code", n.last().Title)
		assert.Equal(t, "", code(c).Value())
	}
	api.AssertNumberOfCalls(t, "VerifySecondFactor", 5)
	assert.Equal(t, 0, c.Attempts())
	assert.Equal(t, StepTwoFactor, c.Step())
}

func TestTOTP_SuccessMintsSession(t *testing.T) {
	c, api, n := inTwoFactorStep(t)
	api.On("VerifySecondFactor", mock.Anything, email, "654321", false).
		Return(&client.SecondFactor{Valid: true, ChallengeToken: "ch"}, nil)
	api.On("SignInWithChallenge", mock.Anything, email, "ch").Return(&client.Session{AccessToken: "at"}, nil)

	require.NoError(t, c.Paste(context.Background(), "654 321"))

	assert.Equal(t, StepSuccess, c.Step())
	assert.Equal(t, "at", c.Session().AccessToken)
	assert.Equal(t, "2FA Verified", n.last().Title)
}

func TestTOTP_ResendUnavailable(t *testing.T) {
	c, api, _ := inTwoFactorStep(t)
	assert.ErrorIs(t, c.Resend(context.Background()), ErrWrongStep)
	api.AssertNotCalled(t, "IssueOTP", mock.Anything, mock.Anything)
}

func TestBackupCode(t *testing.T) {
	c, api, n := inTwoFactorStep(t)
	require.NoError(t, c.UseBackupCode())
	require.Equal(t, StepBackupCode, c.Step())

	assert.Equal(t, "AB12 CD34", c.SetBackupCode("ab12-cd34"))

	api.On("VerifySecondFactor", mock.Anything, email, "AB12CD34", true).Return(nil, &client.APIError{Status: 401}).Once()
	require.NoError(t, c.SubmitBackupCode(context.Background()))
	assert.Equal(t, "Invalid Backup Code", n.last().Title)
	assert.Equal(t, "AB12 CD34", c.BackupCode())
	assert.Equal(t, StepBackupCode, c.Step())

	remaining := 9
	api.On("VerifySecondFactor", mock.Anything, email, "AB12CD34", true).
		Return(&client.SecondFactor{Valid: true, RemainingBackupCodes: &remaining, ChallengeToken: "ch"}, nil).Once()
	api.On("SignInWithChallenge", mock.Anything, email, "ch").Return(&client.Session{AccessToken: "at"}, nil)
	require.NoError(t, c.SubmitBackupCode(context.Background()))

	assert.Equal(t, StepSuccess, c.Step())
	assert.Equal(t, Toast{Kind: ToastSuccess, Title: "Backup Code Verified", Message: "9 backup codes remaining."}, n.last())
}

func TestBackupCode_ShortCodeNeverSent(t *testing.T) {
	c, api, n := inTwoFactorStep(t)
	require.NoError(t, c.UseBackupCode())
	c.SetBackupCode("ab1")

	require.NoError(t, c.SubmitBackupCode(context.Background()))

	assert.Equal(t, "Invalid Backup Code", n.last().Title)
	api.AssertNotCalled(t, "VerifySecondFactor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBackToTwoFactor(t *testing.T) {
	c, _, _ := inTwoFactorStep(t)
	require.NoError(t, c.Input(context.Background(), 0, "1"))
	require.NoError(t, c.UseBackupCode())
	c.SetBackupCode("abcd")

	require.NoError(t, c.BackToTwoFactor())

	assert.Equal(t, StepTwoFactor, c.Step())
	assert.Equal(t, "", c.BackupCode())
	assert.Equal(t, "", code(c).Value())
}

type blockingAPI struct {
	*mockAPI
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAPI) LookupAccount(ctx context.Context, email string) (*client.Account, error) {
	close(b.entered)
	<-b.release
	return &client.Account{Exists: false}, nil
}

func TestTransitionsAreSerialized(t *testing.T) {
	api := &blockingAPI{mockAPI: &mockAPI{}, entered: make(chan struct{}), release: make(chan struct{})}
	c, _ := newController(api)

	done := make(chan error, 1)
	go func() { done <- c.SubmitEmail(context.Background(), email) }()
	<-api.entered

	assert.ErrorIs(t, c.SubmitEmail(context.Background(), email), ErrBusy)
	assert.ErrorIs(t, c.Back(), ErrBusy)

	close(api.release)
	require.NoError(t, <-done)
}

// code returns an addressable copy of the controller's active code input.
func code(c *Controller) *CodeInput {
	v := c.Code()
	return &v
}
