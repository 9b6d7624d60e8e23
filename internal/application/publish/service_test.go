package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/infrastructure/youtube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeSealer struct{}

func (fakeSealer) Encrypt(plain string) (string, error) { return "sealed:" + plain, nil }

func (fakeSealer) Decrypt(sealed string) (string, error) {
	plain, ok := strings.CutPrefix(sealed, "sealed:")
	if !ok {
		return "", errors.New("bad ciphertext")
	}
	return plain, nil
}

type fakeOAuth struct {
	token *oauth2.Token
	err   error
}

func (f *fakeOAuth) AuthURL(state string) string {
	return "https://consent.example/auth?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) Exchange(_ context.Context, _ string) (*oauth2.Token, error) {
	return f.token, f.err
}

func (f *fakeOAuth) Refresh(_ context.Context, _ string) (*oauth2.Token, error) {
	return f.token, f.err
}

type fakeAPI struct {
	channel   *youtube.Channel
	uploadErr error
	thumbErr  error
	meta      youtube.VideoMeta
	token     string
	media     string
	thumbs    int
}

func (f *fakeAPI) Channel(_ context.Context, _ string) (*youtube.Channel, error) {
	return f.channel, nil
}

func (f *fakeAPI) Upload(_ context.Context, token string, meta youtube.VideoMeta, media io.Reader) (string, error) {
	f.token, f.meta = token, meta
	b, _ := io.ReadAll(media)
	f.media = string(b)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "yt123", nil
}

func (f *fakeAPI) SetThumbnail(_ context.Context, _, _ string, _ io.Reader) error {
	f.thumbs++
	return f.thumbErr
}

type memObjects map[string]string

func (m memObjects) Download(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type notice struct{ kind, message string }

type recNotifier struct{ sent []notice }

func (r *recNotifier) Notify(_ context.Context, _ string, _ *string, kind, message string) {
	r.sent = append(r.sent, notice{kind, message})
}

type mockIntegrationStore struct{ mock.Mock }

func (m *mockIntegrationStore) Put(ctx context.Context, i *domain.YouTubeIntegration) error {
	return m.Called(ctx, i).Error(0)
}

func (m *mockIntegrationStore) Active(ctx context.Context, userID string) (*domain.YouTubeIntegration, error) {
	args := m.Called(ctx, userID)
	if i, _ := args.Get(0).(*domain.YouTubeIntegration); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIntegrationStore) DeactivateAll(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockIntegrationStore) UpdateTokens(ctx context.Context, integrationID, accessToken string, expiresAt time.Time) error {
	return m.Called(ctx, integrationID, accessToken, expiresAt).Error(0)
}

type mockUploadStore struct{ mock.Mock }

func (m *mockUploadStore) Put(ctx context.Context, u *domain.YouTubeUpload) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUploadStore) FindByVideoAndIntegration(ctx context.Context, videoID, integrationID string) (*domain.YouTubeUpload, error) {
	args := m.Called(ctx, videoID, integrationID)
	if u, _ := args.Get(0).(*domain.YouTubeUpload); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUploadStore) ListByUser(ctx context.Context, userID string) ([]domain.YouTubeUpload, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.YouTubeUpload), args.Error(1)
}

type mockVideoStore struct{ mock.Mock }

func (m *mockVideoStore) GetOwned(ctx context.Context, videoID, userID string) (*domain.Video, error) {
	args := m.Called(ctx, videoID, userID)
	if v, _ := args.Get(0).(*domain.Video); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	caller = domain.Principal{UserID: "u1", Email: "a@b.co"}
	clock  = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc          Service
	oauth        *fakeOAuth
	api          *fakeAPI
	integrations *mockIntegrationStore
	uploads      *mockUploadStore
	videos       *mockVideoStore
	notes        *recNotifier
	now          *time.Time
}

func newFixture() *fixture {
	now := clock
	f := &fixture{
		oauth:        &fakeOAuth{},
		api:          &fakeAPI{channel: &youtube.Channel{ID: "UC1", Title: "My Channel", Thumbnail: "https://img/1.jpg"}},
		integrations: &mockIntegrationStore{},
		uploads:      &mockUploadStore{},
		videos:       &mockVideoStore{},
		notes:        &recNotifier{},
		now:          &now,
	}
	f.videos.On("GetOwned", mock.Anything, "v1", "u1").Return(&domain.Video{VideoID: "v1", UserID: "u1", S3Key: "uploads/u1/clip.mp4"}, nil)
	f.videos.On("GetOwned", mock.Anything, mock.Anything, mock.Anything).Return(nil, fmt.Errorf("video: %w", domain.ErrNotFound))
	f.svc = NewService(ServiceDeps{
		OAuth:           f.oauth,
		YouTube:         f.api,
		IntegrationRepo: f.integrations,
		PublishRepo:     f.uploads,
		VideoRepo:       f.videos,
		Storage:         memObjects{"uploads/u1/clip.mp4": "video-bytes"},
		Secrets:         fakeSealer{},
		Notifier:        f.notes,
		Now:             func() time.Time { return *f.now },
	})
	return f
}

func linked() *domain.YouTubeIntegration {
	return &domain.YouTubeIntegration{
		IntegrationID: "i1",
		UserID:        "u1",
		AccessToken:   "sealed:access",
		ExpiresAt:     clock.Add(time.Hour),
		ChannelID:     "UC1",
		ChannelTitle:  "My Channel",
		IsActive:      true,
		CreatedAt:     clock.Add(-24 * time.Hour),
	}
}

func stateFrom(t *testing.T, consentURL string) string {
	t.Helper()
	u, err := url.Parse(consentURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestConnectCallback_LinksChannel(t *testing.T) {
	f := newFixture()
	f.oauth.token = &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: clock.Add(time.Hour)}
	f.integrations.On("DeactivateAll", mock.Anything, "u1").Return(nil).Once()
	f.integrations.On("Put", mock.Anything, mock.MatchedBy(func(i *domain.YouTubeIntegration) bool {
		return i.UserID == "u1" &&
			i.AccessToken == "sealed:access" &&
			i.RefreshToken != nil && *i.RefreshToken == "sealed:refresh" &&
			i.ChannelID == "UC1" && i.ChannelTitle == "My Channel" &&
			i.IsActive
	})).Return(nil).Once()

	consent, err := f.svc.Connect(context.Background(), caller)
	require.NoError(t, err)
	state := stateFrom(t, consent)
	require.NotEmpty(t, state)

	in, err := f.svc.Callback(context.Background(), "code", state)
	require.NoError(t, err)
	assert.Equal(t, "u1", in.UserID)
	require.NotNil(t, in.ChannelThumbnail)
	f.integrations.AssertExpectations(t)
}

func TestCallback_RejectsForgedState(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Callback(context.Background(), "code", "u1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	f.integrations.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCallback_RejectsExpiredState(t *testing.T) {
	f := newFixture()
	consent, err := f.svc.Connect(context.Background(), caller)
	require.NoError(t, err)

	*f.now = clock.Add(stateTTL + time.Second)
	_, err = f.svc.Callback(context.Background(), "code", stateFrom(t, consent))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCallback_MissingParams(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Callback(context.Background(), "", "")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestStatus(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		f := newFixture()
		f.integrations.On("Active", mock.Anything, "u1").Return(linked(), nil)
		st, err := f.svc.Status(context.Background(), caller)
		require.NoError(t, err)
		assert.True(t, st.Connected)
		assert.Equal(t, "My Channel", st.Channel.Title)
	})
	t.Run("expired token reads as disconnected", func(t *testing.T) {
		f := newFixture()
		in := linked()
		in.ExpiresAt = clock.Add(-time.Minute)
		f.integrations.On("Active", mock.Anything, "u1").Return(in, nil)
		st, err := f.svc.Status(context.Background(), caller)
		require.NoError(t, err)
		assert.False(t, st.Connected)
		assert.Nil(t, st.Channel)
	})
	t.Run("never linked", func(t *testing.T) {
		f := newFixture()
		f.integrations.On("Active", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
		st, err := f.svc.Status(context.Background(), caller)
		require.NoError(t, err)
		assert.False(t, st.Connected)
	})
}

func TestDisconnect(t *testing.T) {
	f := newFixture()
	f.integrations.On("DeactivateAll", mock.Anything, "u1").Return(nil).Once()
	require.NoError(t, f.svc.Disconnect(context.Background(), caller))
	f.integrations.AssertExpectations(t)
}

func TestRefresh_StoresNewToken(t *testing.T) {
	f := newFixture()
	in := linked()
	rt := "sealed:refresh"
	in.RefreshToken = &rt
	in.ExpiresAt = clock.Add(-time.Minute)
	f.oauth.token = &oauth2.Token{AccessToken: "fresh", Expiry: clock.Add(time.Hour)}
	f.integrations.On("Active", mock.Anything, "u1").Return(in, nil)
	f.integrations.On("UpdateTokens", mock.Anything, "i1", "sealed:fresh", clock.Add(time.Hour)).Return(nil).Once()

	st, err := f.svc.Refresh(context.Background(), caller)
	require.NoError(t, err)
	assert.True(t, st.Connected)
	f.integrations.AssertExpectations(t)
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	f := newFixture()
	f.integrations.On("Active", mock.Anything, "u1").Return(linked(), nil)
	_, err := f.svc.Refresh(context.Background(), caller)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestUpload_NotConnected(t *testing.T) {
	for name, active := range map[string]func() (*domain.YouTubeIntegration, error){
		"none":     func() (*domain.YouTubeIntegration, error) { return nil, domain.ErrNotFound },
		"expired":  func() (*domain.YouTubeIntegration, error) { in := linked(); in.ExpiresAt = clock; return in, nil },
		"inactive": func() (*domain.YouTubeIntegration, error) { in := linked(); in.IsActive = false; return in, nil },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			in, err := active()
			f.integrations.On("Active", mock.Anything, "u1").Return(in, err)

			_, err = f.svc.Upload(context.Background(), caller, UploadRequest{VideoID: "v1", Title: "T"})
			require.ErrorIs(t, err, domain.ErrBadRequest)
			assert.Contains(t, err.Error(), msgNotConnected)
			f.videos.AssertNotCalled(t, "GetOwned", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpload_VideoNotOwned(t *testing.T) {
	f := newFixture()
	f.integrations.On("Active", mock.Anything, "u1").Return(linked(), nil)
	_, err := f.svc.Upload(context.Background(), caller, UploadRequest{VideoID: "someone-else", Title: "T"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpload_Duplicate(t *testing.T) {
	f := newFixture()
	f.integrations.On("Active", mock.Anything, "u1").Return(linked(), nil)
	prior := "https://www.youtube.com/watch?v=old"
	f.uploads.On("FindByVideoAndIntegration", mock.Anything, "v1", "i1").Return(&domain.YouTubeUpload{YouTubeURL: &prior}, nil)

	_, err := f.svc.Upload(context.Background(), caller, UploadRequest{VideoID: "v1", Title: "T"})
	require.ErrorIs(t, err, domain.ErrConflict)
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, prior, dup.YouTubeURL)
	assert.Empty(t, f.api.token)
}

func TestUpload_UndecryptableToken(t *testing.T) {
	f := newFixture()
	in := linked()
	in.AccessToken = "legacy-format"
	f.integrations.On("Active", mock.Anything, "u1").Return(in, nil)
	f.uploads.On("FindByVideoAndIntegration", mock.Anything, "v1", "i1").Return(nil, domain.ErrNotFound)

	_, err := f.svc.Upload(context.Background(), caller, UploadRequest{VideoID: "v1", Title: "T"})
	require.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), msgBadToken)
}

func TestUpload_Success(t *testing.T) {
	f := newFixture()
	f.api.thumbErr = errors.New("thumbnail rejected")
	f.integrations.On("Active", mock.Anything, "u1").Return(linked(), nil)
	f.uploads.On("FindByVideoAndIntegration", mock.Anything, "v1", "i1").Return(nil, domain.ErrNotFound)
	f.uploads.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.YouTubeUpload) bool {
		return u.Status == domain.UploadPublished &&
			u.YouTubeVideoID != nil && *u.YouTubeVideoID == "yt123" &&
			u.PrivacyStatus == "private" && u.Tags != nil
	})).Return(nil).Once()

	res, err := f.svc.Upload(context.Background(), caller, UploadRequest{
		VideoID:   "v1",
		Title:     "My video",
		Thumbnail: "data:image/png;base64,iVBORw0KGgo=",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "yt123", res.YouTubeVideoID)
	assert.Equal(t, youtube.WatchURL("yt123"), res.YouTubeURL)
	assert.Equal(t, "My Channel", res.ChannelTitle)
	assert.NotEmpty(t, res.UploadID)

	assert.Equal(t, "access", f.api.token)
	assert.Equal(t, "video-bytes", f.api.media)
	assert.Equal(t, "private", f.api.meta.PrivacyStatus)
	assert.Equal(t, []string{}, f.api.meta.Tags)
	assert.Equal(t, 1, f.api.thumbs)

	require.Len(t, f.notes.sent, 1)
	assert.Equal(t, domain.NotifyPublished, f.notes.sent[0].kind)
	f.uploads.AssertExpectations(t)
}

func TestUpload_FailureIsRecorded(t *testing.T) {
	f := newFixture()
	f.api.uploadErr = fmt.Errorf("insert video: %w", domain.ErrUnavailable)
	f.integrations.On("Active", mock.Anything, "u1").Return(linked(), nil)
	f.uploads.On("FindByVideoAndIntegration", mock.Anything, "v1", "i1").Return(nil, domain.ErrNotFound)
	f.uploads.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.YouTubeUpload) bool {
		return u.Status == domain.UploadFailed && u.YouTubeVideoID == nil && u.ErrorMessage != nil
	})).Return(nil).Once()

	_, err := f.svc.Upload(context.Background(), caller, UploadRequest{VideoID: "v1", Title: "T", PrivacyStatus: "unlisted"})
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, "unlisted", f.api.meta.PrivacyStatus)
	require.Len(t, f.notes.sent, 1)
	assert.Equal(t, domain.NotifyPublishError, f.notes.sent[0].kind)
	assert.Zero(t, f.api.thumbs)
	f.uploads.AssertExpectations(t)
}

func TestUpload_RetryAfterFailure(t *testing.T) {
	f := newFixture()
	f.api.uploadErr = fmt.Errorf("insert video: %w", domain.ErrUnavailable)
	f.integrations.On("Active", mock.Anything, "u1").Return(linked(), nil)

	var failed *domain.YouTubeUpload
	f.uploads.On("FindByVideoAndIntegration", mock.Anything, "v1", "i1").Return(nil, domain.ErrNotFound).Once()
	f.uploads.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.YouTubeUpload) bool {
		return u.Status == domain.UploadFailed
	})).Run(func(args mock.Arguments) {
		failed = args.Get(1).(*domain.YouTubeUpload)
	}).Return(nil).Once()

	_, err := f.svc.Upload(context.Background(), caller, UploadRequest{VideoID: "v1", Title: "T"})
	require.ErrorIs(t, err, domain.ErrUnavailable)
	require.NotNil(t, failed)

	f.api.uploadErr = nil
	f.uploads.On("FindByVideoAndIntegration", mock.Anything, "v1", "i1").Return(failed, nil).Once()
	f.uploads.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.YouTubeUpload) bool {
		return u.Status == domain.UploadPublished && u.UploadID != failed.UploadID
	})).Return(nil).Once()

	res, err := f.svc.Upload(context.Background(), caller, UploadRequest{VideoID: "v1", Title: "T"})
	require.NoError(t, err)
	assert.Equal(t, "yt123", res.YouTubeVideoID)
	f.uploads.AssertExpectations(t)
}

func TestHistory(t *testing.T) {
	f := newFixture()
	f.uploads.On("ListByUser", mock.Anything, "u1").Return([]domain.YouTubeUpload{{UploadID: "up1"}}, nil)
	got, err := f.svc.History(context.Background(), caller)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "up1", got[0].UploadID)
}
