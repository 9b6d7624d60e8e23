package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/creator-studio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) List(ctx context.Context, p domain.Principal, limit int, cursor string) ([]domain.User, string, error) {
	args := m.Called(ctx, p, limit, cursor)
	return args.Get(0).([]domain.User), args.String(1), args.Error(2)
}

func (m *mockUserSvc) Get(ctx context.Context, p domain.Principal, userID string) (*domain.User, error) {
	args := m.Called(ctx, p, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Update(ctx context.Context, p domain.Principal, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, p, userID, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Delete(ctx context.Context, p domain.Principal, userID string) error {
	return m.Called(ctx, p, userID).Error(0)
}

func isCaller(userID string) interface{} {
	return mock.MatchedBy(func(p domain.Principal) bool { return p.UserID == userID })
}

// --- Get tests ---

func TestGet_MissingPrincipal(t *testing.T) {
	svc := &mockUserSvc{}
	h := NewUserHandler(svc)
	r := withChiID(httptest.NewRequest(http.MethodGet, "/v1/users/me", nil), "me")
	rr := httptest.NewRecorder()
	h.Get(rr, r) // called directly, no principal in context
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGet_Me_ResolvesToCaller(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	u := &domain.User{UserID: "u1", Email: "alice@example.com", Role: domain.RoleUser}
	svc.On("Get", mock.Anything, isCaller("u1"), "u1").Return(u, nil)
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodGet, "/v1/users/me", "u1", domain.RoleUser, nil), "me")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Get), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "alice@example.com", resp["email"])
	_, leaked := resp["two_factor_secret"]
	assert.False(t, leaked)
	svc.AssertExpectations(t)
}

func TestGet_OtherUser_Forbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, isCaller("u1"), "u2").Return(nil, fmt.Errorf("cannot act on another user: %w", domain.ErrForbidden))
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodGet, "/v1/users/u2", "u1", domain.RoleUser, nil), "u2")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Get), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

// --- Update tests ---

func TestUpdate_InvalidBody(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewUserHandler(&mockUserSvc{})

	r := withChiID(bearerReq(t, p, http.MethodPut, "/v1/users/me", "u1", domain.RoleUser, []byte("not-json")), "me")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Update), rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdate_ValidationFailure(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewUserHandler(&mockUserSvc{})
	bad := "not a url"
	body, _ := json.Marshal(domain.UpdateUserRequest{Image: &bad})

	r := withChiID(bearerReq(t, p, http.MethodPut, "/v1/users/me", "u1", domain.RoleUser, body), "me")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Update), rr, r)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "image")
}

func TestUpdate_NonAdmin_CannotSetRole(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Update", mock.Anything, isCaller("u1"), "u1", mock.Anything).
		Return(nil, fmt.Errorf("only admins may change roles: %w", domain.ErrForbidden))
	h := NewUserHandler(svc)
	role := domain.RoleAdmin
	body, _ := json.Marshal(domain.UpdateUserRequest{Role: &role})

	r := withChiID(bearerReq(t, p, http.MethodPut, "/v1/users/me", "u1", domain.RoleUser, body), "me")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Update), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUpdate_HappyPath_SelfUpdate(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	updated := &domain.User{UserID: "u1", Name: "Alice", Email: "alice@example.com"}
	svc.On("Update", mock.Anything, isCaller("u1"), "u1", mock.Anything).Return(updated, nil)
	h := NewUserHandler(svc)
	name := "Alice"
	body, _ := json.Marshal(domain.UpdateUserRequest{Name: &name})

	r := withChiID(bearerReq(t, p, http.MethodPut, "/v1/users/me", "u1", domain.RoleUser, body), "me")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Update), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp domain.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Alice", resp.Name)
	svc.AssertExpectations(t)
}

// --- Delete tests ---

func TestDelete_HappyPath_SelfDelete(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Delete", mock.Anything, isCaller("u1"), "u1").Return(nil)
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodDelete, "/v1/users/me", "u1", domain.RoleUser, nil), "me")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Delete), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestDelete_Admin_DeletesOtherUser(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Delete", mock.Anything, isCaller("admin1"), "u2").Return(nil)
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodDelete, "/v1/users/u2", "admin1", domain.RoleAdmin, nil), "u2")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Delete), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

// --- List tests ---

func TestList_PassesCursor(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("List", mock.Anything, isCaller("admin1"), 10, "abc").
		Return([]domain.User{{UserID: "u1"}, {UserID: "u2"}}, "next", nil)
	h := NewUserHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/users?per_page=10&cursor=abc", "admin1", domain.RoleAdmin, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp PaginatedUsersEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, "next", resp.NextCursor)
	svc.AssertExpectations(t)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrBadRequest, http.StatusBadRequest},
		{domain.ErrExpired, http.StatusGone},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("deepgram: %w", domain.ErrUnavailable), http.StatusBadGateway},
		{bytes.ErrTooLarge, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
