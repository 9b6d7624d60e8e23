package user

import (
	"context"
	"fmt"

	"github.com/creator-studio/internal/domain"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName   = "name"
	fieldImage  = "image"
	fieldRole   = "role"
	fieldEnable = "enable"
)

type Service interface {
	List(ctx context.Context, p domain.Principal, limit int, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, p domain.Principal, userID string) (*domain.User, error)
	Update(ctx context.Context, p domain.Principal, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, p domain.Principal, userID string) error
}

type userStore interface {
	QueryPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, userID string) error
}

type sessionStore interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

type service struct {
	repo        userStore
	sessionRepo sessionStore
}

type ServiceDeps struct {
	UserRepo    userStore
	SessionRepo sessionStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:        deps.UserRepo,
		sessionRepo: deps.SessionRepo,
	}
}

// authorize lets users act on themselves and admins act on anyone.
func authorize(p domain.Principal, userID string) error {
	if p.UserID == userID || p.IsAdmin() {
		return nil
	}
	return fmt.Errorf("cannot act on another user: %w", domain.ErrForbidden)
}

func (s *service) List(ctx context.Context, p domain.Principal, limit int, cursor string) ([]domain.User, string, error) {
	if !p.IsAdmin() {
		return nil, "", fmt.Errorf("admin only: %w", domain.ErrForbidden)
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.QueryPage(ctx, int32(limit), cursor)
}

func (s *service) Get(ctx context.Context, p domain.Principal, userID string) (*domain.User, error) {
	if err := authorize(p, userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, p domain.Principal, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	if err := authorize(p, userID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Image != nil {
		updates[fieldImage] = *req.Image
	}
	if req.Role != nil {
		if !p.IsAdmin() {
			return nil, fmt.Errorf("only admins may change roles: %w", domain.ErrForbidden)
		}
		switch *req.Role {
		case domain.RoleAdmin, domain.RoleUser:
			updates[fieldRole] = *req.Role
		default:
			return nil, fmt.Errorf("invalid role: %w", domain.ErrBadRequest)
		}
	}
	if req.Enable != nil {
		if !p.IsAdmin() {
			return nil, fmt.Errorf("only admins may enable or disable accounts: %w", domain.ErrForbidden)
		}
		if *req.Enable != 0 && *req.Enable != 1 {
			return nil, fmt.Errorf("enable must be 0 or 1: %w", domain.ErrBadRequest)
		}
		updates[fieldEnable] = *req.Enable
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

// Delete soft-deletes the account and revokes all of its sessions.
func (s *service) Delete(ctx context.Context, p domain.Principal, userID string) error {
	if err := authorize(p, userID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return err
	}
	return s.sessionRepo.RevokeAllForUser(ctx, userID)
}
