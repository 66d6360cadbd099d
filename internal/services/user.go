package services

import (
	"context"
	"strings"

	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/store"
)

// UserService handles user-related operations.
type UserService struct {
	store store.Store
	opts  Options
}

func NewUserService(s store.Store, opts Options) *UserService {
	return &UserService{store: s, opts: opts.withDefaults()}
}

// CreateUser registers a user. A missing UserID is generated by the store.
func (s *UserService) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	in := *u
	in.UserID = strings.TrimSpace(in.UserID)
	in.Name = strings.TrimSpace(in.Name)
	if in.UserID != "" {
		if err := validateUserID(in.UserID); err != nil {
			return nil, err
		}
	}
	return storeCall(ctx, s.opts, "create user", func(ctx context.Context) (*model.User, error) {
		return s.store.Users().Create(ctx, &in)
	})
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return storeCall(ctx, s.opts, "get user", func(ctx context.Context) (*model.User, error) {
		return s.store.Users().Get(ctx, userID)
	})
}

func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return storeCall(ctx, s.opts, "list users", func(ctx context.Context) ([]*model.User, error) {
		return s.store.Users().List(ctx)
	})
}

// GetProfile returns the user together with the current value of every attribute.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	attrs, err := storeCall(ctx, s.opts, "current attributes", func(ctx context.Context) ([]*model.Attribute, error) {
		return s.store.Attributes().Current(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return &model.UserProfile{User: *u, Attributes: attrs}, nil
}
