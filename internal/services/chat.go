package services

import (
	"context"
	"strings"

	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/store"
)

// ChatService stores the conversation shown next to the dashboard.
type ChatService struct {
	store store.Store
	opts  Options
}

func NewChatService(s store.Store, opts Options) *ChatService {
	return &ChatService{store: s, opts: opts.withDefaults()}
}

func (s *ChatService) Append(ctx context.Context, m *model.ChatMessage) (*model.ChatMessage, error) {
	if m == nil || strings.TrimSpace(m.Message) == "" {
		return nil, model.NewValidationError("message", "required")
	}
	if err := validateUserID(m.UserID); err != nil {
		return nil, err
	}
	return storeCall(ctx, s.opts, "append chat message", func(ctx context.Context) (*model.ChatMessage, error) {
		return s.store.Chat().Append(ctx, m)
	})
}

func (s *ChatService) List(ctx context.Context, userID string) ([]*model.ChatMessage, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return storeCall(ctx, s.opts, "list chat messages", func(ctx context.Context) ([]*model.ChatMessage, error) {
		return s.store.Chat().List(ctx, userID)
	})
}
