package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybiom/biom/internal/model"
)

func TestUserService(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	users := NewUserService(st, testOptions())

	u, err := users.CreateUser(ctx, &model.User{Name: "  Asha "})
	require.NoError(t, err)
	assert.NotEmpty(t, u.UserID)
	assert.Equal(t, "Asha", u.Name)

	_, err = users.CreateUser(ctx, &model.User{UserID: u.UserID})
	assert.True(t, model.IsConflictError(err))

	_, err = NewAttributeService(st, testOptions()).SetAttribute(ctx, u.UserID, "height", 165)
	require.NoError(t, err)

	p, err := users.GetProfile(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, p.UserID)
	require.Len(t, p.Attributes, 1)
	assert.Equal(t, "165", p.Attributes[0].Value)

	_, err = users.GetProfile(ctx, "ghost")
	assert.True(t, model.IsNotFoundError(err))

	lst, err := users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, lst, 1)
}

func TestChatService(t *testing.T) {
	ctx := context.Background()
	svc := NewChatService(newTestStore(t), testOptions())

	_, err := svc.Append(ctx, &model.ChatMessage{UserID: "u1", Message: "  "})
	assert.True(t, model.IsValidationError(err))

	_, err = svc.Append(ctx, &model.ChatMessage{UserID: "u1", Message: "what should I eat?"})
	require.NoError(t, err)
	_, err = svc.Append(ctx, &model.ChatMessage{UserID: "u1", Message: "oats", IsBot: true})
	require.NoError(t, err)

	msgs, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].IsBot)
	assert.True(t, msgs[1].IsBot)
}
