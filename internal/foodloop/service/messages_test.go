package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
)

func TestMessages_SubmitAndReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	messages := NewMessageService(env.repo, zap.NewNop())

	admin := env.user(t, models.RoleAdmin, "admin@example.com", 0, 0)
	donor := env.user(t, models.RoleDonor, "donor@example.com", 0, 0)

	empty, err := messages.List(ctx, admin)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = messages.Submit(ctx, ContactInput{Name: "Bob", Email: "not-an-email", Message: "hi"})
	require.ErrorIs(t, err, ErrValidation)

	m, err := messages.Submit(ctx, ContactInput{Name: "Bob", Email: "bob@example.com", Subject: "Q", Message: "When?"})
	require.NoError(t, err)

	_, err = messages.List(ctx, donor)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = messages.Reply(ctx, admin, m.ID, "  ")
	require.ErrorIs(t, err, ErrValidation)
	_, err = messages.Reply(ctx, admin, "missing", "hello")
	require.ErrorIs(t, err, repository.ErrNotFound)

	rp, err := messages.Reply(ctx, admin, m.ID, "Tomorrow")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, rp.AdminID)

	items, err := messages.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Replied)
	require.Len(t, items[0].Replies, 1)
	assert.Equal(t, "Tomorrow", items[0].Replies[0].Body)
}
