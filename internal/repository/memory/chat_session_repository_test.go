package memory

import (
	"context"
	"testing"
	"time"

	"notes-rag-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTitleIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewChatSessionRepository()
	session := &entity.ChatSession{OwnerId: uuid.New()}
	require.NoError(t, repo.Create(ctx, session))

	ok, err := repo.LockTitle(ctx, session.Id, "First")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.LockTitle(ctx, session.Id, "Second")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, session.OwnerId, session.Id)
	require.NoError(t, err)
	require.NotNil(t, got.Title)
	assert.Equal(t, "First", *got.Title)

	require.NoError(t, repo.ResetTitle(ctx, session.OwnerId, session.Id))
	ok, err = repo.LockTitle(ctx, session.Id, "Third")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAppendMessagesRejectsStalePositions(t *testing.T) {
	ctx := context.Background()
	repo := NewChatSessionRepository()
	session := &entity.ChatSession{OwnerId: uuid.New()}
	require.NoError(t, repo.Create(ctx, session))

	now := time.Now()
	pair := func(start int) []*entity.ChatMessage {
		return []*entity.ChatMessage{
			{Position: start, Role: "user", Content: "q", CreatedAt: now},
			{Position: start + 1, Role: "assistant", Content: "a", CreatedAt: now.Add(time.Microsecond)},
		}
	}

	require.NoError(t, repo.AppendMessages(ctx, session.Id, pair(0)...))
	assert.ErrorIs(t, repo.AppendMessages(ctx, session.Id, pair(0)...), ErrPositionTaken)
	require.NoError(t, repo.AppendMessages(ctx, session.Id, pair(2)...))

	msgs, err := repo.FindMessages(ctx, session.Id)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, m := range msgs {
		assert.Equal(t, i, m.Position)
	}
}

func TestForeignOwnerSeesNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewChatSessionRepository()
	session := &entity.ChatSession{OwnerId: uuid.New()}
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.FindByID(ctx, uuid.New(), session.Id)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Delete(ctx, uuid.New(), session.Id))
	got, err = repo.FindByID(ctx, session.OwnerId, session.Id)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
