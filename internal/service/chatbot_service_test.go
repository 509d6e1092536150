package service

import (
	"context"
	"strings"
	"testing"

	"notes-rag-be/internal/constant"
	"notes-rag-be/internal/dto"
	"notes-rag-be/internal/entity"
	"notes-rag-be/pkg/events"
	"notes-rag-be/pkg/rag"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendChatCitesIncludedNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	pasta := f.indexNote(t, owner, "Pasta", "recipe for pasta")
	f.indexNote(t, owner, "Gravity", "physics lecture on gravity")
	f.indexNote(t, uuid.New(), "Other", "recipe for pasta")

	res, err := f.chatSvc.SendChat(ctx, owner, &dto.SendChatRequest{Chat: "what did I write about cooking"})
	require.NoError(t, err)
	require.False(t, res.NoSources)
	require.NotEmpty(t, res.Reply.Citations)
	assert.Equal(t, pasta.Id, res.Reply.Citations[0].NoteId)
	assert.Equal(t, "Pasta", res.Reply.Citations[0].Title)
	assert.Empty(t, res.Sent.Citations)

	reqs := f.generator.answerRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, constant.RagSystemPromptV1, reqs[0].SystemPrompt)
	require.Len(t, reqs[0].ContextBlocks, len(res.Reply.Citations))
	for i, c := range res.Reply.Citations {
		assert.True(t, strings.HasPrefix(reqs[0].ContextBlocks[i], "[note:"+c.NoteId.String()+"]"))
		note, err := f.notes.FindByID(ctx, owner, c.NoteId)
		require.NoError(t, err)
		assert.NotNil(t, note, "citation must be one of the owner's notes")
	}
}

func TestSendChatWithoutNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()

	res, err := f.chatSvc.SendChat(ctx, owner, &dto.SendChatRequest{Chat: "what is entropy?"})
	require.NoError(t, err)
	assert.True(t, res.NoSources)
	assert.True(t, strings.HasPrefix(res.Reply.Chat, constant.NoNotesFoundMessage))
	assert.Empty(t, res.Reply.Citations)

	reqs := f.generator.answerRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, constant.NoSourcesSystemPromptV1, reqs[0].SystemPrompt)
	assert.Empty(t, reqs[0].ContextBlocks)
}

func TestSendChatTitlesSessionOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	f.indexNote(t, owner, "Pasta", "recipe for pasta")

	first, err := f.chatSvc.SendChat(ctx, owner, &dto.SendChatRequest{Chat: "how do I cook pasta"})
	require.NoError(t, err)
	assert.Equal(t, "Pasta Cooking", first.ChatSessionTitle)

	f.generator.title = "Different"
	id := first.ChatSessionId
	second, err := f.chatSvc.SendChat(ctx, owner, &dto.SendChatRequest{ChatSessionId: &id, Chat: "and the sauce?"})
	require.NoError(t, err)
	assert.Equal(t, id, second.ChatSessionId)
	assert.Equal(t, "Pasta Cooking", second.ChatSessionTitle)

	history, err := f.chatSvc.GetChatHistory(ctx, owner, id)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, constant.ChatMessageRoleUser, history[2].Role)
	assert.Equal(t, "and the sauce?", history[2].Chat)

	// the follow-up replays the first exchange
	reqs := f.generator.answerRequests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].History, 3)

	titled := 0
	for _, typ := range f.events.types() {
		if typ == events.ChatTitled {
			titled++
		}
	}
	assert.Equal(t, 1, titled)
}

func TestSendChatGenerationFailureAppendsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()

	created, err := f.chatSvc.CreateSession(ctx, owner)
	require.NoError(t, err)

	f.generator.err = rag.ErrGenerationTimeout
	_, err = f.chatSvc.SendChat(ctx, owner, &dto.SendChatRequest{ChatSessionId: &created.Id, Chat: "anything"})
	assert.ErrorIs(t, err, rag.ErrGenerationTimeout)

	history, err := f.chatSvc.GetChatHistory(ctx, owner, created.Id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendChatCancelledAppendsNothing(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	created, err := f.chatSvc.CreateSession(context.Background(), owner)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.chatSvc.SendChat(ctx, owner, &dto.SendChatRequest{ChatSessionId: &created.Id, Chat: "anything"})
	assert.Error(t, err)

	history, err := f.chatSvc.GetChatHistory(context.Background(), owner, created.Id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSessionsAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice, bob := uuid.New(), uuid.New()

	created, err := f.chatSvc.CreateSession(ctx, alice)
	require.NoError(t, err)

	_, err = f.chatSvc.GetChatHistory(ctx, bob, created.Id)
	assert.ErrorIs(t, err, rag.ErrSessionNotFound)
	_, err = f.chatSvc.SendChat(ctx, bob, &dto.SendChatRequest{ChatSessionId: &created.Id, Chat: "hi"})
	assert.ErrorIs(t, err, rag.ErrSessionNotFound)
	assert.ErrorIs(t, f.chatSvc.DeleteSession(ctx, bob, created.Id), rag.ErrSessionNotFound)

	sessions, err := f.chatSvc.GetAllSessions(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	require.NoError(t, f.chatSvc.DeleteSession(ctx, alice, created.Id))
	_, err = f.chatSvc.GetChatHistory(ctx, alice, created.Id)
	assert.ErrorIs(t, err, rag.ErrSessionNotFound)
}

func TestSendChatScopesToNamedSubject(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	kitchen := &entity.Subject{OwnerId: owner, Name: "Kitchen"}
	garden := &entity.Subject{OwnerId: owner, Name: "Garden"}
	require.NoError(t, f.subjects.Create(ctx, kitchen))
	require.NoError(t, f.subjects.Create(ctx, garden))
	f.indexSubjectNote(t, owner, kitchen.Id, "Pasta", "recipe for pasta")
	sauce := f.indexSubjectNote(t, owner, garden.Id, "Sauce", "tomato sauce for dinner")

	res, err := f.chatSvc.SendChat(ctx, owner, &dto.SendChatRequest{Chat: "garden sauce recipe"})
	require.NoError(t, err)
	require.Len(t, res.Reply.Citations, 1)
	assert.Equal(t, sauce.Id, res.Reply.Citations[0].NoteId)
}

func TestSendChatSubjectWithoutMatchesSearchesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()
	garden := &entity.Subject{OwnerId: owner, Name: "Garden"}
	require.NoError(t, f.subjects.Create(ctx, garden))
	f.indexSubjectNote(t, owner, garden.Id, "Roses", "prune roses in spring")
	pasta := f.indexNote(t, owner, "Pasta", "recipe for pasta")

	res, err := f.chatSvc.SendChat(ctx, owner, &dto.SendChatRequest{Chat: "garden pasta recipe"})
	require.NoError(t, err)
	require.False(t, res.NoSources)
	assert.Equal(t, pasta.Id, res.Reply.Citations[0].NoteId)
}

func TestMatchSubject(t *testing.T) {
	physics := &entity.Subject{Name: "Physics"}
	quantum := &entity.Subject{Name: "Quantum Physics"}
	subjects := []*entity.Subject{physics, quantum, {Name: "  "}}

	tests := []struct {
		question string
		want     *entity.Subject
	}{
		{"what did I note in quantum physics?", quantum},
		{"PHYSICS homework", physics},
		{"anything on cooking", nil},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Same(t, tt.want, matchSubject(tt.question, subjects))
		})
	}
}

func TestSuggestedQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owner := uuid.New()

	res, err := f.chatSvc.SuggestedQuestions(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, constant.GenericSuggestedQuestions, res.Questions)

	for _, name := range []string{"Biology", "Algebra", "History"} {
		require.NoError(t, f.subjects.Create(ctx, &entity.Subject{OwnerId: owner, Name: name}))
	}
	res, err = f.chatSvc.SuggestedQuestions(ctx, owner)
	require.NoError(t, err)
	require.Len(t, res.Questions, 5)
	assert.Equal(t, "What have I learned about Algebra?", res.Questions[0])
	assert.Equal(t, "What have I learned about Biology?", res.Questions[1])
	assert.Equal(t, "Compare my notes on Algebra and Biology", res.Questions[2])
}
