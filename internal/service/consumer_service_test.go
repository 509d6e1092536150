package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"notes-rag-be/internal/dto"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerIndexesQueuedNotes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()
	consumer := NewConsumerService(pubSub, "embed", f.notes, f.indexer, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	owner := uuid.New()
	note := &entity.Note{Id: uuid.New(), OwnerId: owner, Title: "t", Text: "recipe for pasta", UpdatedAt: time.Now().UTC()}
	require.NoError(t, f.notes.Create(ctx, note))

	payload, err := json.Marshal(dto.PublishEmbedNoteMessage{NoteId: note.Id, OwnerId: owner})
	require.NoError(t, err)
	publisher := NewPublisherService("embed", pubSub)
	require.NoError(t, publisher.Publish(ctx, payload))

	assert.Eventually(t, func() bool {
		rec, err := f.records.FindByNote(ctx, owner, note.Id)
		return err == nil && rec != nil
	}, 2*time.Second, 10*time.Millisecond)

	// garbage and unknown notes are acknowledged and skipped
	require.NoError(t, pubSub.Publish("embed", message.NewMessage(watermill.NewUUID(), []byte("{"))))
	unknown, _ := json.Marshal(dto.PublishEmbedNoteMessage{NoteId: uuid.New(), OwnerId: owner})
	require.NoError(t, publisher.Publish(ctx, unknown))

	assert.Eventually(t, func() bool {
		all, err := f.records.FindAllByOwner(ctx, owner)
		return err == nil && len(all) == 1
	}, time.Second, 10*time.Millisecond)
}
