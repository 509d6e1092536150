package service

import (
	"context"
	"encoding/json"
	"errors"

	"notes-rag-be/internal/dto"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/pkg/rag"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "ConsumerService"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// NoteIndexer is the part of the embedding indexer the consumer drives.
type NoteIndexer interface {
	Upsert(ctx context.Context, note *entity.Note) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	notes      contract.NoteRepository
	indexer    NoteIndexer
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	notes contract.NoteRepository,
	indexer NoteIndexer,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		notes:      notes,
		indexer:    indexer,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedNoteMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // invalid payloads would loop forever
		return
	}

	// The note is re-read so the latest committed text gets embedded.
	note, err := cs.notes.FindByID(ctx, payload.OwnerId, payload.NoteId)
	if err != nil {
		cs.logger.Error(consumerModule, "Failed to load note", map[string]interface{}{
			"note_id": payload.NoteId.String(),
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}
	if note == nil {
		cs.logger.Info(consumerModule, "Note gone, nothing to index", map[string]interface{}{
			"note_id": payload.NoteId.String(),
		})
		msg.Ack()
		return
	}

	if err := cs.indexer.Upsert(ctx, note); err != nil {
		if errors.Is(err, rag.ErrEmbeddingFailure) {
			// Record stays stale; reconcile retries it.
			cs.logger.Warn(consumerModule, "Embedding failed", map[string]interface{}{
				"note_id": note.Id.String(),
				"error":   err.Error(),
			})
			msg.Ack()
			return
		}
		cs.logger.Error(consumerModule, "Failed to index note", map[string]interface{}{
			"note_id": note.Id.String(),
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}

	msg.Ack()
}
