package service

import (
	"context"
	"fmt"

	"notes-rag-be/internal/dto"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/pkg/events"
	pktNats "notes-rag-be/pkg/nats"
	"notes-rag-be/pkg/rag/indexer"

	"github.com/google/uuid"
)

const indexModule = "IndexService"

const reconcileDurable = "index-reconcile-worker"

type IIndexService interface {
	Reconcile(ctx context.Context, ownerId uuid.UUID) (*dto.ReconcileResponse, error)
	// RequestReconcile hands the reconcile to whichever worker consumes
	// RECONCILE_REQUESTED.
	RequestReconcile(ctx context.Context, ownerId uuid.UUID) error
	Start(ctx context.Context) error
}

type Reconciler interface {
	Reconcile(ctx context.Context, ownerId uuid.UUID) (*indexer.Report, error)
	Realign(ctx context.Context, ownerId uuid.UUID, modelVersion string) (*indexer.Report, error)
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

type indexService struct {
	reconciler Reconciler
	events     EventPublisher
	subscriber EventSubscriber
	logger     logger.ILogger
}

func NewIndexService(reconciler Reconciler, eventPublisher EventPublisher, subscriber EventSubscriber, log logger.ILogger) IIndexService {
	return &indexService{
		reconciler: reconciler,
		events:     eventPublisher,
		subscriber: subscriber,
		logger:     log,
	}
}

func (s *indexService) Reconcile(ctx context.Context, ownerId uuid.UUID) (*dto.ReconcileResponse, error) {
	report, err := s.reconciler.Reconcile(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	return toReconcileResponse(report), nil
}

func (s *indexService) RequestReconcile(ctx context.Context, ownerId uuid.UUID) error {
	if s.events == nil {
		return fmt.Errorf("event bus unavailable")
	}
	return s.events.Publish(ctx, events.NewReconcileRequested(ownerId.String(), ""))
}

// Start subscribes the reconcile worker. Without a subscriber it is a no-op.
func (s *indexService) Start(ctx context.Context) error {
	if s.subscriber == nil {
		s.logger.Warn(indexModule, "No event subscriber, reconcile requests disabled", nil)
		return nil
	}
	return s.subscriber.Subscribe(ctx, events.ReconcileRequested, reconcileDurable, s.handleReconcileRequested)
}

func (s *indexService) handleReconcileRequested(ctx context.Context, evt events.Event) error {
	ownerId, err := uuid.Parse(events.StringField(evt, "owner_id"))
	if err != nil {
		// Redelivery cannot fix a bad payload.
		s.logger.Error(indexModule, "Reconcile request without valid owner", map[string]interface{}{
			"payload": evt.Payload(),
		})
		return nil
	}

	var report *indexer.Report
	if model := events.StringField(evt, "model_version"); model != "" {
		report, err = s.reconciler.Realign(ctx, ownerId, model)
	} else {
		report, err = s.reconciler.Reconcile(ctx, ownerId)
	}
	if err != nil {
		return err
	}

	s.logger.Info(indexModule, "Reconcile request handled", map[string]interface{}{
		"owner_id":  ownerId.String(),
		"refreshed": report.Refreshed,
		"failed":    report.Failed,
		"removed":   report.Removed,
	})
	return nil
}

// NoteIndexedNotifier publishes NOTE_INDEXED for every committed record. It
// is meant for indexer.Options.OnCommit.
func NoteIndexedNotifier(eventPublisher EventPublisher, log logger.ILogger) func(ctx context.Context, rec *entity.EmbeddingRecord) {
	return func(ctx context.Context, rec *entity.EmbeddingRecord) {
		if eventPublisher == nil {
			return
		}
		evt := events.NewNoteIndexed(rec.OwnerId.String(), rec.NoteId.String(), rec.ModelVersion)
		if err := eventPublisher.Publish(ctx, evt); err != nil {
			log.Warn(indexModule, "Failed to publish NOTE_INDEXED", map[string]interface{}{
				"note_id": rec.NoteId.String(),
				"error":   err.Error(),
			})
		}
	}
}

func toReconcileResponse(r *indexer.Report) *dto.ReconcileResponse {
	return &dto.ReconcileResponse{
		Scanned:   r.Scanned,
		Refreshed: r.Refreshed,
		Failed:    r.Failed,
		Removed:   r.Removed,
	}
}
