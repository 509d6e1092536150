package service

import (
	"context"

	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/pkg/events"

	"github.com/google/uuid"
)

const liveModule = "LiveService"

// LiveDelivery pushes an event to an owner's open connections.
type LiveDelivery interface {
	Send(ownerId uuid.UUID, evt events.Event)
}

// ILiveService forwards index and chat events to connected clients so the
// frontend can refresh titles and search results without polling.
type ILiveService interface {
	Start(ctx context.Context) error
}

type liveService struct {
	subscriber EventSubscriber
	delivery   LiveDelivery
	logger     logger.ILogger
}

var liveDurables = map[string]string{
	events.NoteIndexed: "live-note-indexed",
	events.ChatTitled:  "live-chat-titled",
}

func NewLiveService(subscriber EventSubscriber, delivery LiveDelivery, log logger.ILogger) ILiveService {
	return &liveService{subscriber: subscriber, delivery: delivery, logger: log}
}

func (s *liveService) Start(ctx context.Context) error {
	if s.subscriber == nil {
		s.logger.Warn(liveModule, "No event subscriber, live updates disabled", nil)
		return nil
	}
	for eventType, durable := range liveDurables {
		if err := s.subscriber.Subscribe(ctx, eventType, durable, s.forward); err != nil {
			return err
		}
	}
	return nil
}

func (s *liveService) forward(_ context.Context, evt events.Event) error {
	ownerId, err := uuid.Parse(events.StringField(evt, "owner_id"))
	if err != nil {
		s.logger.Warn(liveModule, "Event without owner dropped", map[string]interface{}{"type": evt.EventType()})
		return nil
	}
	s.delivery.Send(ownerId, evt)
	return nil
}
