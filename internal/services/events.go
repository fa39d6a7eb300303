package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

const publishTimeout = 5 * time.Second

// Publisher is the subset of mq.MQ used for lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// EventPublisher emits lifecycle events after changes are committed. A nil
// *EventPublisher, or one without a Publisher, drops every event.
type EventPublisher struct {
	publisher Publisher
	channel   string
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewEventPublisher(publisher Publisher, channel string, logger logrus.FieldLogger) *EventPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventPublisher{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		now:       time.Now,
	}
}

// Publish sends one event. Failures are logged; the change that triggered
// the event has already been committed.
func (p *EventPublisher) Publish(ctx context.Context, eventType types.EventType, userID, taskID int64) {
	if p == nil || p.publisher == nil {
		return
	}

	event := types.Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		UserID:     userID,
		TaskID:     taskID,
		OccurredAt: p.now().UTC(),
	}
	log := p.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"user_id":    userID,
	})

	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	attrs := map[string]string{"type": string(eventType)}
	if _, err := p.publisher.Publish(ctx, p.channel, data, attrs); err != nil {
		log.WithError(err).Warn("publish event")
		return
	}
	log.Debug("event published")
}
