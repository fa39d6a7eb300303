package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

func TestEventPublisherPayload(t *testing.T) {
	pub := &recordingPublisher{}
	events := NewEventPublisher(pub, "todo-events", nil)
	fixed := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	events.now = func() time.Time { return fixed }

	events.Publish(context.Background(), types.EventTaskUpdated, 3, 11)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	require.Equal(t, "todo-events", msg.channel)
	require.Equal(t, map[string]string{"type": "task.updated"}, msg.attrs)

	var event types.Event
	require.NoError(t, json.Unmarshal(msg.data, &event))
	require.Equal(t, types.EventTaskUpdated, event.Type)
	require.Equal(t, int64(3), event.UserID)
	require.Equal(t, int64(11), event.TaskID)
	require.True(t, fixed.Equal(event.OccurredAt))
	_, err := ulid.ParseStrict(event.ID)
	require.NoError(t, err)
}

func TestEventPublisherSurvivesCancelledRequest(t *testing.T) {
	pub := &recordingPublisher{}
	events := NewEventPublisher(pub, "todo-events", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events.Publish(ctx, types.EventTaskDeleted, 1, 2)

	require.Len(t, pub.messages, 1)
}

func TestEventPublisherLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	pub := &recordingPublisher{err: errors.New("broker down")}
	events := NewEventPublisher(pub, "todo-events", logger)

	require.NotPanics(t, func() {
		events.Publish(context.Background(), types.EventTaskCreated, 1, 2)
	})
	require.Contains(t, buf.String(), "broker down")
	require.Contains(t, buf.String(), "task.created")
}

func TestEventPublisherDisabled(t *testing.T) {
	var nilPublisher *EventPublisher
	require.NotPanics(t, func() {
		nilPublisher.Publish(context.Background(), types.EventTaskCreated, 1, 2)
		NewEventPublisher(nil, "todo-events", nil).Publish(context.Background(), types.EventTaskCreated, 1, 2)
	})
}
