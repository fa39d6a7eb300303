/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/mq"
	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

// eventsCmd groups commands that work with the lifecycle event stream.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect task lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log every event published to the events channel",
	Long: `Subscribes to EVENTS_CHANNEL on the configured broker and logs each event
until interrupted. Usage:

	MQ_BACKEND=rabbitmq RABBITMQ_URL=amqp://... todo events tail
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer broker.Close()

		logger.WithField("channel", cfg.MQ.EventsChannel).Info("tailing events")
		err = broker.Subscribe(ctx, cfg.MQ.EventsChannel, eventLogger(logger))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}

// eventLogger returns a handler that logs decoded events. Messages that are
// not events are logged and acknowledged so they are not redelivered.
func eventLogger(logger logrus.FieldLogger) mq.Handler {
	return func(_ context.Context, msg mq.Message) error {
		var event types.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.WithError(fmt.Errorf("decode message %s: %w", msg.ID, err)).Warn("skipping message")
			return nil
		}
		logger.WithFields(logrus.Fields{
			"event_id":    event.ID,
			"event_type":  event.Type,
			"user_id":     event.UserID,
			"task_id":     event.TaskID,
			"occurred_at": event.OccurredAt,
		}).Info("event")
		return nil
	}
}
