package e2e

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askline/pkg/models"
)

const (
	kafkaBroker        = "localhost:29092"
	messageTopic       = "askline_message_events"
	messageWaitTimeout = 30 * time.Second
)

func TestMessageEventPublishedOnSubmit(t *testing.T) {
	sess := createSession(t, "E2E event stream")
	defer deleteSession(t, sess.Code)

	msg := submitMessage(t, sess.Code, "question", "Does this reach kafka?")

	event := waitForEvent(t, func(e models.MessageEvent) bool {
		return e.EventType == models.EventTypeMessageCreated &&
			e.Message != nil && e.Message.ID == msg.ID
	})
	require.NotNil(t, event, "message.created event should be published")

	assert.Equal(t, sess.ID, event.SessionID)
	assert.Equal(t, models.MessageTypeQuestion, event.Message.Type)
	assert.NotEmpty(t, event.EventID)
}

func TestSessionEndedEventPublished(t *testing.T) {
	sess := createSession(t, "E2E session end")
	defer deleteSession(t, sess.Code)

	endSession(t, sess.Code)

	event := waitForEvent(t, func(e models.MessageEvent) bool {
		return e.EventType == models.EventTypeSessionEnded && e.SessionID == sess.ID
	})
	require.NotNil(t, event, "session.ended event should be published")
	assert.Nil(t, event.Message)
}

func TestEventsForSessionShareKafkaKey(t *testing.T) {
	sess := createSession(t, "E2E ordering")
	defer deleteSession(t, sess.Code)

	first := submitMessage(t, sess.Code, "question", "first")
	second := submitMessage(t, sess.Code, "feedback", "second")

	var firstKey, secondKey []byte
	waitForEvent(t, func(e models.MessageEvent) bool {
		return e.Message != nil && e.Message.ID == first.ID
	})

	// Re-read with key capture.
	reader := newEventReader(t)
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), messageWaitTimeout)
	defer cancel()

	for firstKey == nil || secondKey == nil {
		m, err := reader.ReadMessage(ctx)
		require.NoError(t, err, "timed out waiting for both events")

		var event models.MessageEvent
		if err := json.Unmarshal(m.Value, &event); err != nil || event.Message == nil {
			continue
		}
		switch event.Message.ID {
		case first.ID:
			firstKey = m.Key
		case second.ID:
			secondKey = m.Key
		}
	}

	// Per-session ordering relies on a shared partition key.
	assert.Equal(t, firstKey, secondKey)
	assert.Equal(t, sess.ID, string(firstKey))
}

func newEventReader(t *testing.T) *kafka.Reader {
	t.Helper()

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{kafkaBroker},
		Topic:       messageTopic,
		GroupID:     "e2e-" + uuid.New().String(),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
}

func waitForEvent(t *testing.T, match func(models.MessageEvent) bool) *models.MessageEvent {
	t.Helper()

	reader := newEventReader(t)
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), messageWaitTimeout)
	defer cancel()

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			return nil
		}

		var event models.MessageEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			continue
		}
		if match(event) {
			return &event
		}
	}
}
