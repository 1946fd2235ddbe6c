package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"askline/internal/config"
	"askline/internal/constants"
	"askline/internal/logger"
	"askline/internal/moderation"
	"askline/internal/session"
	"askline/pkg/models"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		PublicBaseURL:  "https://ask.example.edu",
		JoinCodeLength: 6,
		QRSizePixels:   128,
	}
}

func createTestModerationConfig() config.ModerationConfig {
	return config.ModerationConfig{
		Fallback: config.FallbackConfig{
			OnError: constants.FallbackAllow,
		},
		Reload: config.ReloadConfig{
			IntervalSeconds: 60,
		},
	}
}

func createTestRule(name, expression string, priority int, enabled bool) *moderation.Rule {
	return &moderation.Rule{
		Name:       name,
		Expression: expression,
		Priority:   priority,
		Enabled:    enabled,
	}
}

// createLiveSession inserts a session row directly and returns it.
func createLiveSession(t *testing.T, repo session.Repository, title string) *session.Session {
	t.Helper()

	sess := &session.Session{
		ID:        uuid.New().String(),
		Code:      "TS" + uuid.New().String()[:6],
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), sess))
	return sess
}

func createTestMessage(sessionID string, msgType models.MessageType, content string) *models.Message {
	return &models.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      msgType,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
