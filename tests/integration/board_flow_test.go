package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askline/internal/board"
	"askline/internal/message"
	"askline/internal/session"
	pkgerrors "askline/pkg/errors"
)

// The board flow tests run the session and message services together
// against a real Postgres, the way the board service wires them.

func setupBoardFlow(t *testing.T) (session.Service, message.Service, *board.Registry) {
	t.Helper()

	infra := SetupPostgres(t)
	log := createTestLogger()
	boards := board.NewRegistry()

	sessionSvc := session.NewService(
		session.NewRepository(infra.PostgresDB),
		createTestSessionConfig(),
		log,
		session.WithBoardRegistry(boards),
	)
	messageSvc := message.NewService(
		message.NewRepository(infra.PostgresDB),
		sessionSvc,
		boards,
		log,
	)

	return sessionSvc, messageSvc, boards
}

func TestBoardFlow_SubmitAndStats(t *testing.T) {
	sessionSvc, messageSvc, _ := setupBoardFlow(t)
	ctx := context.Background()

	sess, err := sessionSvc.Create(ctx, session.CreateSessionRequest{Title: "Distributed Systems"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.Code)

	_, err = messageSvc.Submit(ctx, sess.Code, message.SubmitMessageRequest{Type: "question", Content: "What is quorum?"}, "10.0.0.1")
	require.NoError(t, err)
	_, err = messageSvc.Submit(ctx, sess.Code, message.SubmitMessageRequest{Type: "question", Content: "Why vector clocks?"}, "10.0.0.2")
	require.NoError(t, err)
	_, err = messageSvc.Submit(ctx, sess.Code, message.SubmitMessageRequest{Type: "feedback", Content: "Slides are great"}, "10.0.0.3")
	require.NoError(t, err)

	stats, err := messageSvc.Stats(ctx, sess.Code)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Questions)
	assert.Equal(t, 1, stats.Feedback)
	assert.Equal(t, 2, stats.Unanswered)
}

func TestBoardFlow_FilterAndMutations(t *testing.T) {
	sessionSvc, messageSvc, _ := setupBoardFlow(t)
	ctx := context.Background()

	sess, err := sessionSvc.Create(ctx, session.CreateSessionRequest{Title: "Office hours"})
	require.NoError(t, err)

	q, err := messageSvc.Submit(ctx, sess.Code, message.SubmitMessageRequest{Type: "question", Content: "When is the exam?"}, "10.0.0.1")
	require.NoError(t, err)
	_, err = messageSvc.Submit(ctx, sess.Code, message.SubmitMessageRequest{Type: "feedback", Content: "Audio is quiet"}, "10.0.0.2")
	require.NoError(t, err)

	questions, err := messageSvc.List(ctx, sess.Code, board.FilterQuestion)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, q.ID, questions[0].ID)

	marked, err := messageSvc.MarkRead(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, marked.Read)

	answered, err := messageSvc.ToggleAnswered(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, answered.Answered)

	stats, err := messageSvc.Stats(ctx, sess.Code)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Unanswered)

	feedback, err := messageSvc.List(ctx, sess.Code, board.FilterFeedback)
	require.NoError(t, err)
	require.Len(t, feedback, 1)
	assert.Equal(t, "Audio is quiet", feedback[0].Content)
}

func TestBoardFlow_BoardSurvivesRestart(t *testing.T) {
	sessionSvc, messageSvc, boards := setupBoardFlow(t)
	ctx := context.Background()

	sess, err := sessionSvc.Create(ctx, session.CreateSessionRequest{Title: "Persistence"})
	require.NoError(t, err)

	_, err = messageSvc.Submit(ctx, sess.Code, message.SubmitMessageRequest{Type: "question", Content: "survives?"}, "10.0.0.1")
	require.NoError(t, err)

	// Dropping the in-memory board simulates a restart; the next read
	// rebuilds it from Postgres.
	boards.Drop(sess.ID)

	msgs, err := messageSvc.List(ctx, sess.Code, board.FilterAll)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "survives?", msgs[0].Content)
}

func TestBoardFlow_Clear(t *testing.T) {
	sessionSvc, messageSvc, _ := setupBoardFlow(t)
	ctx := context.Background()

	sess, err := sessionSvc.Create(ctx, session.CreateSessionRequest{Title: "Cleanup"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = messageSvc.Submit(ctx, sess.Code, message.SubmitMessageRequest{Type: "feedback", Content: "noise"}, "10.0.0.1")
		require.NoError(t, err)
	}

	result, err := messageSvc.Clear(ctx, sess.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Removed)

	stats, err := messageSvc.Stats(ctx, sess.Code)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestBoardFlow_EndedSessionRejectsSubmit(t *testing.T) {
	sessionSvc, messageSvc, _ := setupBoardFlow(t)
	ctx := context.Background()

	sess, err := sessionSvc.Create(ctx, session.CreateSessionRequest{Title: "Over"})
	require.NoError(t, err)

	_, err = sessionSvc.End(ctx, sess.Code)
	require.NoError(t, err)

	_, err = messageSvc.Submit(ctx, sess.Code, message.SubmitMessageRequest{Type: "question", Content: "too late"}, "10.0.0.1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsSessionEnded(err))
}

func TestBoardFlow_JoinInfo(t *testing.T) {
	sessionSvc, _, _ := setupBoardFlow(t)
	ctx := context.Background()

	sess, err := sessionSvc.Create(ctx, session.CreateSessionRequest{Title: "Join me"})
	require.NoError(t, err)

	info, err := sessionSvc.JoinInfo(ctx, sess.Code)
	require.NoError(t, err)
	assert.Equal(t, "https://ask.example.edu/join/"+sess.Code, info.URL)

	png, err := sessionSvc.QRCodePNG(ctx, sess.Code, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
