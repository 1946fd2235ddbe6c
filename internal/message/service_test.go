package message

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askline/internal/board"
	"askline/internal/logger"
	"askline/internal/session"
	"askline/pkg/errors"
	"askline/pkg/models"
)

type memoryRepo struct {
	msgs map[string]*models.Message
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{msgs: make(map[string]*models.Message)}
}

func (r *memoryRepo) Create(_ context.Context, msg *models.Message) error {
	copied := *msg
	r.msgs[msg.ID] = &copied
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*models.Message, error) {
	msg, ok := r.msgs[id]
	if !ok {
		return nil, nil
	}
	copied := *msg
	return &copied, nil
}

func (r *memoryRepo) ListBySession(_ context.Context, sessionID string) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range r.msgs {
		if msg.SessionID == sessionID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (r *memoryRepo) Update(_ context.Context, msg *models.Message) error {
	if _, ok := r.msgs[msg.ID]; !ok {
		return errors.ErrNotFound
	}
	copied := *msg
	r.msgs[msg.ID] = &copied
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.msgs[id]; !ok {
		return errors.ErrNotFound
	}
	delete(r.msgs, id)
	return nil
}

func (r *memoryRepo) DeleteBySession(_ context.Context, sessionID string) (int64, error) {
	var removed int64
	for id, msg := range r.msgs {
		if msg.SessionID == sessionID {
			delete(r.msgs, id)
			removed++
		}
	}
	return removed, nil
}

type staticSessions struct {
	sess *session.Session
}

func (s *staticSessions) GetByCode(_ context.Context, code string) (*session.Session, error) {
	if s.sess == nil || s.sess.Code != code {
		return nil, errors.ErrNotFound.WithDetail("code", code)
	}
	copied := *s.sess
	return &copied, nil
}

type denyingModerator struct {
	deny    bool
	matched []string
}

func (m *denyingModerator) Check(_ context.Context, _ *models.Message) (bool, []string) {
	return !m.deny, m.matched
}

type capturingPublisher struct {
	events []models.MessageEvent
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event models.MessageEvent) error {
	p.events = append(p.events, event)
	return nil
}

func liveSession() *session.Session {
	return &session.Session{
		ID:        "sess-1",
		Code:      "AB12CD",
		Title:     "Lecture",
		CreatedAt: time.Now(),
	}
}

func newTestService(repo Repository, sess *session.Session, opts ...ServiceOption) Service {
	return NewService(repo, &staticSessions{sess: sess}, board.NewRegistry(), logger.NopLogger(), opts...)
}

func TestSubmit(t *testing.T) {
	repo := newMemoryRepo()
	publisher := &capturingPublisher{}
	svc := newTestService(repo, liveSession(), WithEventPublisher(publisher, "events"))

	msg, err := svc.Submit(context.Background(), "AB12CD", SubmitMessageRequest{
		Type:    "question",
		Content: "What is a goroutine?",
	}, "203.0.113.9")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "sess-1", msg.SessionID)
	assert.Equal(t, models.MessageTypeQuestion, msg.Type)
	assert.False(t, msg.Read)
	assert.False(t, msg.Answered)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, models.EventTypeMessageCreated, publisher.events[0].EventType)
	assert.Equal(t, "203.0.113.9", publisher.events[0].Metadata.SubmitterIP)

	stats, err := svc.Stats(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, board.Stats{Total: 1, Questions: 1, Unanswered: 1}, stats)
}

func TestSubmit_SessionEnded(t *testing.T) {
	sess := liveSession()
	endedAt := time.Now()
	sess.EndedAt = &endedAt

	svc := newTestService(newMemoryRepo(), sess)

	_, err := svc.Submit(context.Background(), "AB12CD", SubmitMessageRequest{
		Type:    "question",
		Content: "Too late?",
	}, "")
	assert.True(t, errors.IsSessionEnded(err))
}

func TestSubmit_UnknownSession(t *testing.T) {
	svc := newTestService(newMemoryRepo(), liveSession())

	_, err := svc.Submit(context.Background(), "NOPE99", SubmitMessageRequest{
		Type:    "feedback",
		Content: "hello",
	}, "")
	assert.True(t, errors.IsNotFound(err))
}

func TestSubmit_Rejected(t *testing.T) {
	repo := newMemoryRepo()
	moderator := &denyingModerator{deny: true, matched: []string{"rule-1"}}
	svc := newTestService(repo, liveSession(), WithModerator(moderator))

	_, err := svc.Submit(context.Background(), "AB12CD", SubmitMessageRequest{
		Type:    "feedback",
		Content: "spam spam spam",
	}, "")
	require.True(t, errors.IsRejected(err))

	// Rejected messages never reach storage.
	assert.Empty(t, repo.msgs)
}

func TestListAndFilter(t *testing.T) {
	svc := newTestService(newMemoryRepo(), liveSession())

	for _, req := range []SubmitMessageRequest{
		{Type: "question", Content: "q1"},
		{Type: "feedback", Content: "f1"},
		{Type: "question", Content: "q2"},
	} {
		_, err := svc.Submit(context.Background(), "AB12CD", req, "")
		require.NoError(t, err)
	}

	all, err := svc.List(context.Background(), "AB12CD", board.FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	questions, err := svc.List(context.Background(), "AB12CD", board.FilterQuestion)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "q1", questions[0].Content)
	assert.Equal(t, "q2", questions[1].Content)
}

func TestMarkRead_Idempotent(t *testing.T) {
	publisher := &capturingPublisher{}
	svc := newTestService(newMemoryRepo(), liveSession(), WithEventPublisher(publisher, "events"))

	msg, err := svc.Submit(context.Background(), "AB12CD", SubmitMessageRequest{
		Type:    "question",
		Content: "q",
	}, "")
	require.NoError(t, err)

	first, err := svc.MarkRead(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.True(t, first.Read)

	eventsAfterFirst := len(publisher.events)

	second, err := svc.MarkRead(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.True(t, second.Read)

	// Already-read messages produce no further update events.
	assert.Len(t, publisher.events, eventsAfterFirst)
}

func TestToggleAnswered(t *testing.T) {
	svc := newTestService(newMemoryRepo(), liveSession())

	msg, err := svc.Submit(context.Background(), "AB12CD", SubmitMessageRequest{
		Type:    "question",
		Content: "q",
	}, "")
	require.NoError(t, err)

	toggled, err := svc.ToggleAnswered(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Answered)

	back, err := svc.ToggleAnswered(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.False(t, back.Answered)

	stats, err := svc.Stats(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unanswered)
}

func TestToggleAnswered_FeedbackRejected(t *testing.T) {
	svc := newTestService(newMemoryRepo(), liveSession())

	msg, err := svc.Submit(context.Background(), "AB12CD", SubmitMessageRequest{
		Type:    "feedback",
		Content: "nice",
	}, "")
	require.NoError(t, err)

	_, err = svc.ToggleAnswered(context.Background(), msg.ID)
	assert.True(t, errors.IsValidation(err))
}

func TestDelete(t *testing.T) {
	publisher := &capturingPublisher{}
	svc := newTestService(newMemoryRepo(), liveSession(), WithEventPublisher(publisher, "events"))

	msg, err := svc.Submit(context.Background(), "AB12CD", SubmitMessageRequest{
		Type:    "question",
		Content: "q",
	}, "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), msg.ID))

	stats, err := svc.Stats(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, board.Stats{}, stats)

	last := publisher.events[len(publisher.events)-1]
	assert.Equal(t, models.EventTypeMessageDeleted, last.EventType)

	err = svc.Delete(context.Background(), msg.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestClear(t *testing.T) {
	publisher := &capturingPublisher{}
	svc := newTestService(newMemoryRepo(), liveSession(), WithEventPublisher(publisher, "events"))

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(context.Background(), "AB12CD", SubmitMessageRequest{
			Type:    "feedback",
			Content: "f",
		}, "")
		require.NoError(t, err)
	}

	result, err := svc.Clear(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Removed)

	stats, err := svc.Stats(context.Background(), "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, board.Stats{}, stats)

	last := publisher.events[len(publisher.events)-1]
	assert.Equal(t, models.EventTypeMessageDeleted, last.EventType)
	assert.Nil(t, last.Message)
}
