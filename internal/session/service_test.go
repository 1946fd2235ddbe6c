package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askline/internal/board"
	"askline/internal/config"
	"askline/internal/logger"
	"askline/pkg/errors"
	"askline/pkg/models"
)

type fakeRepo struct {
	sessions     map[string]*Session // keyed by code
	createCalls  int
	endCalls     int
	deleteCalls  int
	lastEndedID  string
	createErr    error
	conflictOnce bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*Session)}
}

func (f *fakeRepo) Create(_ context.Context, sess *Session) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	if f.conflictOnce {
		f.conflictOnce = false
		return errors.ErrConflict.WithDetail("code", sess.Code)
	}
	copied := *sess
	f.sessions[sess.Code] = &copied
	return nil
}

func (f *fakeRepo) GetByCode(_ context.Context, code string) (*Session, error) {
	sess, ok := f.sessions[code]
	if !ok {
		return nil, nil
	}
	copied := *sess
	return &copied, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Session, error) {
	for _, sess := range f.sessions {
		if sess.ID == id {
			copied := *sess
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) List(_ context.Context) ([]Session, error) {
	var out []Session
	for _, sess := range f.sessions {
		out = append(out, *sess)
	}
	return out, nil
}

func (f *fakeRepo) End(_ context.Context, id string, endedAt time.Time) error {
	f.endCalls++
	f.lastEndedID = id
	for _, sess := range f.sessions {
		if sess.ID == id {
			sess.EndedAt = &endedAt
			return nil
		}
	}
	return errors.ErrNotFound
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.deleteCalls++
	for code, sess := range f.sessions {
		if sess.ID == id {
			delete(f.sessions, code)
			return nil
		}
	}
	return errors.ErrNotFound
}

type fakePublisher struct {
	events []models.MessageEvent
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event models.MessageEvent) error {
	f.events = append(f.events, event)
	return nil
}

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		PublicBaseURL:  "https://ask.example.com",
		JoinCodeLength: 6,
		QRSizePixels:   256,
	}
}

func TestService_Create(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig(), logger.NopLogger())

	sess, err := svc.Create(context.Background(), CreateSessionRequest{Title: "Lecture 7"})
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Len(t, sess.Code, 6)
	assert.Equal(t, "Lecture 7", sess.Title)
	assert.Nil(t, sess.EndedAt)

	for _, ch := range sess.Code {
		assert.Contains(t, codeAlphabet, string(ch))
	}
}

func TestService_CreateRetriesOnCodeCollision(t *testing.T) {
	repo := newFakeRepo()
	repo.conflictOnce = true
	svc := NewService(repo, testConfig(), logger.NopLogger())

	sess, err := svc.Create(context.Background(), CreateSessionRequest{Title: "Lecture"})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.createCalls)
	assert.NotEmpty(t, sess.Code)
}

func TestService_GetByCodeNotFound(t *testing.T) {
	svc := NewService(newFakeRepo(), testConfig(), logger.NopLogger())

	_, err := svc.GetByCode(context.Background(), "NOPE99")
	assert.True(t, errors.IsNotFound(err))
}

func TestService_End(t *testing.T) {
	repo := newFakeRepo()
	publisher := &fakePublisher{}
	boards := board.NewRegistry()
	svc := NewService(repo, testConfig(), logger.NopLogger(),
		WithEventPublisher(publisher, "events"),
		WithBoardRegistry(boards),
	)

	created, err := svc.Create(context.Background(), CreateSessionRequest{Title: "Lecture"})
	require.NoError(t, err)

	_, err = boards.GetOrCreate(created.ID, func() ([]models.Message, error) { return nil, nil })
	require.NoError(t, err)

	ended, err := svc.End(context.Background(), created.Code)
	require.NoError(t, err)

	assert.NotNil(t, ended.EndedAt)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, models.EventTypeSessionEnded, publisher.events[0].EventType)
	assert.Equal(t, created.ID, publisher.events[0].SessionID)

	_, ok := boards.Get(created.ID)
	assert.False(t, ok)
}

func TestService_EndTwiceIsGone(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig(), logger.NopLogger())

	created, err := svc.Create(context.Background(), CreateSessionRequest{Title: "Lecture"})
	require.NoError(t, err)

	_, err = svc.End(context.Background(), created.Code)
	require.NoError(t, err)

	_, err = svc.End(context.Background(), created.Code)
	assert.True(t, errors.IsSessionEnded(err))
}

func TestService_JoinInfo(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig(), logger.NopLogger())

	created, err := svc.Create(context.Background(), CreateSessionRequest{Title: "Lecture"})
	require.NoError(t, err)

	info, err := svc.JoinInfo(context.Background(), created.Code)
	require.NoError(t, err)

	assert.Equal(t, created.ID, info.SessionID)
	assert.Equal(t, "https://ask.example.com/join/"+created.Code, info.URL)
}

func TestService_QRCodePNG(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig(), logger.NopLogger())

	created, err := svc.Create(context.Background(), CreateSessionRequest{Title: "Lecture"})
	require.NoError(t, err)

	png, err := svc.QRCodePNG(context.Background(), created.Code, 0)
	require.NoError(t, err)

	// PNG magic bytes.
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := generateCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		seen[code] = struct{}{}
	}
	// Collisions across 100 draws from a 31^6 space would be astonishing.
	assert.Greater(t, len(seen), 95)
}
