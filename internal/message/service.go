package message

import (
	"context"
	"time"

	"github.com/google/uuid"

	"askline/internal/board"
	"askline/internal/logger"
	"askline/internal/session"
	"askline/pkg/errors"
	"askline/pkg/logging"
	"askline/pkg/metrics"
	"askline/pkg/models"
)

type Service interface {
	Submit(ctx context.Context, sessionCode string, req SubmitMessageRequest, submitterIP string) (*models.Message, error)
	List(ctx context.Context, sessionCode string, filter board.Filter) ([]models.Message, error)
	Stats(ctx context.Context, sessionCode string) (board.Stats, error)
	MarkRead(ctx context.Context, id string) (*models.Message, error)
	ToggleAnswered(ctx context.Context, id string) (*models.Message, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context, sessionCode string) (*ClearResult, error)
}

// SessionLookup is the slice of the session service the message service
// needs.
type SessionLookup interface {
	GetByCode(ctx context.Context, code string) (*session.Session, error)
}

// Moderator decides whether an incoming message may be posted. The matched
// rule IDs travel with the message event for auditing.
type Moderator interface {
	Check(ctx context.Context, msg *models.Message) (allowed bool, matched []string)
}

// EventPublisher is the slice of the broker producer the message service
// needs.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event models.MessageEvent) error
}

type service struct {
	repo      Repository
	sessions  SessionLookup
	boards    *board.Registry
	logger    logger.Logger
	moderator Moderator
	producer  EventPublisher
	topic     string
}

type ServiceOption func(*service)

func WithModerator(m Moderator) ServiceOption {
	return func(s *service) {
		s.moderator = m
	}
}

func WithEventPublisher(producer EventPublisher, topic string) ServiceOption {
	return func(s *service) {
		s.producer = producer
		s.topic = topic
	}
}

func NewService(repo Repository, sessions SessionLookup, boards *board.Registry, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		repo:     repo,
		sessions: sessions,
		boards:   boards,
		logger:   log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) Submit(ctx context.Context, sessionCode string, req SubmitMessageRequest, submitterIP string) (*models.Message, error) {
	sess, err := s.sessions.GetByCode(ctx, sessionCode)
	if err != nil {
		return nil, err
	}
	if sess.Ended() {
		metrics.IncMessageSubmitted(req.Type, "session_ended")
		return nil, errors.ErrSessionEnded.WithDetail("code", sessionCode)
	}

	msgType := models.MessageType(req.Type)
	if !msgType.Valid() {
		metrics.IncMessageSubmitted(req.Type, "invalid")
		return nil, errors.ErrValidation.WithDetail("type", req.Type)
	}

	msg := &models.Message{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Type:      msgType,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}

	var matched []string
	if s.moderator != nil {
		allowed, ruleIDs := s.moderator.Check(ctx, msg)
		matched = ruleIDs
		if !allowed {
			metrics.IncMessageSubmitted(req.Type, "rejected")
			s.logger.InfowCtx(ctx, "Message rejected by moderation",
				"session_id", sess.ID,
				"matched_rules", ruleIDs,
			)
			return nil, errors.ErrRejected.WithDetail("matched_rules", ruleIDs)
		}
	}

	// Materialize the board before the insert so the initial load cannot
	// pick up the new row and have it appended twice.
	b, err := s.boardFor(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		metrics.IncMessageSubmitted(req.Type, "error")
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	b.Append(*msg)

	s.publish(ctx, models.EventTypeMessageCreated, sess.ID, msg, matched, submitterIP)
	metrics.IncMessageSubmitted(req.Type, "accepted")

	return msg, nil
}

func (s *service) List(ctx context.Context, sessionCode string, filter board.Filter) ([]models.Message, error) {
	sess, err := s.sessions.GetByCode(ctx, sessionCode)
	if err != nil {
		return nil, err
	}

	b, err := s.boardFor(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	return b.Messages(filter), nil
}

func (s *service) Stats(ctx context.Context, sessionCode string) (board.Stats, error) {
	sess, err := s.sessions.GetByCode(ctx, sessionCode)
	if err != nil {
		return board.Stats{}, err
	}

	b, err := s.boardFor(ctx, sess.ID)
	if err != nil {
		return board.Stats{}, err
	}

	return b.Stats(), nil
}

func (s *service) MarkRead(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.Read {
		return msg, nil
	}

	msg.Read = true
	if err := s.repo.Update(ctx, msg); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	s.applyUpdate(ctx, msg)
	metrics.IncMessageMutation("read")

	return msg, nil
}

func (s *service) ToggleAnswered(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.Type != models.MessageTypeQuestion {
		return nil, errors.ErrValidation.WithDetail("message", "only questions can be answered")
	}

	msg.Answered = !msg.Answered
	if err := s.repo.Update(ctx, msg); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	s.applyUpdate(ctx, msg)
	metrics.IncMessageMutation("toggle_answered")

	return msg, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	msg, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, errors.ErrInternal)
	}

	if b, ok := s.boards.Get(msg.SessionID); ok {
		b.Remove(id)
	}

	s.publish(ctx, models.EventTypeMessageDeleted, msg.SessionID, msg, nil, "")
	metrics.IncMessageMutation("delete")

	return nil
}

func (s *service) Clear(ctx context.Context, sessionCode string) (*ClearResult, error) {
	sess, err := s.sessions.GetByCode(ctx, sessionCode)
	if err != nil {
		return nil, err
	}

	removed, err := s.repo.DeleteBySession(ctx, sess.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	if b, ok := s.boards.Get(sess.ID); ok {
		b.Clear()
	}

	// A delete event without a message body marks a full clear.
	s.publish(ctx, models.EventTypeMessageDeleted, sess.ID, nil, nil, "")
	metrics.IncMessageMutation("clear")

	s.logger.InfowCtx(ctx, "Session messages cleared",
		"session_id", sess.ID,
		"removed", removed,
	)

	return &ClearResult{SessionID: sess.ID, Removed: removed}, nil
}

func (s *service) get(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}
	if msg == nil {
		return nil, errors.ErrNotFound.WithDetail("id", id)
	}
	return msg, nil
}

func (s *service) boardFor(ctx context.Context, sessionID string) (*board.Board, error) {
	b, err := s.boards.GetOrCreate(sessionID, func() ([]models.Message, error) {
		return s.repo.ListBySession(ctx, sessionID)
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}
	return b, nil
}

func (s *service) applyUpdate(ctx context.Context, msg *models.Message) {
	if b, ok := s.boards.Get(msg.SessionID); ok {
		b.Update(*msg)
	}
	s.publish(ctx, models.EventTypeMessageUpdated, msg.SessionID, msg, nil, "")
}

func (s *service) publish(ctx context.Context, eventType, sessionID string, msg *models.Message, matched []string, submitterIP string) {
	if s.producer == nil {
		return
	}

	event := models.MessageEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Message:   msg,
		Metadata: models.Metadata{
			TraceID:     logging.GetTraceID(ctx),
			Moderation:  matched,
			SubmitterIP: submitterIP,
		},
	}

	if err := s.producer.Publish(ctx, s.topic, event); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to publish message event",
			"error", err,
			"event_type", eventType,
			"session_id", sessionID,
		)
	}
}
