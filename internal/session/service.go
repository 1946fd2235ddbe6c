package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"askline/internal/board"
	"askline/internal/config"
	"askline/internal/constants"
	"askline/internal/logger"
	"askline/pkg/errors"
	"askline/pkg/logging"
	"askline/pkg/models"
)

// codeAlphabet omits ambiguous characters (0/O, 1/I/L) so join codes stay
// readable on a projected slide.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const maxCodeAttempts = 5

type Service interface {
	Create(ctx context.Context, req CreateSessionRequest) (*Session, error)
	GetByCode(ctx context.Context, code string) (*Session, error)
	List(ctx context.Context) ([]Session, error)
	End(ctx context.Context, code string) (*Session, error)
	Delete(ctx context.Context, code string) error
	JoinInfo(ctx context.Context, code string) (*JoinInfo, error)
	QRCodePNG(ctx context.Context, code string, size int) ([]byte, error)
}

// EventPublisher is the slice of the broker producer the session service
// needs to announce session lifecycle changes.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event models.MessageEvent) error
}

type service struct {
	repo     Repository
	cfg      config.SessionConfig
	logger   logger.Logger
	boards   *board.Registry
	producer EventPublisher
	topic    string
}

type ServiceOption func(*service)

func WithEventPublisher(producer EventPublisher, topic string) ServiceOption {
	return func(s *service) {
		s.producer = producer
		s.topic = topic
	}
}

func WithBoardRegistry(boards *board.Registry) ServiceOption {
	return func(s *service) {
		s.boards = boards
	}
}

func NewService(repo Repository, cfg config.SessionConfig, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		cfg:    cfg,
		logger: log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) Create(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	length := s.cfg.JoinCodeLength
	if length <= 0 {
		length = constants.DefaultJoinCodeLength
	}

	var sess *Session
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode(length)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal)
		}

		sess = &Session{
			ID:        uuid.New().String(),
			Code:      code,
			Title:     req.Title,
			CreatedAt: time.Now().UTC(),
		}

		err = s.repo.Create(ctx, sess)
		if err == nil {
			s.logger.InfowCtx(ctx, "Session created",
				"session_id", sess.ID,
				"code", sess.Code,
			)
			return sess, nil
		}
		if !errors.IsConflict(err) {
			return nil, errors.Wrap(err, errors.ErrInternal)
		}
		// Code collision, draw again.
	}

	return nil, errors.ErrInternal.WithDetail("message", "could not allocate a unique join code")
}

func (s *service) GetByCode(ctx context.Context, code string) (*Session, error) {
	sess, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}
	if sess == nil {
		return nil, errors.ErrNotFound.WithDetail("code", code)
	}
	return sess, nil
}

func (s *service) List(ctx context.Context) ([]Session, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}
	return sessions, nil
}

func (s *service) End(ctx context.Context, code string) (*Session, error) {
	sess, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if sess.Ended() {
		return nil, errors.ErrSessionEnded.WithDetail("code", code)
	}

	endedAt := time.Now().UTC()
	if err := s.repo.End(ctx, sess.ID, endedAt); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}
	sess.EndedAt = &endedAt

	if s.boards != nil {
		s.boards.Drop(sess.ID)
	}

	s.publishEnded(ctx, sess)

	s.logger.InfowCtx(ctx, "Session ended",
		"session_id", sess.ID,
		"code", sess.Code,
	)

	return sess, nil
}

func (s *service) Delete(ctx context.Context, code string) error {
	sess, err := s.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, sess.ID); err != nil {
		return errors.Wrap(err, errors.ErrInternal)
	}

	if s.boards != nil {
		s.boards.Drop(sess.ID)
	}

	s.logger.InfowCtx(ctx, "Session deleted",
		"session_id", sess.ID,
		"code", sess.Code,
	)

	return nil
}

func (s *service) JoinInfo(ctx context.Context, code string) (*JoinInfo, error) {
	sess, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	joinURL, err := JoinURL(s.cfg.PublicBaseURL, sess.Code)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	return &JoinInfo{
		SessionID: sess.ID,
		Code:      sess.Code,
		URL:       joinURL,
	}, nil
}

func (s *service) QRCodePNG(ctx context.Context, code string, size int) ([]byte, error) {
	info, err := s.JoinInfo(ctx, code)
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		size = s.cfg.QRSizePixels
	}
	if size <= 0 {
		size = constants.DefaultQRSizePixels
	}

	png, err := qrcode.Encode(info.URL, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("failed to encode qr code: %w", err), errors.ErrInternal)
	}

	return png, nil
}

func (s *service) publishEnded(ctx context.Context, sess *Session) {
	if s.producer == nil {
		return
	}

	event := models.MessageEvent{
		EventID:   uuid.New().String(),
		EventType: models.EventTypeSessionEnded,
		SessionID: sess.ID,
		Timestamp: time.Now().UTC(),
		Metadata: models.Metadata{
			TraceID: logging.GetTraceID(ctx),
		},
	}

	if err := s.producer.Publish(ctx, s.topic, event); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to publish session ended event",
			"error", err,
			"session_id", sess.ID,
		)
	}
}

func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	code := make([]byte, length)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}
