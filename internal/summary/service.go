package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"askline/internal/board"
	"askline/internal/config"
	"askline/internal/constants"
	"askline/internal/logger"
	"askline/internal/session"
	"askline/pkg/circuitbreaker"
	pkgerrors "askline/pkg/errors"
	"askline/pkg/metrics"
	"askline/pkg/models"
	"askline/pkg/retry"
)

// SessionLookup is the slice of the session service the summary service
// needs.
type SessionLookup interface {
	GetByCode(ctx context.Context, code string) (*session.Session, error)
}

// MessageSource loads a session's full message list, used to seed the
// board on first access.
type MessageSource interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Message, error)
}

// Service produces AI summaries of session boards. Results are cached in
// Redis keyed by session and board revision, so a summary is recomputed
// only after the board changes. Upstream calls go through a circuit
// breaker with retries.
type Service struct {
	sessions SessionLookup
	messages MessageSource
	boards   *board.Registry
	client   Client
	cache    *redis.Client
	breaker  *circuitbreaker.Wrapper
	policy   retry.Policy
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewService(
	sessions SessionLookup,
	messages MessageSource,
	boards *board.Registry,
	client Client,
	cache *redis.Client,
	cfg config.SummaryConfig,
	log logger.Logger,
) *Service {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = constants.DefaultSummaryTTLSeconds * time.Second
	}

	policy := retry.DefaultPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		policy = retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Multiplier:      cfg.Retry.Multiplier,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		}
	}

	return &Service{
		sessions: sessions,
		messages: messages,
		boards:   boards,
		client:   client,
		cache:    cache,
		breaker:  circuitbreaker.NewWrapper(circuitbreaker.DefaultConfig("summarizer")),
		policy:   policy,
		cacheTTL: ttl,
		logger:   log,
	}
}

// Get returns the summary for the session's current board revision,
// serving from cache when the board has not changed.
func (s *Service) Get(ctx context.Context, sessionCode string) (*Summary, error) {
	sess, err := s.sessions.GetByCode(ctx, sessionCode)
	if err != nil {
		return nil, err
	}

	b, err := s.boards.GetOrCreate(sess.ID, func() ([]models.Message, error) {
		return s.messages.ListBySession(ctx, sess.ID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	revision := b.Revision()
	key := cacheKey(sess.ID, revision)

	if cached := s.fromCache(ctx, key); cached != nil {
		metrics.SummaryRequestsTotal.WithLabelValues("cache").Inc()
		return cached, nil
	}

	msgs := b.Messages(board.FilterAll)
	if len(msgs) == 0 {
		metrics.SummaryRequestsTotal.WithLabelValues("empty").Inc()
		return &Summary{
			SessionID:   sess.ID,
			Revision:    revision,
			GeneratedAt: time.Now().UTC(),
		}, nil
	}

	text, err := s.summarize(ctx, sess.ID, msgs)
	if err != nil {
		metrics.SummaryRequestsTotal.WithLabelValues("error").Inc()
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrServiceUnavailable)
	}

	result := &Summary{
		SessionID:   sess.ID,
		Revision:    revision,
		Text:        text,
		GeneratedAt: time.Now().UTC(),
	}

	s.toCache(ctx, key, result)
	metrics.SummaryRequestsTotal.WithLabelValues("upstream").Inc()

	return result, nil
}

func (s *Service) summarize(ctx context.Context, sessionID string, msgs []models.Message) (string, error) {
	var text string

	err := retry.Retry(ctx, s.policy, func() error {
		start := time.Now()
		result, err := s.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return s.client.Summarize(ctx, sessionID, msgs)
		})
		metrics.ObserveSummaryUpstreamDuration(time.Since(start))
		if err != nil {
			return err
		}
		text = result.(string)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("summarizer call failed: %w", err)
	}

	return text, nil
}

func (s *Service) fromCache(ctx context.Context, key string) *Summary {
	if s.cache == nil {
		return nil
	}

	val, err := s.cache.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		s.logger.WarnwCtx(ctx, "Summary cache read failed",
			"error", err,
			"key", key,
		)
		return nil
	}

	var cached Summary
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to unmarshal cached summary",
			"error", err,
			"key", key,
		)
		return nil
	}

	return &cached
}

func (s *Service) toCache(ctx context.Context, key string, result *Summary) {
	if s.cache == nil {
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, body, s.cacheTTL).Err(); err != nil {
		s.logger.WarnwCtx(ctx, "Summary cache write failed",
			"error", err,
			"key", key,
		)
	}
}

func cacheKey(sessionID string, revision uint64) string {
	return fmt.Sprintf("%s%s:%d", constants.CacheKeyPrefixSummary, sessionID, revision)
}
