package archive

import (
	"context"

	"askline/internal/board"
	"askline/internal/logger"
	pkgerrors "askline/pkg/errors"
	"askline/pkg/metrics"
	"askline/pkg/models"
	"askline/pkg/tracing"
)

// Service consumes message lifecycle events and maintains one transcript
// document per session. Processing is idempotent per event ID via the
// deduper; replayed events are dropped.
type Service struct {
	repo   Repository
	dedup  *Deduper
	logger logger.Logger
}

func NewService(repo Repository, dedup *Deduper, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		dedup:  dedup,
		logger: log,
	}
}

// HandleEvent is the broker handler. Errors bubble to the consumer's
// retry/DLQ machinery; fatal errors are not retried.
func (s *Service) HandleEvent(ctx context.Context, event models.MessageEvent) error {
	ctx, span := tracing.GetTracer("archiver-service").Start(ctx, "archive.handle_event")
	defer span.End()

	if event.SessionID == "" {
		metrics.ArchiveEventsTotal.WithLabelValues(event.EventType, "invalid").Inc()
		return pkgerrors.ErrValidation.WithDetail("message", "event missing session_id").AsFatal()
	}

	if s.dedup != nil && event.EventID != "" {
		first, err := s.dedup.FirstSeen(ctx, event.EventID)
		if err != nil {
			metrics.ArchiveEventsTotal.WithLabelValues(event.EventType, "dedup_error").Inc()
			return err
		}
		if !first {
			metrics.ArchiveEventsTotal.WithLabelValues(event.EventType, "duplicate").Inc()
			s.logger.DebugwCtx(ctx, "Skipping already archived event",
				"event_id", event.EventID,
				"event_type", event.EventType,
			)
			return nil
		}
	}

	if err := s.apply(ctx, event); err != nil {
		metrics.ArchiveEventsTotal.WithLabelValues(event.EventType, "error").Inc()
		return err
	}

	metrics.ArchiveEventsTotal.WithLabelValues(event.EventType, "archived").Inc()
	return nil
}

func (s *Service) apply(ctx context.Context, event models.MessageEvent) error {
	switch event.EventType {
	case models.EventTypeMessageCreated:
		if event.Message == nil {
			return pkgerrors.ErrValidation.WithDetail("message", "created event missing message body").AsFatal()
		}
		return s.repo.AppendMessage(ctx, event.SessionID, *event.Message)

	case models.EventTypeMessageUpdated:
		if event.Message == nil {
			return pkgerrors.ErrValidation.WithDetail("message", "updated event missing message body").AsFatal()
		}
		return s.repo.UpdateMessage(ctx, event.SessionID, *event.Message)

	case models.EventTypeMessageDeleted:
		// A deleted event without a body marks a full board clear.
		if event.Message == nil {
			return s.repo.ClearMessages(ctx, event.SessionID)
		}
		return s.repo.RemoveMessage(ctx, event.SessionID, event.Message.ID)

	case models.EventTypeSessionEnded:
		transcript, err := s.repo.GetTranscript(ctx, event.SessionID)
		if err != nil {
			return err
		}

		var stats board.Stats
		if transcript != nil {
			stats = board.ComputeStats(transcript.Messages)
		}

		if err := s.repo.MarkEnded(ctx, event.SessionID, event.Timestamp, stats); err != nil {
			return err
		}
		metrics.ArchiveTranscriptsTotal.Inc()
		s.logger.InfowCtx(ctx, "Session transcript sealed",
			"session_id", event.SessionID,
			"total", stats.Total,
		)
		return nil

	default:
		s.logger.WarnwCtx(ctx, "Ignoring unknown event type",
			"event_type", event.EventType,
		)
		return nil
	}
}
