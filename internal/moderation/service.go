package moderation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"askline/internal/config"
	"askline/internal/constants"
	"askline/internal/logger"
	"askline/pkg/cel"
	pkgerrors "askline/pkg/errors"
	"askline/pkg/metrics"
	"askline/pkg/models"
	"askline/pkg/tracing"
)

type errorHandlingStatus int

const (
	errorHandlingDeny errorHandlingStatus = iota
	errorHandlingSkip
)

// Service evaluates the active moderation rule set against incoming
// messages and owns the rule CRUD surface. The active set is a cached copy
// reloaded from Postgres on an interval.
type Service struct {
	repo      Repository
	rules     []Rule
	rulesMu   sync.RWMutex
	cfg       config.ModerationConfig
	evaluator *cel.Evaluator
	logger    logger.Logger
}

func NewService(repo Repository, cfg config.ModerationConfig, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	return &Service{
		repo:      repo,
		cfg:       cfg,
		rules:     make([]Rule, 0),
		evaluator: evaluator,
		logger:    log,
	}, nil
}

// Check runs the message through the active rules in priority order. A
// message passes when every rule evaluates true; the first failing rule
// rejects it. The returned IDs are the rules that decided the outcome.
func (s *Service) Check(ctx context.Context, msg *models.Message) (bool, []string) {
	ctx, span := tracing.GetTracer("board-service").Start(ctx, "moderation.check")
	defer span.End()

	rules := s.getActiveRules()
	passedRules := make([]string, 0, len(rules))

	for _, rule := range rules {
		if ctx.Err() != nil {
			return s.fallback(ctx, rule, ctx.Err()) != errorHandlingDeny, passedRules
		}

		result, err := s.evaluator.EvaluateRule(ctx, rule.Expression, msg)
		if err != nil {
			if s.fallback(ctx, rule, err) == errorHandlingDeny {
				metrics.IncModerationEvaluation(rule.ID, "error_deny")
				return false, []string{rule.ID}
			}
			metrics.IncModerationEvaluation(rule.ID, "error_allow")
			continue
		}

		if !result {
			metrics.IncModerationEvaluation(rule.ID, "rejected")
			s.logger.DebugwCtx(ctx, "Rule rejected message",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
			)
			return false, []string{rule.ID}
		}

		metrics.IncModerationEvaluation(rule.ID, "passed")
		passedRules = append(passedRules, rule.ID)
	}

	return true, passedRules
}

func (s *Service) getActiveRules() []Rule {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()

	rules := make([]Rule, len(s.rules))
	copy(rules, s.rules)
	return rules
}

func (s *Service) fallback(ctx context.Context, rule Rule, err error) errorHandlingStatus {
	s.logger.ErrorwCtx(ctx, "Rule evaluation error",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"error", err,
	)

	switch s.cfg.Fallback.OnError {
	case constants.FallbackDeny:
		metrics.FallbackUsageTotal.WithLabelValues("moderation", "deny_on_error", "evaluation_error").Inc()
		return errorHandlingDeny
	default:
		metrics.FallbackUsageTotal.WithLabelValues("moderation", "allow_on_error", "evaluation_error").Inc()
		return errorHandlingSkip
	}
}

func (s *Service) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	rules, err := s.repo.GetActiveRules(ctx)
	if err != nil {
		return err
	}

	s.rulesMu.Lock()
	s.rules = rules
	s.rulesMu.Unlock()

	metrics.SetModerationActiveRules(len(rules))
	s.logger.InfowCtx(ctx, "Reloaded moderation rules",
		"rules_count", len(rules),
	)

	return nil
}

// applyJitter spreads reloads across instances so they do not hit the
// database in lockstep.
func (s *Service) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.cfg.Reload.JitterMaxMilliseconds == 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.cfg.Reload.JitterMaxMilliseconds)) * time.Millisecond

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) StartReloader(ctx context.Context) error {
	interval := time.Duration(s.cfg.Reload.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = constants.DefaultModerationReloadInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.ReloadRules(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload moderation rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload moderation rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) CreateRule(ctx context.Context, req CreateRuleRequest) (*Rule, error) {
	if err := s.evaluator.ValidateRuleExpression(req.Expression); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule := &Rule{
		Name:       req.Name,
		Expression: req.Expression,
		Priority:   req.Priority,
		Enabled:    enabled,
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		if pkgerrors.IsConflict(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	return rule, nil
}

func (s *Service) ListRules(ctx context.Context) ([]Rule, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rules, nil
}

func (s *Service) GetRule(ctx context.Context, id string) (*Rule, error) {
	rule, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return rule, nil
}

func (s *Service) UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*Rule, error) {
	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Expression != nil {
		if err := s.evaluator.ValidateRuleExpression(*req.Expression); err != nil {
			return nil, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
		}
		rule.Expression = *req.Expression
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, id string) error {
	if _, err := s.GetRule(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	return nil
}
