package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askline/internal/config"
	"askline/internal/logger"
	"askline/pkg/errors"
	"askline/pkg/models"
)

type stubRepo struct {
	rules   map[string]*Rule
	active  []Rule
	loadErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{rules: make(map[string]*Rule)}
}

func (r *stubRepo) Create(_ context.Context, rule *Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	copied := *rule
	r.rules[rule.ID] = &copied
	return nil
}

func (r *stubRepo) Get(_ context.Context, id string) (*Rule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, nil
	}
	copied := *rule
	return &copied, nil
}

func (r *stubRepo) List(_ context.Context) ([]Rule, error) {
	var out []Rule
	for _, rule := range r.rules {
		out = append(out, *rule)
	}
	return out, nil
}

func (r *stubRepo) GetActiveRules(_ context.Context) ([]Rule, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.active, nil
}

func (r *stubRepo) Update(_ context.Context, rule *Rule) error {
	if _, ok := r.rules[rule.ID]; !ok {
		return errors.ErrNotFound
	}
	copied := *rule
	r.rules[rule.ID] = &copied
	return nil
}

func (r *stubRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.rules[id]; !ok {
		return errors.ErrNotFound
	}
	delete(r.rules, id)
	return nil
}

func newTestService(t *testing.T, repo Repository, fallbackOnError string) *Service {
	t.Helper()
	svc, err := NewService(repo, config.ModerationConfig{
		Fallback: config.FallbackConfig{OnError: fallbackOnError},
	}, logger.NopLogger())
	require.NoError(t, err)
	return svc
}

func question(content string) *models.Message {
	return &models.Message{
		ID:        "msg-1",
		SessionID: "sess-1",
		Type:      models.MessageTypeQuestion,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func TestCheck_NoRulesAllows(t *testing.T) {
	svc := newTestService(t, newStubRepo(), "allow")

	allowed, matched := svc.Check(context.Background(), question("anything"))

	assert.True(t, allowed)
	assert.Empty(t, matched)
}

func TestCheck_PassingRules(t *testing.T) {
	repo := newStubRepo()
	repo.active = []Rule{
		{ID: "r1", Name: "no spam", Expression: `!content.contains("spam")`, Enabled: true},
		{ID: "r2", Name: "short enough", Expression: `content.size() < 500`, Enabled: true},
	}
	svc := newTestService(t, repo, "allow")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	allowed, matched := svc.Check(context.Background(), question("What is a mutex?"))

	assert.True(t, allowed)
	assert.Equal(t, []string{"r1", "r2"}, matched)
}

func TestCheck_FirstFailingRuleRejects(t *testing.T) {
	repo := newStubRepo()
	repo.active = []Rule{
		{ID: "r1", Name: "no spam", Expression: `!content.contains("spam")`, Enabled: true},
		{ID: "r2", Name: "short enough", Expression: `content.size() < 500`, Enabled: true},
	}
	svc := newTestService(t, repo, "allow")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	allowed, matched := svc.Check(context.Background(), question("buy spam today"))

	assert.False(t, allowed)
	assert.Equal(t, []string{"r1"}, matched)
}

func TestCheck_EvaluationErrorFallbackAllow(t *testing.T) {
	repo := newStubRepo()
	repo.active = []Rule{
		// Compiles per-evaluation, so a stale rule with a bad expression can
		// reach Check.
		{ID: "broken", Name: "broken", Expression: `content.contains(`, Enabled: true},
	}
	svc := newTestService(t, repo, "allow")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	allowed, _ := svc.Check(context.Background(), question("hello"))

	assert.True(t, allowed)
}

func TestCheck_EvaluationErrorFallbackDeny(t *testing.T) {
	repo := newStubRepo()
	repo.active = []Rule{
		{ID: "broken", Name: "broken", Expression: `content.contains(`, Enabled: true},
	}
	svc := newTestService(t, repo, "deny")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	allowed, matched := svc.Check(context.Background(), question("hello"))

	assert.False(t, allowed)
	assert.Equal(t, []string{"broken"}, matched)
}

func TestReloadRules_Error(t *testing.T) {
	repo := newStubRepo()
	repo.loadErr = errors.ErrInternal
	svc := newTestService(t, repo, "allow")

	err := svc.ReloadRules(context.Background(), true)
	assert.Error(t, err)
}

func TestCreateRule_ValidatesExpression(t *testing.T) {
	svc := newTestService(t, newStubRepo(), "allow")

	_, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		Name:       "broken",
		Expression: `content.size(`,
	})
	assert.True(t, errors.IsValidation(err))

	_, err = svc.CreateRule(context.Background(), CreateRuleRequest{
		Name:       "non-bool",
		Expression: `content.size()`,
	})
	assert.True(t, errors.IsValidation(err))
}

func TestCreateRule_DefaultsEnabled(t *testing.T) {
	svc := newTestService(t, newStubRepo(), "allow")

	rule, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		Name:       "no spam",
		Expression: `!content.contains("spam")`,
	})
	require.NoError(t, err)

	assert.True(t, rule.Enabled)
	assert.NotEmpty(t, rule.ID)
}

func TestUpdateRule(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, "allow")

	rule, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		Name:       "no spam",
		Expression: `!content.contains("spam")`,
	})
	require.NoError(t, err)

	newExpr := `content.size() < 100`
	disabled := false
	updated, err := svc.UpdateRule(context.Background(), rule.ID, UpdateRuleRequest{
		Expression: &newExpr,
		Enabled:    &disabled,
	})
	require.NoError(t, err)

	assert.Equal(t, newExpr, updated.Expression)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "no spam", updated.Name)
}

func TestUpdateRule_InvalidExpression(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo, "allow")

	rule, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		Name:       "no spam",
		Expression: `!content.contains("spam")`,
	})
	require.NoError(t, err)

	bad := `(((`
	_, err = svc.UpdateRule(context.Background(), rule.ID, UpdateRuleRequest{Expression: &bad})
	assert.True(t, errors.IsValidation(err))
}

func TestDeleteRule_NotFound(t *testing.T) {
	svc := newTestService(t, newStubRepo(), "allow")

	err := svc.DeleteRule(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
}
