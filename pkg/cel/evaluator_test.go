package cel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askline/pkg/models"
)

func testMessage(content string) *models.Message {
	return &models.Message{
		ID:        "msg-1",
		SessionID: "sess-1",
		Type:      models.MessageTypeQuestion,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func TestValidateRuleExpression(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{name: "valid content check", expression: `!content.contains("spam")`},
		{name: "valid length check", expression: `content.size() < 500`},
		{name: "valid type check", expression: `type == "question" || content.size() > 0`},
		{name: "syntax error", expression: `content.contains(`, wantErr: true},
		{name: "unknown variable", expression: `payload.size() > 0`, wantErr: true},
		{name: "non-bool result", expression: `content.size()`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := evaluator.ValidateRuleExpression(tt.expression)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateRule(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name       string
		expression string
		content    string
		want       bool
	}{
		{
			name:       "passes clean content",
			expression: `!content.contains("spam")`,
			content:    "What is a goroutine?",
			want:       true,
		},
		{
			name:       "rejects flagged content",
			expression: `!content.contains("spam")`,
			content:    "buy spam now",
			want:       false,
		},
		{
			name:       "length limit",
			expression: `content.size() <= 10`,
			content:    "way too long for this rule",
			want:       false,
		},
		{
			name:       "type aware rule",
			expression: `type != "question" || content.endsWith("?")`,
			content:    "Is this a question?",
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluator.EvaluateRule(context.Background(), tt.expression, testMessage(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateRule_CompileError(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	_, err = evaluator.EvaluateRule(context.Background(), `bogus syntax here(`, testMessage("x"))
	assert.Error(t, err)
}
