package board

import (
	"fmt"

	"askline/pkg/models"
)

// Filter selects the subset of a session's messages shown on the
// instructor dashboard.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterQuestion Filter = "question"
	FilterFeedback Filter = "feedback"
)

func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterQuestion:
		return FilterQuestion, nil
	case FilterFeedback:
		return FilterFeedback, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter %q", s)
	}
}

// Stats are aggregate counts over the full, unfiltered message list.
type Stats struct {
	Total      int `json:"total"`
	Questions  int `json:"questions"`
	Feedback   int `json:"feedback"`
	Unanswered int `json:"unanswered"`
}

// FilterMessages returns the messages matching f in their original order.
// FilterAll is the identity: the input slice is returned as-is. Any other
// filter produces a fresh slice; the input is never mutated.
func FilterMessages(msgs []models.Message, f Filter) []models.Message {
	if f == FilterAll {
		return msgs
	}

	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if Filter(m.Type) == f {
			out = append(out, m)
		}
	}
	return out
}

// ComputeStats derives counts from the full message list. Unanswered
// counts only questions: feedback has no answered state.
func ComputeStats(msgs []models.Message) Stats {
	stats := Stats{Total: len(msgs)}
	for _, m := range msgs {
		switch m.Type {
		case models.MessageTypeQuestion:
			stats.Questions++
			if !m.Answered {
				stats.Unanswered++
			}
		case models.MessageTypeFeedback:
			stats.Feedback++
		}
	}
	return stats
}
