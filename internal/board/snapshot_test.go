package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askline/pkg/errors"
	"askline/pkg/models"
)

func TestBoard_StatsMemoized(t *testing.T) {
	b := NewBoard("sess-1", []models.Message{
		msg("1", models.MessageTypeQuestion, false),
		msg("2", models.MessageTypeFeedback, false),
	})

	first := b.Stats()
	assert.Equal(t, Stats{Total: 2, Questions: 1, Feedback: 1, Unanswered: 1}, first)

	// Same revision: the cached value is served without recomputing.
	rev := b.statsRev
	second := b.Stats()
	assert.Equal(t, first, second)
	assert.Equal(t, rev, b.statsRev)
	assert.True(t, b.statsValid)
}

func TestBoard_StatsRecomputedAfterMutation(t *testing.T) {
	b := NewBoard("sess-1", []models.Message{
		msg("1", models.MessageTypeQuestion, false),
	})

	assert.Equal(t, Stats{Total: 1, Questions: 1, Unanswered: 1}, b.Stats())

	b.Append(msg("2", models.MessageTypeFeedback, false))

	stats := b.Stats()
	assert.Equal(t, Stats{Total: 2, Questions: 1, Feedback: 1, Unanswered: 1}, stats)
	assert.Equal(t, b.revision, b.statsRev)
}

func TestBoard_ViewMemoizedPerFilter(t *testing.T) {
	b := NewBoard("sess-1", []models.Message{
		msg("1", models.MessageTypeQuestion, false),
		msg("2", models.MessageTypeFeedback, false),
		msg("3", models.MessageTypeQuestion, true),
	})

	questions := b.Messages(FilterQuestion)
	require.Len(t, questions, 2)
	assert.Equal(t, FilterQuestion, b.viewFilter)

	// Same filter, same revision: cached slice is returned.
	again := b.Messages(FilterQuestion)
	assert.Same(t, &questions[0], &again[0])

	// Switching filters invalidates the cached view.
	feedback := b.Messages(FilterFeedback)
	require.Len(t, feedback, 1)
	assert.Equal(t, "2", feedback[0].ID)
	assert.Equal(t, FilterFeedback, b.viewFilter)
}

func TestBoard_Update(t *testing.T) {
	b := NewBoard("sess-1", []models.Message{
		msg("1", models.MessageTypeQuestion, false),
		msg("2", models.MessageTypeQuestion, false),
	})

	updated := msg("2", models.MessageTypeQuestion, true)
	updated.Read = true
	b.Update(updated)

	all := b.Messages(FilterAll)
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
	assert.True(t, all[1].Answered)
	assert.True(t, all[1].Read)

	stats := b.Stats()
	assert.Equal(t, 1, stats.Unanswered)
}

func TestBoard_UpdateUnknownIDLeavesListIntact(t *testing.T) {
	b := NewBoard("sess-1", []models.Message{
		msg("1", models.MessageTypeQuestion, false),
	})
	rev := b.Revision()

	b.Update(msg("missing", models.MessageTypeQuestion, true))

	all := b.Messages(FilterAll)
	require.Len(t, all, 1)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, rev+1, b.Revision())
}

func TestBoard_Remove(t *testing.T) {
	b := NewBoard("sess-1", []models.Message{
		msg("1", models.MessageTypeQuestion, false),
		msg("2", models.MessageTypeFeedback, false),
		msg("3", models.MessageTypeQuestion, false),
	})

	b.Remove("2")

	all := b.Messages(FilterAll)
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, "3", all[1].ID)
}

func TestBoard_Clear(t *testing.T) {
	b := NewBoard("sess-1", []models.Message{
		msg("1", models.MessageTypeQuestion, false),
		msg("2", models.MessageTypeFeedback, false),
	})

	b.Clear()

	assert.Empty(t, b.Messages(FilterAll))
	assert.Equal(t, Stats{}, b.Stats())
}

func TestBoard_RevisionAdvancesOnEveryMutation(t *testing.T) {
	b := NewBoard("sess-1", nil)
	assert.Equal(t, uint64(0), b.Revision())

	b.Append(msg("1", models.MessageTypeQuestion, false))
	assert.Equal(t, uint64(1), b.Revision())

	b.Update(msg("1", models.MessageTypeQuestion, true))
	assert.Equal(t, uint64(2), b.Revision())

	b.Remove("1")
	assert.Equal(t, uint64(3), b.Revision())

	b.Replace([]models.Message{msg("2", models.MessageTypeFeedback, false)})
	assert.Equal(t, uint64(4), b.Revision())

	b.Clear()
	assert.Equal(t, uint64(5), b.Revision())
}

func TestRegistry_GetOrCreateLoadsOnce(t *testing.T) {
	r := NewRegistry()
	loads := 0

	load := func() ([]models.Message, error) {
		loads++
		return []models.Message{msg("1", models.MessageTypeQuestion, false)}, nil
	}

	first, err := r.GetOrCreate("sess-1", load)
	require.NoError(t, err)
	second, err := r.GetOrCreate("sess-1", load)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loads)
}

func TestRegistry_GetOrCreateLoadError(t *testing.T) {
	r := NewRegistry()

	_, err := r.GetOrCreate("sess-1", func() ([]models.Message, error) {
		return nil, errors.ErrNotFound
	})
	require.Error(t, err)

	// A failed load does not leave a board behind.
	_, ok := r.Get("sess-1")
	assert.False(t, ok)
}

func TestRegistry_Drop(t *testing.T) {
	r := NewRegistry()

	_, err := r.GetOrCreate("sess-1", func() ([]models.Message, error) {
		return nil, nil
	})
	require.NoError(t, err)

	r.Drop("sess-1")

	_, ok := r.Get("sess-1")
	assert.False(t, ok)
}
