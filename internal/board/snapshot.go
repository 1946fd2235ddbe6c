package board

import (
	"sync"

	"askline/pkg/metrics"
	"askline/pkg/models"
)

// Board is the live snapshot of one session's messages. Mutations replace
// the message list copy-on-write and bump the revision; derived stats and
// filtered views are memoized against the revision, so unchanged snapshots
// are never recomputed.
type Board struct {
	mu        sync.RWMutex
	sessionID string
	messages  []models.Message
	revision  uint64

	statsRev   uint64
	statsValid bool
	stats      Stats

	viewRev    uint64
	viewFilter Filter
	viewValid  bool
	view       []models.Message
}

func NewBoard(sessionID string, msgs []models.Message) *Board {
	b := &Board{
		sessionID: sessionID,
		messages:  msgs,
	}
	metrics.SetBoardRevision(sessionID, 0)
	return b
}

func (b *Board) SessionID() string {
	return b.sessionID
}

func (b *Board) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// Replace swaps in a whole new message list.
func (b *Board) Replace(msgs []models.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = msgs
	b.bump()
}

// Append adds one message to the end of the snapshot.
func (b *Board) Append(msg models.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]models.Message, len(b.messages), len(b.messages)+1)
	copy(next, b.messages)
	b.messages = append(next, msg)
	b.bump()
}

// Update replaces the entry with the same ID. The list is copied with the
// one entry changed; readers holding the old snapshot are unaffected.
func (b *Board) Update(msg models.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]models.Message, len(b.messages))
	copy(next, b.messages)
	for i := range next {
		if next[i].ID == msg.ID {
			next[i] = msg
			break
		}
	}
	b.messages = next
	b.bump()
}

// Remove drops the entry with the given ID, preserving order.
func (b *Board) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]models.Message, 0, len(b.messages))
	for _, m := range b.messages {
		if m.ID != id {
			next = append(next, m)
		}
	}
	b.messages = next
	b.bump()
}

// Clear empties the snapshot.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
	b.bump()
}

// Messages returns the current view for f, in original order. The view is
// recomputed only when the revision or the requested filter changed since
// the last call.
func (b *Board) Messages(f Filter) []models.Message {
	b.mu.RLock()
	if b.viewValid && b.viewRev == b.revision && b.viewFilter == f {
		view := b.view
		b.mu.RUnlock()
		return view
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	// Re-check: another reader may have filled the cache.
	if b.viewValid && b.viewRev == b.revision && b.viewFilter == f {
		return b.view
	}

	b.view = FilterMessages(b.messages, f)
	b.viewRev = b.revision
	b.viewFilter = f
	b.viewValid = true
	metrics.IncBoardRecompute("view")
	return b.view
}

// Stats returns the aggregate counts for the current snapshot, recomputing
// only when the revision changed.
func (b *Board) Stats() Stats {
	b.mu.RLock()
	if b.statsValid && b.statsRev == b.revision {
		stats := b.stats
		b.mu.RUnlock()
		return stats
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.statsValid && b.statsRev == b.revision {
		return b.stats
	}

	b.stats = ComputeStats(b.messages)
	b.statsRev = b.revision
	b.statsValid = true
	metrics.IncBoardRecompute("stats")
	return b.stats
}

// bump is called with the write lock held.
func (b *Board) bump() {
	b.revision++
	metrics.SetBoardRevision(b.sessionID, b.revision)
}

// Registry tracks one Board per active session.
type Registry struct {
	mu     sync.RWMutex
	boards map[string]*Board
}

func NewRegistry() *Registry {
	return &Registry{
		boards: make(map[string]*Board),
	}
}

func (r *Registry) Get(sessionID string) (*Board, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boards[sessionID]
	return b, ok
}

// GetOrCreate returns the session's board, loading the initial message
// list through load on first access.
func (r *Registry) GetOrCreate(sessionID string, load func() ([]models.Message, error)) (*Board, error) {
	r.mu.RLock()
	b, ok := r.boards[sessionID]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.boards[sessionID]; ok {
		return b, nil
	}

	msgs, err := load()
	if err != nil {
		return nil, err
	}

	b = NewBoard(sessionID, msgs)
	r.boards[sessionID] = b
	return b, nil
}

// Drop forgets the session's board, e.g. when the session ends.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, sessionID)
}
