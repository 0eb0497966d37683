package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"card-quiz/internal/domain"
	"card-quiz/internal/scoring"
	"github.com/rs/zerolog/log"
)

// Leaderboard is the authoritative in-memory ranking. Every mutation is
// persisted through the store before the in-memory copy is replaced.
type Leaderboard struct {
	store LeaderboardStore
	now   func() time.Time

	mu          sync.RWMutex
	entries     []domain.LeaderboardEntry
	updatedAt   time.Time
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboard(store LeaderboardStore) *Leaderboard {
	return NewLeaderboardWithClock(store, time.Now)
}

// NewLeaderboardWithClock is used by tests for deterministic timestamps.
func NewLeaderboardWithClock(store LeaderboardStore, now func() time.Time) *Leaderboard {
	return &Leaderboard{
		store:       store,
		now:         now,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Load replaces the in-memory ranking with the persisted one. Missing or
// corrupt data yields an empty leaderboard.
func (l *Leaderboard) Load(ctx context.Context) error {
	entries, err := l.store.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoData):
		log.Info().Msg("no persisted leaderboard, starting empty")
		entries = nil
	case errors.Is(err, ErrCorrupt):
		log.Warn().Err(err).Msg("persisted leaderboard unreadable, starting empty")
		entries = nil
	default:
		return fmt.Errorf("load leaderboard: %w", err)
	}

	normalized := make([]domain.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		normalized, _ = mergeEntry(normalized, e)
	}
	sortEntries(normalized)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = normalized
	l.updatedAt = l.now()
	log.Info().Int("entries", len(normalized)).Msg("leaderboard loaded")
	return nil
}

// Upsert stores entry if its participant has no entry yet or if it ranks
// strictly better than the stored one. It reports whether the leaderboard changed.
func (l *Leaderboard) Upsert(ctx context.Context, entry domain.LeaderboardEntry) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]domain.LeaderboardEntry, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)

	next, changed := mergeEntry(next, entry)
	if !changed {
		return false, nil
	}
	sortEntries(next)

	if err := l.commitLocked(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// RecomputeAll rescores every entry from its raw answers against key.
// Entries without raw answers are kept unchanged.
func (l *Leaderboard) RecomputeAll(ctx context.Context, key domain.AnswerKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]domain.LeaderboardEntry, 0, len(l.entries))
	skipped := 0
	for _, e := range l.entries {
		if e.Answers == nil {
			skipped++
		}
		next = append(next, scoring.Apply(e, key))
	}
	sortEntries(next)

	if err := l.commitLocked(ctx, next); err != nil {
		return err
	}
	log.Info().
		Int("entries", len(next)).
		Int("legacy", skipped).
		Uint64("key_version", key.Version).
		Msg("leaderboard recomputed")
	return nil
}

// Reset removes every entry.
func (l *Leaderboard) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commitLocked(ctx, []domain.LeaderboardEntry{})
}

// List returns the ordered entries of one category, or all of them for CategoryUnassigned.
func (l *Leaderboard) List(category domain.CategoryID) domain.Leaderboard {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked(category)
}

// Len is the number of stored entries across all categories.
func (l *Leaderboard) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Subscribe returns a channel receiving the full ranking after every change.
// The caller must invoke the returned cancel function.
func (l *Leaderboard) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	// The initial snapshot is queued under the lock so no broadcast can
	// overtake it.
	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	ch <- l.snapshotLocked(domain.CategoryUnassigned)
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

func (l *Leaderboard) commitLocked(ctx context.Context, next []domain.LeaderboardEntry) error {
	if err := l.store.Save(ctx, next); err != nil {
		return fmt.Errorf("persist leaderboard: %w", err)
	}
	l.entries = next
	l.updatedAt = l.now()
	l.broadcastLocked()
	return nil
}

func (l *Leaderboard) broadcastLocked() {
	lb := l.snapshotLocked(domain.CategoryUnassigned)
	for ch := range l.subscribers {
		select {
		case ch <- lb:
		default:
			// Slow reader: replace its stale snapshot with the latest one.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

func (l *Leaderboard) snapshotLocked(category domain.CategoryID) domain.Leaderboard {
	filtered := FilterEntries(l.entries, category)
	entries := append(make([]domain.LeaderboardEntry, 0, len(filtered)), filtered...)
	return domain.Leaderboard{
		Category:  category,
		Entries:   entries,
		UpdatedAt: l.updatedAt,
	}
}

// mergeEntry applies the best-result-wins rule for entry's (name, category).
func mergeEntry(entries []domain.LeaderboardEntry, entry domain.LeaderboardEntry) ([]domain.LeaderboardEntry, bool) {
	for i := range entries {
		if !entries[i].SameParticipant(entry) {
			continue
		}
		if entry.Better(entries[i]) {
			entries[i] = entry
			return entries, true
		}
		return entries, false
	}
	return append(entries, entry), true
}

// sortEntries orders by (disqualified, final_time, penalty); ties keep their
// previous relative order so repeated recomputes are stable.
func sortEntries(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Better(entries[j])
	})
}

// FilterEntries returns the entries of one category from an ordered list.
func FilterEntries(entries []domain.LeaderboardEntry, category domain.CategoryID) []domain.LeaderboardEntry {
	if category == domain.CategoryUnassigned {
		return entries
	}
	out := make([]domain.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}
