package feed

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"vigil/internal/dao"
)

// Feed is the time ordered list of detections fetched for one source.
// Events are only ever appended, never modified.
type Feed struct {
	mu     sync.RWMutex
	events []dao.Inference
	cursor float64
}

func NewFeed() *Feed {
	return &Feed{}
}

// Append sorts the page by t and appends it. The cursor moves to the
// largest t of the page; an empty page leaves it unchanged.
func (f *Feed) Append(page []dao.Inference) {
	if len(page) == 0 {
		return
	}
	sorted := make([]dao.Inference, len(page))
	copy(sorted, page)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	latest := lo.MaxBy(sorted, func(a, b dao.Inference) bool { return a.T > b.T })

	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sorted...)
	if latest.T > f.cursor {
		f.cursor = latest.T
	}
}

// Cursor is the largest t seen so far, 0 for a fresh feed.
func (f *Feed) Cursor() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cursor
}

// Snapshot returns a read-only view of the events accumulated so far.
// Later appends never change what a snapshot holds.
func (f *Feed) Snapshot() []dao.Inference {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := len(f.events)
	return f.events[:n:n]
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.events)
}
