package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vigil/internal/dao"
	"vigil/internal/model"
)

type fetchCall struct {
	kind   model.SourceKind
	id     int
	sinceT float64
	limit  int
}

// fakeFetcher answers calls in order from pages and errs; once both are
// exhausted it returns empty pages.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	pages [][]dao.Inference
	errs  []error
	block bool
}

func (f *fakeFetcher) ListInferences(ctx context.Context, kind model.SourceKind, id int, sinceT float64, limit int) ([]dao.Inference, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{kind: kind, id: id, sinceT: sinceT, limit: limit})
	n := len(f.calls) - 1
	block := f.block
	var page []dao.Inference
	var err error
	if n < len(f.pages) {
		page = f.pages[n]
	}
	if n < len(f.errs) {
		err = f.errs[n]
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return events(99), nil
	}
	return page, err
}

func (f *fakeFetcher) Calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPoller_AdvancesCursor(t *testing.T) {
	fetcher := &fakeFetcher{pages: [][]dao.Inference{
		events(2, 1),
		{},
		events(4, 3),
	}}
	p := NewPoller(fetcher, model.SourceKindVideo, 3, WithInterval(5*time.Millisecond), WithLimit(50))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	waitFor(t, "four fetches", func() bool { return len(fetcher.Calls()) >= 4 })
	p.Stop()

	calls := fetcher.Calls()
	wantSince := []float64{0, 2, 2, 4}
	for i, want := range wantSince {
		if calls[i].sinceT != want {
			t.Errorf("call %d: expected since_t %v, got %v", i, want, calls[i].sinceT)
		}
		if calls[i].kind != model.SourceKindVideo || calls[i].id != 3 || calls[i].limit != 50 {
			t.Errorf("call %d: unexpected target %+v", i, calls[i])
		}
	}
	assertOrdered(t, p.Feed())
	if p.Feed().Len() != 4 {
		t.Errorf("expected 4 events, got %d", p.Feed().Len())
	}
	if p.State() != StateCancelled {
		t.Errorf("expected cancelled, got %s", p.State())
	}
}

func TestPoller_StallsAndRetries(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: [][]dao.Inference{events(1), nil, events(2)},
		errs:  []error{nil, errors.New("connection refused")},
	}
	p := NewPoller(fetcher, model.SourceKindCamera, 1, WithInterval(5*time.Millisecond))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	waitFor(t, "stall", func() bool { return p.State() == StateStalled })
	if p.Err() == nil {
		t.Fatal("expected error while stalled")
	}
	time.Sleep(20 * time.Millisecond)
	if n := len(fetcher.Calls()); n != 2 {
		t.Fatalf("stalled poller must not retry on its own, got %d calls", n)
	}

	if !p.Retry() {
		t.Fatal("expected retry to be accepted")
	}
	waitFor(t, "retried fetch", func() bool { return len(fetcher.Calls()) >= 3 })
	if since := fetcher.Calls()[2].sinceT; since != 1 {
		t.Errorf("retry must resume from cursor 1, got %v", since)
	}
	waitFor(t, "recovered feed", func() bool { return p.Feed().Len() == 2 })
	if p.Err() != nil {
		t.Errorf("error must clear after a successful fetch, got %v", p.Err())
	}
}

func TestPoller_RetryIgnoredUnlessStalled(t *testing.T) {
	p := NewPoller(&fakeFetcher{}, model.SourceKindVideo, 1)
	if p.Retry() {
		t.Error("idle poller must not accept retry")
	}
}

func TestPoller_StopDiscardsInFlightResult(t *testing.T) {
	fetcher := &fakeFetcher{block: true}
	p := NewPoller(fetcher, model.SourceKindVideo, 1)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "in-flight fetch", func() bool { return p.State() == StateFetching && len(fetcher.Calls()) == 1 })

	p.Stop()
	if p.Feed().Len() != 0 {
		t.Errorf("late result applied after stop: %d events", p.Feed().Len())
	}
	if p.State() != StateCancelled {
		t.Errorf("expected cancelled, got %s", p.State())
	}
}

func TestPoller_RestartUsesFreshFeed(t *testing.T) {
	fetcher := &fakeFetcher{pages: [][]dao.Inference{events(10)}}
	p := NewPoller(fetcher, model.SourceKindVideo, 1, WithInterval(time.Hour))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrPollerRunning) {
		t.Errorf("expected ErrPollerRunning, got %v", err)
	}
	waitFor(t, "first page", func() bool { return p.Feed().Len() == 1 })
	p.Stop()

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer p.Stop()
	waitFor(t, "second fetch", func() bool { return len(fetcher.Calls()) == 2 })
	if since := fetcher.Calls()[1].sinceT; since != 0 {
		t.Errorf("restarted poller must fetch from cursor 0, got %v", since)
	}
}

func TestPoller_OnUpdate(t *testing.T) {
	var mu sync.Mutex
	var lens []int
	fetcher := &fakeFetcher{pages: [][]dao.Inference{events(1), {}, events(2)}}
	p := NewPoller(fetcher, model.SourceKindVideo, 1,
		WithInterval(2*time.Millisecond),
		WithOnUpdate(func(f *Feed) {
			mu.Lock()
			lens = append(lens, f.Len())
			mu.Unlock()
		}))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "four fetches", func() bool { return len(fetcher.Calls()) >= 4 })
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(lens) != 2 || lens[0] != 1 || lens[1] != 2 {
		t.Errorf("expected updates for non-empty pages only, got %v", lens)
	}
}
