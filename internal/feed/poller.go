package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vigil/internal/dao"
	"vigil/internal/model"
	"vigil/pkg/log"
)

const (
	DefaultInterval = 500 * time.Millisecond
	DefaultLimit    = 1000
)

// Fetcher returns up to limit events of a source with t > sinceT.
type Fetcher interface {
	ListInferences(ctx context.Context, kind model.SourceKind, id int, sinceT float64, limit int) ([]dao.Inference, error)
}

type State int

const (
	StateIdle State = iota
	StateFetching
	StateScheduled
	StateStalled
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateScheduled:
		return "scheduled"
	case StateStalled:
		return "stalled"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

var ErrPollerRunning = errors.New("poller already running")

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLimit(limit int) PollerOption {
	return func(p *Poller) {
		if limit > 0 {
			p.limit = limit
		}
	}
}

// WithOnUpdate registers a callback invoked after a non-empty page was appended.
func WithOnUpdate(fn func(f *Feed)) PollerOption {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

// Poller keeps the feed of one source up to date. A fetch is followed by
// exactly one scheduled fetch, so requests never overlap.
type Poller struct {
	fetcher  Fetcher
	kind     model.SourceKind
	sourceId int
	interval time.Duration
	limit    int
	onUpdate func(f *Feed)
	logger   *logrus.Entry

	mu      sync.Mutex
	state   State
	err     error
	feed    *Feed
	cancel  context.CancelFunc
	retryCh chan struct{}
	wg      sync.WaitGroup
}

func NewPoller(fetcher Fetcher, kind model.SourceKind, sourceId int, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		kind:     kind,
		sourceId: sourceId,
		interval: DefaultInterval,
		limit:    DefaultLimit,
		feed:     NewFeed(),
		logger: log.Component(context.Background(), "poller").WithFields(logrus.Fields{
			"kind": kind,
			"id":   sourceId,
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling into a fresh feed, the first fetch is immediate.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrPollerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.feed = NewFeed()
	p.err = nil
	p.state = StateIdle
	p.retryCh = make(chan struct{}, 1)

	p.wg.Add(1)
	go p.run(ctx, p.feed, p.retryCh)
	return nil
}

// Stop cancels the pending timer and any in-flight request. Once Stop
// returns no further page is applied to the feed.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()

	p.mu.Lock()
	p.cancel = nil
	p.state = StateCancelled
	p.mu.Unlock()
	p.logger.Debug("poller stopped")
}

// Retry re-arms a stalled poller from its last successful cursor.
func (p *Poller) Retry() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateStalled {
		return false
	}
	select {
	case p.retryCh <- struct{}{}:
	default:
	}
	return true
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err is the error of the last failed fetch, nil unless stalled.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Poller) Feed() *Feed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feed
}

func (p *Poller) setState(ctx context.Context, state State, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	p.state = state
	p.err = err
	return true
}

func (p *Poller) run(ctx context.Context, feed *Feed, retryCh chan struct{}) {
	defer p.wg.Done()

	for {
		if !p.setState(ctx, StateFetching, nil) {
			return
		}
		cursor := feed.Cursor()
		page, err := p.fetcher.ListInferences(ctx, p.kind, p.sourceId, cursor, p.limit)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			p.logger.WithError(err).Errorf("fetch inferences since %v failed", cursor)
			if !p.setState(ctx, StateStalled, err) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-retryCh:
				p.logger.Infof("retry fetching since %v", cursor)
				continue
			}
		}

		if len(page) > 0 {
			feed.Append(page)
			p.logger.Debugf("appended %d inferences, cursor %v", len(page), feed.Cursor())
			if p.onUpdate != nil {
				p.onUpdate(feed)
			}
		}

		if !p.setState(ctx, StateScheduled, nil) {
			return
		}
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
