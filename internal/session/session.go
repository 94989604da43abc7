package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vigil/internal/client"
	"vigil/internal/feed"
	"vigil/internal/render"
	"vigil/pkg/log"
)

type Config struct {
	Fetcher         feed.Fetcher
	PollInterval    time.Duration
	FetchLimit      int
	Options         render.Options
	FPS             int
	OverlaySurface  render.Surface
	OverlaySink     render.Sink
	TimelineSurface render.Surface
	TimelineSink    render.Sink
	// OnUpdate is called after each non-empty page was appended.
	OnUpdate func(f *feed.Feed)
	// Clock overrides the frame clock of both render tasks.
	Clock func() render.FrameClock
	Now   func() time.Time
}

// Session displays one source at a time: its poller feeds the overlay and
// timeline render tasks.
type Session struct {
	conf   Config
	ctx    context.Context
	cancel context.CancelFunc
	logger *logrus.Entry

	mu       sync.Mutex
	row      *client.SourceRow
	playback render.Playback
	poller   *feed.Poller
	overlay  *render.Task
	timeline *render.Task
}

func New(ctx context.Context, conf Config) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		conf:   conf,
		ctx:    ctx,
		cancel: cancel,
		logger: log.Component(ctx, "session"),
	}
}

// Open switches the session to row. The previous source is fully disarmed
// before the new one starts from an empty feed.
func (s *Session) Open(row client.SourceRow, playback render.Playback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()
	s.row = &row
	s.playback = playback

	opts := []feed.PollerOption{feed.WithInterval(s.conf.PollInterval), feed.WithLimit(s.conf.FetchLimit)}
	if s.conf.OnUpdate != nil {
		opts = append(opts, feed.WithOnUpdate(s.conf.OnUpdate))
	}
	s.poller = feed.NewPoller(s.conf.Fetcher, row.Kind, row.ID(), opts...)
	if err := s.poller.Start(s.ctx); err != nil {
		s.poller = nil
		return err
	}
	if err := s.startTasksLocked(); err != nil {
		s.disarmLocked()
		return err
	}
	s.logger.Infof("opened source %s", row.UID)
	return nil
}

// SetMinConfidence restarts the render tasks with a new threshold, the feed is kept.
func (s *Session) SetMinConfidence(c float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conf.Options.MinConfidence = c
	if s.poller == nil {
		return nil
	}
	s.stopTasksLocked()
	return s.startTasksLocked()
}

func (s *Session) Options() render.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conf.Options
}

// Close disarms the current source; no callback fires once it returns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked()
	s.cancel()
}

func (s *Session) Row() *client.SourceRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.row
}

func (s *Session) Feed() *feed.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poller == nil {
		return nil
	}
	return s.poller.Feed()
}

func (s *Session) Poller() *feed.Poller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poller
}

func (s *Session) anchor() render.Anchor {
	if start, ok := s.row.KnownStart(); ok {
		return render.StartAt(start)
	}
	return render.Live()
}

func (s *Session) startTasksLocked() error {
	anchor := s.anchor()
	source := s.poller.Feed()
	s.overlay = render.NewTask(render.TaskConfig{
		Name:     "overlay",
		Painter:  render.NewOverlay(s.conf.Options),
		Surface:  s.conf.OverlaySurface,
		Playback: s.playback,
		Anchor:   anchor,
		Source:   source,
		Sink:     s.conf.OverlaySink,
		FPS:      s.conf.FPS,
		Clock:    s.conf.Clock,
		Now:      s.conf.Now,
	})
	s.timeline = render.NewTask(render.TaskConfig{
		Name:     "timeline",
		Painter:  render.NewTimeline(s.conf.Options),
		Surface:  s.conf.TimelineSurface,
		Playback: s.playback,
		Anchor:   anchor,
		Source:   source,
		Sink:     s.conf.TimelineSink,
		FPS:      s.conf.FPS,
		Clock:    s.conf.Clock,
		Now:      s.conf.Now,
	})
	if err := s.overlay.Start(s.ctx); err != nil {
		return err
	}
	return s.timeline.Start(s.ctx)
}

func (s *Session) stopTasksLocked() {
	if s.overlay != nil {
		s.overlay.Stop()
		s.overlay = nil
	}
	if s.timeline != nil {
		s.timeline.Stop()
		s.timeline = nil
	}
}

func (s *Session) disarmLocked() {
	if s.poller != nil {
		s.poller.Stop()
		s.poller = nil
	}
	s.stopTasksLocked()
}
