package render

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vigil/internal/dao"
	"vigil/pkg/log"
)

const DefaultFPS = 30

var ErrTaskRunning = errors.New("render task already running")

// FrameClock paces render passes.
type FrameClock interface {
	C() <-chan time.Time
	Stop()
}

type tickerClock struct {
	ticker *time.Ticker
}

func NewFrameClock(fps int) FrameClock {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &tickerClock{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

func (c *tickerClock) C() <-chan time.Time {
	return c.ticker.C
}

func (c *tickerClock) Stop() {
	c.ticker.Stop()
}

// Surface is the area a task draws on; its bounds may change between passes.
type Surface interface {
	Bounds() image.Rectangle
}

// FixedSurface is a surface of constant size.
type FixedSurface image.Rectangle

func (s FixedSurface) Bounds() image.Rectangle {
	return image.Rectangle(s)
}

// Source provides the latest feed snapshot.
type Source interface {
	Snapshot() []dao.Inference
}

// Sink receives every painted raster. The raster is reused by the next
// pass, a sink that keeps it must copy it.
type Sink func(img *image.RGBA)

type TaskConfig struct {
	Name     string
	Painter  Painter
	Surface  Surface
	Playback Playback
	Anchor   Anchor
	Source   Source
	Sink     Sink
	FPS      int
	// Clock builds the frame clock on every Start; defaults to a ticker at FPS.
	Clock func() FrameClock
	Now   func() time.Time
}

// Task repaints one surface on every frame tick until stopped.
type Task struct {
	conf   TaskConfig
	logger *logrus.Entry

	mu     sync.Mutex
	raster *image.RGBA
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTask(conf TaskConfig) *Task {
	if conf.Clock == nil {
		fps := conf.FPS
		conf.Clock = func() FrameClock { return NewFrameClock(fps) }
	}
	if conf.Now == nil {
		conf.Now = time.Now
	}
	if conf.Name == "" {
		conf.Name = "render"
	}
	return &Task{
		conf:   conf,
		logger: log.Component(context.Background(), conf.Name),
	}
}

func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return ErrTaskRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	clock := t.conf.Clock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer clock.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-clock.C():
			}
			if ctx.Err() != nil {
				return
			}
			t.RenderOnce()
		}
	}()
	return nil
}

// Stop waits for the running pass to finish; no sink call happens after it returns.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	t.wg.Wait()
}

func (t *Task) frame() (Frame, error) {
	pb := t.conf.Playback
	if pb == nil {
		return Frame{}, ErrNotReady
	}
	duration := pb.Duration()
	if !validDuration(duration) {
		return Frame{}, ErrNotReady
	}
	now := t.conf.Now()
	start, end := t.conf.Anchor.Span(now, duration)
	vw, vh := pb.VideoSize()
	f := Frame{
		T:      t.conf.Anchor.Absolute(now, pb.CurrentTime(), duration),
		Start:  start,
		End:    end,
		VideoW: vw,
		VideoH: vh,
	}
	if t.conf.Source != nil {
		f.Events = t.conf.Source.Snapshot()
	}
	return f, t.conf.Painter.Ready(f)
}

// RenderOnce runs a single pass and reports whether the sink received a raster.
func (t *Task) RenderOnce() bool {
	if t.conf.Surface == nil {
		t.logger.Debug("no surface, skip pass")
		return false
	}
	size := t.conf.Surface.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		t.logger.Debug("empty surface, skip pass")
		return false
	}

	f, err := t.frame()
	if err != nil {
		t.logger.WithError(err).Debug("skip pass")
		return false
	}

	t.mu.Lock()
	if t.raster == nil || t.raster.Bounds().Size() != size {
		t.raster = image.NewRGBA(image.Rectangle{Max: size})
	}
	raster := t.raster
	t.mu.Unlock()

	clearRaster(raster)
	t.conf.Painter.Paint(raster, f)
	if t.conf.Sink != nil {
		t.conf.Sink(raster)
	}
	return true
}
