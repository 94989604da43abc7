package infer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vigil/internal/dao"
	"vigil/internal/model"
	"vigil/pkg/log"
)

const presignExpire = time.Hour

var ErrSourceNotFound = errors.New("source not found")

// FrameSource is an opened video stream, read frame by frame.
type FrameSource interface {
	// Grab advances to the next frame without decoding it.
	Grab() bool
	// Position is the stream position of the grabbed frame, in seconds.
	Position() float64
	// Retrieve decodes the grabbed frame.
	Retrieve() (*Frame, error)
	Close() error
}

type Opener func(url string) (FrameSource, error)

type Presigner interface {
	PresignedGet(ctx context.Context, bucket, key string, expire time.Duration) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, alert *dao.DetectionAlert) error
}

type StatusStore interface {
	GetTaskStatus(kind model.SourceKind, id int) (*dao.TaskStatus, error)
	SetTaskStatus(status *dao.TaskStatus) error
}

type RunnerConfig struct {
	Open      Opener
	Detector  Detector
	Presigner Presigner
	// Publisher and Status are optional.
	Publisher Publisher
	Status    StatusStore
	// AlertConfidence is the minimum hit confidence that is published.
	AlertConfidence float64
	LogEvery        int
	Now             func() time.Time
}

type taskKey struct {
	kind model.SourceKind
	id   int
}

type job struct {
	key    taskKey
	url    string
	tStart float64
	live   bool
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status dao.TaskStatus
}

func (t *task) update(fn func(s *dao.TaskStatus)) dao.TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.status)
	return t.status
}

// Runner runs at most one inference task per source.
type Runner struct {
	conf   RunnerConfig
	ctx    context.Context
	cancel context.CancelFunc
	logger *logrus.Entry

	opMu  sync.Mutex
	mu    sync.Mutex
	tasks map[taskKey]*task
	wg    sync.WaitGroup
}

func NewRunner(ctx context.Context, conf RunnerConfig) *Runner {
	if conf.Now == nil {
		conf.Now = time.Now
	}
	if conf.LogEvery <= 0 {
		conf.LogEvery = 100
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		conf:   conf,
		ctx:    ctx,
		cancel: cancel,
		logger: log.Component(ctx, "infer"),
		tasks:  make(map[taskKey]*task),
	}
}

func (r *Runner) prepare(kind model.SourceKind, id int) (*job, error) {
	switch kind {
	case model.SourceKindVideo:
		src, err := model.GetVideoSourceById(id)
		if err != nil {
			return nil, err
		} else if src == nil {
			return nil, ErrSourceNotFound
		}
		if !src.IsActive {
			return nil, nil
		}
		if src.File == nil {
			return nil, fmt.Errorf("video source %d has no file", id)
		}
		url, err := r.conf.Presigner.PresignedGet(r.ctx, src.File.S3Bucket, src.File.S3Key, presignExpire)
		if err != nil {
			return nil, err
		}
		return &job{key: taskKey{kind, id}, url: url, tStart: src.TStart}, nil
	case model.SourceKindCamera:
		src, err := model.GetCameraSourceById(id)
		if err != nil {
			return nil, err
		} else if src == nil {
			return nil, ErrSourceNotFound
		}
		if !src.IsActive {
			return nil, nil
		}
		return &job{key: taskKey{kind, id}, url: src.PullUrl(), live: true}, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", kind)
}

// Start (re)starts the task of a source. Inactive sources are only stopped.
func (r *Runner) Start(kind model.SourceKind, id int) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	j, err := r.prepare(kind, id)
	if err != nil {
		return err
	}
	r.stop(taskKey{kind, id})
	if j == nil {
		r.logger.Infof("%s %d is not active, inference not started", kind, id)
		return nil
	}

	ctx, cancel := context.WithCancel(r.ctx)
	t := &task{
		cancel: cancel,
		done:   make(chan struct{}),
		status: dao.TaskStatus{SourceKind: kind, SourceId: id, State: dao.TaskStateRunning},
	}
	r.mu.Lock()
	r.tasks[j.key] = t
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, t, j)
	}()
	return nil
}

func (r *Runner) Stop(kind model.SourceKind, id int) {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	r.stop(taskKey{kind, id})
}

func (r *Runner) stop(key taskKey) {
	r.mu.Lock()
	t := r.tasks[key]
	r.mu.Unlock()
	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}

func (r *Runner) Status(kind model.SourceKind, id int) (*dao.TaskStatus, error) {
	r.mu.Lock()
	t := r.tasks[taskKey{kind, id}]
	r.mu.Unlock()
	if t != nil {
		status := t.update(func(*dao.TaskStatus) {})
		return &status, nil
	}
	if r.conf.Status != nil {
		status, err := r.conf.Status.GetTaskStatus(kind, id)
		if err != nil || status != nil {
			return status, err
		}
	}
	return &dao.TaskStatus{SourceKind: kind, SourceId: id, State: dao.TaskStateIdle}, nil
}

// Close stops every task.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) saveStatus(status dao.TaskStatus) {
	if r.conf.Status == nil {
		return
	}
	if err := r.conf.Status.SetTaskStatus(&status); err != nil {
		r.logger.WithError(err).Errorf("save status of %s %d failed", status.SourceKind, status.SourceId)
	}
}

func (r *Runner) run(ctx context.Context, t *task, j *job) {
	defer close(t.done)
	logger := r.logger.WithFields(logrus.Fields{"kind": j.key.kind, "id": j.key.id})
	logger.Info("inference started")

	now := r.conf.Now()
	r.saveStatus(t.update(func(s *dao.TaskStatus) {
		s.State = dao.TaskStateRunning
		s.StartedAt = &now
	}))

	err := r.process(ctx, t, j, logger)

	finished := r.conf.Now()
	status := t.update(func(s *dao.TaskStatus) {
		s.FinishedAt = &finished
		switch {
		case ctx.Err() != nil:
			s.State = dao.TaskStateStopped
		case err != nil:
			s.State = dao.TaskStateFailed
			s.Error = err.Error()
		default:
			s.State = dao.TaskStateFinished
		}
	})
	r.saveStatus(status)
	if err != nil {
		logger.WithError(err).Error("inference failed")
	}
	logger.Infof("inference %s after %d frames, %d inferences", status.State, status.Frames, status.Inferences)
}

// behindRealtime reports whether decoding lags the stream, in which case
// frames are skipped until it catches up.
func behindRealtime(streamPos, elapsed float64) bool {
	return elapsed > 0 && streamPos/elapsed < 1
}

func (r *Runner) process(ctx context.Context, t *task, j *job, logger *logrus.Entry) error {
	if !j.live {
		if err := model.DestroyInferences(j.key.kind, j.key.id); err != nil {
			return fmt.Errorf("destroy previous inferences: %w", err)
		}
	}

	src, err := r.conf.Open(j.url)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer src.Close()

	rtStart := r.conf.Now()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if !src.Grab() {
			return nil
		}
		t.update(func(s *dao.TaskStatus) { s.Frames++ })

		pos := src.Position()
		if behindRealtime(pos, r.conf.Now().Sub(rtStart).Seconds()) {
			continue
		}

		frame, err := src.Retrieve()
		if err != nil {
			logger.WithError(err).Warn("retrieve frame failed")
			continue
		}
		detections, err := r.conf.Detector.Detect(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.WithError(err).Error("inference error")
			continue
		}

		ts := j.tStart + pos
		if j.live {
			ts = float64(r.conf.Now().UnixNano()) / 1e9
		}
		inf := &model.Inference{
			T:          ts,
			SourceKind: j.key.kind,
			SourceId:   j.key.id,
			Hits:       toHits(detections),
		}
		if err := model.CreateInference(inf); err != nil {
			return fmt.Errorf("store inference: %w", err)
		}
		r.publish(ctx, inf, logger)

		status := t.update(func(s *dao.TaskStatus) {
			s.Inferences++
			s.LastT = ts
		})
		if status.Inferences%r.conf.LogEvery == 0 {
			logger.Infof("processed %d frames", status.Inferences)
			r.saveStatus(status)
		}
	}
}

func toHits(detections []Detection) []model.InferenceHit {
	hits := make([]model.InferenceHit, 0, len(detections))
	for _, d := range detections {
		hits = append(hits, model.InferenceHit{X: d.X, Y: d.Y, W: d.W, H: d.H, C: d.Confidence})
	}
	return hits
}

func (r *Runner) publish(ctx context.Context, inf *model.Inference, logger *logrus.Entry) {
	if r.conf.Publisher == nil {
		return
	}
	alert := &dao.DetectionAlert{SourceKind: inf.SourceKind, SourceId: inf.SourceId, T: inf.T}
	for _, hit := range dao.FromInferenceModel(inf).Hits {
		if hit.Confidence >= r.conf.AlertConfidence {
			alert.Hits = append(alert.Hits, hit)
		}
	}
	if len(alert.Hits) == 0 {
		return
	}
	if err := r.conf.Publisher.Publish(ctx, alert); err != nil {
		logger.WithError(err).Warn("publish alert failed")
	}
}
