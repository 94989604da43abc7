package infer

import (
	"context"
	"sync"
	"testing"
	"time"

	"vigil/internal/config"
	"vigil/internal/dao"
	"vigil/internal/infer/metadata"
	"vigil/internal/model"
	"vigil/pkg/log"
)

type fakeSource struct {
	positions []float64
	i         int
	block     chan struct{}
	closed    bool
}

func (s *fakeSource) Grab() bool {
	if s.i >= len(s.positions) {
		if s.block != nil {
			<-s.block
		}
		return false
	}
	s.i++
	return true
}

func (s *fakeSource) Position() float64 { return s.positions[s.i-1] }

func (s *fakeSource) Retrieve() (*Frame, error) {
	return &Frame{Data: make([]byte, 12), Rows: 2, Cols: 2}, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// fakeDetector reports one confident hit on every second frame.
type fakeDetector struct {
	mu    sync.Mutex
	calls int
}

func (d *fakeDetector) Detect(ctx context.Context, frame *Frame) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls%2 == 0 {
		return []Detection{{X: 0.5, Y: 0.5, W: 0.2, H: 0.2, Confidence: 0.9}, {X: 0.1, Y: 0.1, W: 0.1, H: 0.1, Confidence: 0.2}}, nil
	}
	return nil, nil
}

type fakePresigner struct{ keys []string }

func (p *fakePresigner) PresignedGet(ctx context.Context, bucket, key string, expire time.Duration) (string, error) {
	p.keys = append(p.keys, bucket+"/"+key)
	return "http://minio/" + bucket + "/" + key, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	alerts []*dao.DetectionAlert
}

func (p *fakePublisher) Publish(ctx context.Context, alert *dao.DetectionAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return nil
}

func setupDB(t *testing.T) {
	t.Helper()
	db, err := model.InitDB(config.DBConfig{DSN: "sqlite://:memory:", MaxIdleConns: 1, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
}

func createVideo(t *testing.T, active bool) *model.VideoSource {
	t.Helper()
	file := &model.File{Name: "a.mp4", S3Bucket: "vigil", S3Key: "k1"}
	if err := model.CreateFile(file); err != nil {
		t.Fatal(err)
	}
	src := &model.VideoSource{Name: "a", IsActive: active, TStart: 100, FileId: file.Id}
	if err := model.CreateVideoSource(src); err != nil {
		t.Fatal(err)
	}
	return src
}

type harness struct {
	runner    *Runner
	source    *fakeSource
	opened    []string
	publisher *fakePublisher
	presigner *fakePresigner
	statuses  *metadata.MetadataDB
}

func newHarness(t *testing.T, source *fakeSource) *harness {
	t.Helper()
	statuses, err := metadata.NewInMemoryMetadataDB(log.NewLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { statuses.Close() })

	h := &harness{source: source, publisher: &fakePublisher{}, presigner: &fakePresigner{}, statuses: statuses}
	now := time.Unix(1700000000, 0)
	h.runner = NewRunner(context.Background(), RunnerConfig{
		Open: func(url string) (FrameSource, error) {
			h.opened = append(h.opened, url)
			return h.source, nil
		},
		Detector:        &fakeDetector{},
		Presigner:       h.presigner,
		Publisher:       h.publisher,
		Status:          statuses,
		AlertConfidence: 0.5,
		LogEvery:        2,
		Now:             func() time.Time { return now },
	})
	t.Cleanup(h.runner.Close)
	return h
}

func waitState(t *testing.T, r *Runner, kind model.SourceKind, id int, state dao.TaskState) *dao.TaskStatus {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, err := r.Status(kind, id)
		if err != nil {
			t.Fatal(err)
		}
		if status.State == state {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task never reached %s", state)
	return nil
}

func TestRunnerVideo(t *testing.T) {
	setupDB(t)
	src := createVideo(t, true)
	old := &model.Inference{T: 5, SourceKind: model.SourceKindVideo, SourceId: src.Id}
	if err := model.CreateInference(old); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, &fakeSource{positions: []float64{0.5, 1, 1.5, 2}})
	if err := h.runner.Start(model.SourceKindVideo, src.Id); err != nil {
		t.Fatalf("start: %v", err)
	}
	status := waitState(t, h.runner, model.SourceKindVideo, src.Id, dao.TaskStateFinished)
	h.runner.Stop(model.SourceKindVideo, src.Id)
	if status.Frames != 4 || status.Inferences != 4 || status.LastT != 102 {
		t.Errorf("status = %+v", status)
	}
	if len(h.opened) != 1 || h.opened[0] != "http://minio/vigil/k1" {
		t.Errorf("opened %v", h.opened)
	}
	if !h.source.closed {
		t.Error("source not closed")
	}

	infs, err := model.GetInferences(model.SourceKindVideo, src.Id, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{100.5, 101, 101.5, 102}
	if len(infs) != len(want) {
		t.Fatalf("got %d inferences", len(infs))
	}
	for i, inf := range infs {
		if inf.T != want[i] {
			t.Errorf("inference %d at %v, want %v", i, inf.T, want[i])
		}
	}
	if len(infs[1].Hits) != 2 || len(infs[0].Hits) != 0 {
		t.Errorf("hits %d %d", len(infs[0].Hits), len(infs[1].Hits))
	}

	if len(h.publisher.alerts) != 2 {
		t.Fatalf("published %d alerts", len(h.publisher.alerts))
	}
	alert := h.publisher.alerts[0]
	if alert.T != 101 || len(alert.Hits) != 1 || alert.Hits[0].Confidence != 0.9 {
		t.Errorf("alert = %+v", alert)
	}

	saved, err := h.statuses.GetTaskStatus(model.SourceKindVideo, src.Id)
	if err != nil || saved == nil {
		t.Fatalf("saved status %v %v", saved, err)
	}
	if saved.State != dao.TaskStateFinished {
		t.Errorf("saved state %s", saved.State)
	}
}

func TestRunnerInactive(t *testing.T) {
	setupDB(t)
	src := createVideo(t, false)
	h := newHarness(t, &fakeSource{})
	if err := h.runner.Start(model.SourceKindVideo, src.Id); err != nil {
		t.Fatal(err)
	}
	status, err := h.runner.Status(model.SourceKindVideo, src.Id)
	if err != nil {
		t.Fatal(err)
	}
	if status.State != dao.TaskStateIdle || len(h.opened) != 0 {
		t.Errorf("status %s, opened %v", status.State, h.opened)
	}
}

func TestRunnerNotFound(t *testing.T) {
	setupDB(t)
	h := newHarness(t, &fakeSource{})
	if err := h.runner.Start(model.SourceKindCamera, 42); err != ErrSourceNotFound {
		t.Errorf("err = %v", err)
	}
}

func TestRunnerStopCamera(t *testing.T) {
	setupDB(t)
	cam := &model.CameraSource{Name: "c", IsActive: true, Url: "rtsp://cam/1"}
	if err := model.CreateCameraSource(cam); err != nil {
		t.Fatal(err)
	}
	camInf := &model.Inference{T: 1, SourceKind: model.SourceKindCamera, SourceId: cam.Id}
	if err := model.CreateInference(camInf); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, &fakeSource{positions: []float64{0}, block: make(chan struct{})})
	if err := h.runner.Start(model.SourceKindCamera, cam.Id); err != nil {
		t.Fatal(err)
	}
	waitState(t, h.runner, model.SourceKindCamera, cam.Id, dao.TaskStateRunning)

	// unblock the pending Grab once the task is cancelled
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(h.source.block)
	}()
	h.runner.Stop(model.SourceKindCamera, cam.Id)

	status, err := h.runner.Status(model.SourceKindCamera, cam.Id)
	if err != nil {
		t.Fatal(err)
	}
	if status.State != dao.TaskStateStopped {
		t.Errorf("state = %s", status.State)
	}
	infs, err := model.GetInferences(model.SourceKindCamera, cam.Id, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	// camera history is kept and the new frame is stamped with wall clock time
	if len(infs) != 2 || infs[1].T != 1700000000 {
		t.Errorf("inferences = %+v", infs)
	}
}

func TestBehindRealtime(t *testing.T) {
	cases := []struct {
		pos, elapsed float64
		want         bool
	}{
		{0, 0, false},
		{1, 2, true},
		{2, 2, false},
		{3, 2, false},
	}
	for _, c := range cases {
		if got := behindRealtime(c.pos, c.elapsed); got != c.want {
			t.Errorf("behindRealtime(%v, %v) = %v", c.pos, c.elapsed, got)
		}
	}
}
