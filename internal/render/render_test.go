package render

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"vigil/internal/dao"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func hitAt(id int, c float64) dao.Hit {
	return dao.Hit{Id: id, X: 0.5, Y: 0.5, W: 0.5, H: 0.5, Confidence: c}
}

func TestAnchor(t *testing.T) {
	now := time.Unix(1_000, 0)

	t.Run("known start", func(t *testing.T) {
		a := StartAt(100)
		if got := a.Absolute(now, 3, 10); !almostEqual(got, 103) {
			t.Errorf("expected 103, got %v", got)
		}
		start, end := a.Span(now, 10)
		if start != 100 || end != 110 {
			t.Errorf("expected span [100, 110], got [%v, %v]", start, end)
		}
	})

	t.Run("live", func(t *testing.T) {
		a := Live()
		start, end := a.Span(now, 60)
		if start != 940 || end != 1000 {
			t.Errorf("expected span [940, 1000], got [%v, %v]", start, end)
		}
		if got := a.Absolute(now, 60, 60); got != 1000 {
			t.Errorf("live edge must map to now, got %v", got)
		}
	})
}

func TestSelectOverlay(t *testing.T) {
	events := []dao.Inference{
		{Id: 1, T: 102.7, Hits: []dao.Hit{hitAt(1, 0.9)}},
		{Id: 2, T: 102.9, Hits: []dao.Hit{hitAt(2, 0.9), hitAt(3, 0.2)}},
		{Id: 3, T: 103, Hits: []dao.Hit{hitAt(4, 0.9)}},
	}
	opts := Options{MinConfidence: 0.5, Fade: 0.25}

	boxes := SelectOverlay(events, 103, opts)
	if len(boxes) != 1 {
		t.Fatalf("expected a single box, got %+v", boxes)
	}
	if boxes[0].Hit.Id != 2 {
		t.Errorf("expected hit 2, got %d", boxes[0].Hit.Id)
	}
	if !almostEqual(boxes[0].Alpha, 0.6) {
		t.Errorf("expected alpha 0.6, got %v", boxes[0].Alpha)
	}

	opts.MinConfidence = 0.1
	if boxes := SelectOverlay(events, 103, opts); len(boxes) != 2 {
		t.Errorf("lower threshold must include hit 3, got %+v", boxes)
	}
	if boxes := SelectOverlay(nil, 103, opts); len(boxes) != 0 {
		t.Errorf("empty feed must select nothing, got %+v", boxes)
	}
}

func TestLetterboxAndBoxRect(t *testing.T) {
	video := Letterbox(400, 100, 200, 100)
	if video != (Rect{X: 100, Y: 0, W: 200, H: 100}) {
		t.Fatalf("unexpected letterbox %+v", video)
	}
	r := BoxRect(dao.Hit{X: 0.5, Y: 0.5, W: 0.2, H: 0.4}, video)
	want := Rect{X: 180, Y: 30, W: 40, H: 40}
	if !almostEqual(r.X, want.X) || !almostEqual(r.Y, want.Y) || !almostEqual(r.W, want.W) || !almostEqual(r.H, want.H) {
		t.Errorf("expected %+v, got %+v", want, r)
	}
}

func TestClassifyBuckets(t *testing.T) {
	events := []dao.Inference{
		{T: 99.5, Hits: []dao.Hit{hitAt(1, 0.9)}},
		{T: 100.2},
		{T: 101.1, Hits: []dao.Hit{hitAt(2, 0.3)}},
		{T: 101.8, Hits: []dao.Hit{hitAt(3, 0.8)}},
		{T: 102.4, Hits: []dao.Hit{hitAt(4, 0.3)}},
		{T: 104.5, Hits: []dao.Hit{hitAt(5, 0.9)}},
	}
	got := ClassifyBuckets(events, 100, 104, 1, 0.5)
	want := []BucketClass{BucketDetection, BucketHit, BucketDetection, BucketEmpty}
	if len(got) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if got := ClassifyBuckets(events, 100, 104, 1, 0.95); got[1] != BucketDetection {
		t.Errorf("hits below threshold must count as plain detections, got %s", got[1])
	}
	if got := ClassifyBuckets(events, 100, 100, 1, 0.5); got != nil {
		t.Errorf("empty span must yield no buckets, got %v", got)
	}
}

func TestOverlayPaint(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 200, 100))
	f := Frame{
		T:      103,
		Events: []dao.Inference{{T: 102.9, Hits: []dao.Hit{hitAt(1, 0.9)}}},
		VideoW: 200,
		VideoH: 100,
	}
	o := NewOverlay(Options{MinConfidence: 0.5})
	if err := o.Ready(f); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	o.Paint(dst, f)

	edge := dst.RGBAAt(100, 25)
	if edge.A != 153 || edge.R != 153 || edge.G != 0 {
		t.Errorf("expected translucent red edge, got %+v", edge)
	}
	if inside := dst.RGBAAt(100, 50); inside.A != 0 {
		t.Errorf("box interior must stay transparent, got %+v", inside)
	}

	if err := o.Ready(Frame{}); err != ErrNotReady {
		t.Errorf("expected ErrNotReady without video size, got %v", err)
	}
}

func TestTimelinePaint(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 144, 10))
	f := Frame{
		T:     9,
		Start: 0,
		End:   10,
		Events: []dao.Inference{
			{T: 2.5, Hits: []dao.Hit{hitAt(1, 0.9)}},
			{T: 5.5, Hits: []dao.Hit{hitAt(2, 0.1)}},
		},
	}
	NewTimeline(Options{MinConfidence: 0.5}).Paint(dst, f)

	dim := color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	cases := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"hit bucket", 45, 5, color.RGBA{R: 0xff, A: 0xff}},
		{"detection bucket", 75, 5, dim},
		{"empty bucket baseline", 35, 5, dim},
		{"empty bucket above baseline", 35, 2, color.RGBA{}},
		{"playhead", 104, 5, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dst.RGBAAt(tc.x, tc.y); got != tc.want {
				t.Errorf("pixel (%d,%d): expected %+v, got %+v", tc.x, tc.y, tc.want, got)
			}
		})
	}
}

func TestPlayer(t *testing.T) {
	now := time.Unix(0, 0)
	p := NewPlayer(10, 640, 360)
	p.now = func() time.Time { return now }

	if p.CurrentTime() != 0 {
		t.Fatalf("new player must start at 0")
	}
	p.Play()
	now = now.Add(3 * time.Second)
	if got := p.CurrentTime(); !almostEqual(got, 3) {
		t.Errorf("expected 3, got %v", got)
	}
	p.Pause()
	now = now.Add(time.Second)
	if got := p.CurrentTime(); !almostEqual(got, 3) {
		t.Errorf("paused player must not advance, got %v", got)
	}
	p.Seek(20)
	if !p.Ended() {
		t.Error("seek past the end must clamp to the end")
	}
	p.Seek(-1)
	if p.CurrentTime() != 0 {
		t.Errorf("seek before start must clamp to 0, got %v", p.CurrentTime())
	}
}
