package render

import (
	"image"
	"sort"

	"vigil/internal/dao"
)

const overlayLineWidth = 2

// OverlayBox is a hit selected for drawing at a given time.
type OverlayBox struct {
	Hit   dao.Hit
	T     float64
	Alpha float64
}

// SelectOverlay returns the qualifying hits of events with t-fade <= e.t < t,
// in feed order. Alpha decays linearly from 1 at t to 0 at t-fade.
func SelectOverlay(events []dao.Inference, t float64, opts Options) []OverlayBox {
	opts = opts.withDefaults()
	left := sort.Search(len(events), func(i int) bool { return events[i].T >= t-opts.Fade })

	var boxes []OverlayBox
	for right := left; right < len(events) && events[right].T < t; right++ {
		e := events[right]
		alpha := 1 - (t-e.T)/opts.Fade
		for _, hit := range e.Hits {
			if hit.Confidence < opts.MinConfidence {
				continue
			}
			boxes = append(boxes, OverlayBox{Hit: hit, T: e.T, Alpha: alpha})
		}
	}
	return boxes
}

// BoxRect maps a center anchored normalized hit into the video box.
func BoxRect(hit dao.Hit, video Rect) Rect {
	return Rect{
		X: video.X + (hit.X-hit.W/2)*video.W,
		Y: video.Y + (hit.Y-hit.H/2)*video.H,
		W: hit.W * video.W,
		H: hit.H * video.H,
	}
}

// Overlay draws fading bounding boxes over the video.
type Overlay struct {
	opts Options
}

func NewOverlay(opts Options) *Overlay {
	return &Overlay{opts: opts.withDefaults()}
}

func (o *Overlay) Ready(f Frame) error {
	if f.VideoW <= 0 || f.VideoH <= 0 {
		return ErrNotReady
	}
	return nil
}

func (o *Overlay) Paint(dst *image.RGBA, f Frame) {
	size := dst.Bounds().Size()
	video := Letterbox(float64(size.X), float64(size.Y), f.VideoW, f.VideoH)
	for _, box := range SelectOverlay(f.Events, f.T, o.opts) {
		r := BoxRect(box.Hit, video)
		strokeRect(dst, r.X, r.Y, r.W, r.H, overlayLineWidth, red(box.Alpha))
	}
}
