package render

import (
	"image"
	"math"

	"vigil/internal/dao"
)

const (
	timelineMargin      = 22
	playheadLineWidth   = 2
	playheadWidthFactor = 15
)

type BucketClass int

const (
	BucketEmpty BucketClass = iota
	BucketDetection
	BucketHit
)

func (c BucketClass) String() string {
	switch c {
	case BucketHit:
		return "hit"
	case BucketDetection:
		return "detection"
	}
	return "empty"
}

// ClassifyBuckets splits [start, end) into dt wide buckets and classifies each
// with a single pass over the sorted events. Events outside the span are ignored.
func ClassifyBuckets(events []dao.Inference, start, end, dt, minConfidence float64) []BucketClass {
	if dt <= 0 || end <= start {
		return nil
	}
	n := int(math.Ceil((end - start) / dt))
	classes := make([]BucketClass, n)

	i := 0
	for i < len(events) && events[i].T < start {
		i++
	}
	for b := 0; b < n; b++ {
		bucketEnd := start + float64(b+1)*dt
		for i < len(events) && events[i].T < bucketEnd && events[i].T < end {
			if hasQualifyingHit(events[i], minConfidence) {
				classes[b] = BucketHit
			} else if classes[b] == BucketEmpty {
				classes[b] = BucketDetection
			}
			i++
		}
	}
	return classes
}

// Timeline draws the detection density of the whole span with a playhead.
type Timeline struct {
	opts Options
}

func NewTimeline(opts Options) *Timeline {
	return &Timeline{opts: opts.withDefaults()}
}

func (tl *Timeline) Ready(f Frame) error {
	if f.End <= f.Start {
		return ErrNotReady
	}
	return nil
}

func (tl *Timeline) Paint(dst *image.RGBA, f Frame) {
	size := dst.Bounds().Size()
	width, height := float64(size.X), float64(size.Y)
	dt := tl.opts.BucketWidth
	dx := (width - 2*timelineMargin) / (f.End - f.Start)

	for b, class := range ClassifyBuckets(f.Events, f.Start, f.End, dt, tl.opts.MinConfidence) {
		x := timelineMargin + float64(b)*dt*dx
		w := dt * dx
		switch class {
		case BucketHit:
			fillRect(dst, x, 1, w, height-2, red(1))
		case BucketDetection:
			fillRect(dst, x, 1, w, height-2, colorDim)
		default:
			hline(dst, x, height/2, w, 1, colorDim)
		}
	}

	dw := playheadWidthFactor * dt
	x := timelineMargin + (f.T-f.Start)*dx
	strokeRect(dst, x-dw/2, 0, dw, height, playheadLineWidth, colorWhite)
}
