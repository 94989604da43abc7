package render

import (
	"errors"
	"image"

	"vigil/internal/dao"
)

const (
	DefaultFade        = 0.25
	DefaultBucketWidth = 1.0
)

var ErrNotReady = errors.New("playback not ready")

// Options are passed explicitly to every painter; changing them means
// building new painters.
type Options struct {
	// MinConfidence is the threshold a hit needs to be drawn.
	MinConfidence float64
	// Fade is how long, in seconds, a detection stays visible on the overlay.
	Fade float64
	// BucketWidth is the timeline bucket size in seconds.
	BucketWidth float64
}

func DefaultOptions() Options {
	return Options{
		MinConfidence: 0.5,
		Fade:          DefaultFade,
		BucketWidth:   DefaultBucketWidth,
	}
}

func (o Options) withDefaults() Options {
	if o.Fade <= 0 {
		o.Fade = DefaultFade
	}
	if o.BucketWidth <= 0 {
		o.BucketWidth = DefaultBucketWidth
	}
	return o
}

// Frame is everything a painter needs for one pass.
type Frame struct {
	// T is the absolute stream time being displayed.
	T float64
	// Start and End bound the absolute span of the playback.
	Start float64
	End   float64
	// Events is the feed snapshot, sorted by t.
	Events []dao.Inference
	VideoW int
	VideoH int
}

type Painter interface {
	// Ready reports ErrNotReady when the frame cannot be drawn yet.
	Ready(f Frame) error
	Paint(dst *image.RGBA, f Frame)
}

// Rect is a rectangle in surface pixels.
type Rect struct {
	X, Y, W, H float64
}

// Letterbox fits a video of size vw x vh into a surface of size w x h,
// keeping the aspect ratio and centering it.
func Letterbox(w, h float64, vw, vh int) Rect {
	scale := min(w/float64(vw), h/float64(vh))
	mx := (w - float64(vw)*scale) / 2
	my := (h - float64(vh)*scale) / 2
	return Rect{X: mx, Y: my, W: w - 2*mx, H: h - 2*my}
}

func hasQualifyingHit(e dao.Inference, minConfidence float64) bool {
	for _, hit := range e.Hits {
		if hit.Confidence >= minConfidence {
			return true
		}
	}
	return false
}
