// Package frames reads decoded video frames with OpenCV.
package frames

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"vigil/internal/infer"
)

var ErrEmptyFrame = errors.New("frame is empty")

// Capture reads a file, an http url or a live stream frame by frame.
type Capture struct {
	video *gocv.VideoCapture
	mat   gocv.Mat
}

var _ infer.FrameSource = (*Capture)(nil)

func OpenCapture(url string) (*Capture, error) {
	video, err := gocv.VideoCaptureFile(url)
	if err != nil {
		return nil, fmt.Errorf("open video capture: %w", err)
	}
	if !video.IsOpened() {
		video.Close()
		return nil, fmt.Errorf("video capture %s is not opened", url)
	}
	return &Capture{video: video, mat: gocv.NewMat()}, nil
}

// Open is an infer.Opener backed by OpenCapture.
func Open(url string) (infer.FrameSource, error) {
	return OpenCapture(url)
}

func (c *Capture) Grab() bool {
	return c.video.Read(&c.mat)
}

func (c *Capture) Position() float64 {
	return c.video.Get(gocv.VideoCapturePosMsec) / 1000
}

func (c *Capture) Retrieve() (*infer.Frame, error) {
	if c.mat.Empty() {
		return nil, ErrEmptyFrame
	}
	return &infer.Frame{Data: c.mat.ToBytes(), Rows: c.mat.Rows(), Cols: c.mat.Cols()}, nil
}

func (c *Capture) Close() error {
	c.mat.Close()
	return c.video.Close()
}

type Info struct {
	Width    int
	Height   int
	FPS      float64
	Duration float64
}

// Probe reports the size and length of a video. Duration is zero for live streams.
func Probe(url string) (*Info, error) {
	c, err := OpenCapture(url)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	info := &Info{
		Width:  int(c.video.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(c.video.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    c.video.Get(gocv.VideoCaptureFPS),
	}
	if count := c.video.Get(gocv.VideoCaptureFrameCount); count > 0 && info.FPS > 0 {
		info.Duration = count / info.FPS
	}
	return info, nil
}

// Snapshot decodes the frame at pos seconds.
func Snapshot(url string, pos float64) (image.Image, error) {
	c, err := OpenCapture(url)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if pos > 0 {
		c.video.Set(gocv.VideoCapturePosMsec, pos*1000)
	}
	if !c.Grab() || c.mat.Empty() {
		return nil, ErrEmptyFrame
	}
	return c.mat.ToImage()
}
