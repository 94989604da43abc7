package cmd

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"vigil/internal/client"
	"vigil/internal/config"
	"vigil/internal/frames"
	"vigil/internal/render"
)

func viewerOptions(conf *config.Config) render.Options {
	return render.Options{
		MinConfidence: conf.Viewer.MinConfidence,
		Fade:          conf.Viewer.Fade,
		BucketWidth:   conf.Viewer.BucketWidth,
	}
}

// playbackFor probes recorded videos; cameras play a fixed window ending now.
func playbackFor(cli *client.Client, row *client.SourceRow, conf *config.Config) render.Playback {
	if row.Video == nil {
		return render.NewLivePlayer(float64(conf.Viewer.LiveWindow), conf.Viewer.Width, conf.Viewer.Height)
	}
	info, err := frames.Probe(cli.StreamURL(*row))
	if err != nil {
		logrus.Fatalf("probe %s error, %s", row.UID, err.Error())
	}
	if info.Duration <= 0 {
		logrus.Fatalf("%s has no known duration", row.UID)
	}
	return render.NewPlayer(info.Duration, info.Width, info.Height)
}

func anchorFor(row *client.SourceRow) render.Anchor {
	if start, ok := row.KnownStart(); ok {
		return render.StartAt(start)
	}
	return render.Live()
}

func surface(w, h int) render.FixedSurface {
	return render.FixedSurface(image.Rect(0, 0, w, h))
}

// writePNG replaces path atomically so readers never see a partial image.
func writePNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vigil-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func pngSink(path string) render.Sink {
	return func(img *image.RGBA) {
		if err := writePNG(path, img); err != nil {
			logrus.WithError(err).Errorf("write %s failed", path)
		}
	}
}
