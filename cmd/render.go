package cmd

import (
	"context"
	"image"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vigil/internal/client"
	"vigil/internal/feed"
	"vigil/internal/frames"
	"vigil/internal/render"
)

var (
	renderAt       float64
	renderOut      string
	renderSnapshot bool
	renderMinConf  float64
)

var renderCmd = &cobra.Command{
	Use:   "render <uid>",
	Short: "Render the overlay and timeline of a source at one position",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := clientConfig()
		cli := newClient(conf)
		ctx := context.Background()

		row := mustRow(ctx, cli, args[0])
		opts := viewerOptions(conf)
		if cmd.Flags().Changed("min-confidence") {
			opts.MinConfidence = renderMinConf
		}

		events, err := loadFeed(ctx, cli, row, conf.Viewer.FetchLimit)
		if err != nil {
			logrus.Fatalf("load detections of %s error, %s", row.UID, err.Error())
		}
		logrus.Infof("%s: loaded %d events", row.UID, events.Len())

		playback := playbackFor(cli, row, conf)
		if player, ok := playback.(*render.Player); ok {
			player.Seek(renderAt)
		}

		w, h := conf.Viewer.Width, conf.Viewer.Height
		var background image.Image
		if renderSnapshot && row.Video != nil {
			background, err = frames.Snapshot(cli.StreamURL(*row), renderAt)
			if err != nil {
				logrus.Fatalf("snapshot of %s error, %s", row.UID, err.Error())
			}
			w, h = background.Bounds().Dx(), background.Bounds().Dy()
		}

		if err := os.MkdirAll(renderOut, 0o755); err != nil {
			logrus.Fatal(err)
		}
		overlayPath := filepath.Join(renderOut, "overlay.png")
		overlay := render.NewTask(render.TaskConfig{
			Name:     "overlay",
			Painter:  render.NewOverlay(opts),
			Surface:  surface(w, h),
			Playback: playback,
			Anchor:   anchorFor(row),
			Source:   events,
			Sink: func(img *image.RGBA) {
				if err := writePNG(overlayPath, compose(background, img)); err != nil {
					logrus.Fatalf("write %s error, %s", overlayPath, err.Error())
				}
			},
		})
		timeline := render.NewTask(render.TaskConfig{
			Name:     "timeline",
			Painter:  render.NewTimeline(opts),
			Surface:  surface(w, conf.Viewer.TimelineHeight),
			Playback: playback,
			Anchor:   anchorFor(row),
			Source:   events,
			Sink:     pngSink(filepath.Join(renderOut, "timeline.png")),
		})
		if !overlay.RenderOnce() || !timeline.RenderOnce() {
			logrus.Fatalf("%s could not be rendered", row.UID)
		}
		logrus.Infof("rendered %s at %.3fs into %s", row.UID, renderAt, renderOut)
	},
}

// loadFeed pages through every stored detection of a source.
func loadFeed(ctx context.Context, cli *client.Client, row *client.SourceRow, limit int) (*feed.Feed, error) {
	if limit <= 0 {
		limit = client.DefaultFetchLimit
	}
	f := feed.NewFeed()
	for {
		page, err := cli.ListInferences(ctx, row.Kind, row.ID(), f.Cursor(), limit)
		if err != nil {
			return nil, err
		}
		f.Append(page)
		if len(page) < limit {
			return f, nil
		}
	}
}

func compose(background image.Image, overlay *image.RGBA) image.Image {
	if background == nil {
		return overlay
	}
	b := overlay.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, background, background.Bounds().Min, draw.Src)
	draw.Draw(dst, b, overlay, b.Min, draw.Over)
	return dst
}

func init() {
	renderCmd.Flags().Float64Var(&renderAt, "at", 0, "Playback position in seconds")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", ".", "Output directory")
	renderCmd.Flags().BoolVar(&renderSnapshot, "snapshot", false, "Draw the overlay over the decoded video frame")
	renderCmd.Flags().Float64Var(&renderMinConf, "min-confidence", 0.5, "Minimum hit confidence")
}
