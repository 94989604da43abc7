package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vigil/internal/feed"
	"vigil/internal/render"
	"vigil/internal/session"
)

var (
	watchOut        string
	watchFPS        int
	watchMinConf    float64
	watchRetryAfter time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <uid>",
	Short: "Follow the detections of a source while it plays",
	Long: `Poll the detections of a source and replay it against the wall clock.
With --out the overlay and timeline are repainted into overlay.png and timeline.png.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := clientConfig()
		cli := newClient(conf)
		ctx, stop := signalContext()
		defer stop()

		row := mustRow(ctx, cli, args[0])
		opts := viewerOptions(conf)
		if cmd.Flags().Changed("min-confidence") {
			opts.MinConfidence = watchMinConf
		}

		sessConf := session.Config{
			Fetcher:      cli,
			PollInterval: conf.Viewer.PollInterval(),
			FetchLimit:   conf.Viewer.FetchLimit,
			Options:      opts,
			FPS:          watchFPS,
			OnUpdate: func(f *feed.Feed) {
				logrus.Infof("%s: %d events, cursor %.3f", row.UID, f.Len(), f.Cursor())
			},
		}
		if watchOut != "" {
			if err := os.MkdirAll(watchOut, 0o755); err != nil {
				logrus.Fatal(err)
			}
			sessConf.OverlaySurface = surface(conf.Viewer.Width, conf.Viewer.Height)
			sessConf.OverlaySink = pngSink(filepath.Join(watchOut, "overlay.png"))
			sessConf.TimelineSurface = surface(conf.Viewer.Width, conf.Viewer.TimelineHeight)
			sessConf.TimelineSink = pngSink(filepath.Join(watchOut, "timeline.png"))
		}

		playback := playbackFor(cli, row, conf)
		if player, ok := playback.(*render.Player); ok {
			player.Play()
		}

		sess := session.New(ctx, sessConf)
		defer sess.Close()
		if err := sess.Open(*row, playback); err != nil {
			logrus.Fatalf("open %s error, %s", row.UID, err.Error())
		}

		ticker := time.NewTicker(watchRetryAfter)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			poller := sess.Poller()
			if poller != nil && poller.State() == feed.StateStalled {
				logrus.Warnf("%s: feed stalled, %v, retrying", row.UID, poller.Err())
				poller.Retry()
			}
			if player, ok := playback.(*render.Player); ok && player.Ended() {
				logrus.Infof("%s: playback ended", row.UID)
				return
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "Directory receiving the rendered frames")
	watchCmd.Flags().IntVar(&watchFPS, "fps", 2, "Repaint rate of the written frames")
	watchCmd.Flags().Float64Var(&watchMinConf, "min-confidence", 0.5, "Minimum hit confidence")
	watchCmd.Flags().DurationVar(&watchRetryAfter, "retry-after", 5*time.Second, "Delay before a stalled feed is retried")
}
