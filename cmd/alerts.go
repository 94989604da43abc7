package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vigil/internal/alert"
	"vigil/internal/dao"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Consume and log detection alerts",
	Run: func(cmd *cobra.Command, args []string) {
		conf := clientConfig()
		ctx, stop := signalContext()
		defer stop()

		consumer, err := alert.NewConsumer(ctx, conf.NSQ, func(ctx context.Context, a *dao.DetectionAlert) error {
			best := 0.0
			for _, hit := range a.Hits {
				best = max(best, hit.Confidence)
			}
			logrus.WithFields(logrus.Fields{
				"kind":       a.SourceKind,
				"id":         a.SourceId,
				"t":          a.T,
				"hits":       len(a.Hits),
				"confidence": best,
			}).Info("detection alert")
			return nil
		})
		if err != nil {
			logrus.Fatal(err)
		}
		if err := consumer.Start(); err != nil {
			logrus.Fatal(err)
		}
		logrus.Infof("consuming %s on channel %s", conf.NSQ.Topic, conf.NSQ.Channel)

		<-ctx.Done()
		consumer.Stop()
	},
}
