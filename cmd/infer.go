package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vigil/internal/client"
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Control server side inference tasks",
}

var inferStartCmd = &cobra.Command{
	Use:   "start <uid>",
	Short: "Restart inference of a source",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, id, err := client.ParseRowUID(args[0])
		if err != nil {
			logrus.Fatal(err)
		}
		if err := newClient(clientConfig()).TriggerInference(context.Background(), kind, id); err != nil {
			logrus.Fatalf("start inference of %s error, %s", args[0], err.Error())
		}
		logrus.Infof("inference of %s started", args[0])
	},
}

var inferStatusCmd = &cobra.Command{
	Use:   "status <uid>",
	Short: "Show the inference task of a source",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, id, err := client.ParseRowUID(args[0])
		if err != nil {
			logrus.Fatal(err)
		}
		status, err := newClient(clientConfig()).InferenceStatus(context.Background(), kind, id)
		if err != nil {
			logrus.Fatalf("get inference status of %s error, %s", args[0], err.Error())
		}
		printJSON(status)
	},
}

func init() {
	inferCmd.AddCommand(inferStartCmd)
	inferCmd.AddCommand(inferStatusCmd)
}
