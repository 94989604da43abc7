package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vigil/internal/client"
	"vigil/internal/dao"
	"vigil/internal/model"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage video and camera sources",
}

var (
	sourceName   string
	sourceActive bool
	sourceFileId int
	sourceTStart float64
	sourceUrl    string
)

var listSourcesCmd = &cobra.Command{
	Use:   "list",
	Short: "List every source",
	Run: func(cmd *cobra.Command, args []string) {
		cli := newClient(clientConfig())
		rows, err := cli.ListSources(context.Background())
		if err != nil {
			logrus.Fatalf("list sources error, %s", err.Error())
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "UID\tNAME\tACTIVE\tSTREAM")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", row.UID, row.Name(), row.IsActive(), cli.StreamURL(row))
		}
		w.Flush()
	},
}

var createVideoCmd = &cobra.Command{
	Use:   "create-video",
	Short: "Create a video source from an uploaded file",
	Run: func(cmd *cobra.Command, args []string) {
		req := &dao.VideoSourceCreateRequest{Name: sourceName, IsActive: sourceActive, FileId: sourceFileId}
		if cmd.Flags().Changed("t-start") {
			req.TStart = &sourceTStart
		}
		src, err := newClient(clientConfig()).CreateVideoSource(context.Background(), req)
		if err != nil {
			logrus.Fatalf("create video source error, %s", err.Error())
		}
		printJSON(src)
	},
}

var createCameraCmd = &cobra.Command{
	Use:   "create-camera",
	Short: "Create a live camera source",
	Run: func(cmd *cobra.Command, args []string) {
		req := &dao.CameraSourceCreateRequest{Name: sourceName, IsActive: sourceActive, Url: sourceUrl}
		src, err := newClient(clientConfig()).CreateCameraSource(context.Background(), req)
		if err != nil {
			logrus.Fatalf("create camera source error, %s", err.Error())
		}
		printJSON(src)
	},
}

var updateSourceCmd = &cobra.Command{
	Use:   "update <uid>",
	Short: "Rename or (de)activate a source",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, id, err := client.ParseRowUID(args[0])
		if err != nil {
			logrus.Fatal(err)
		}
		req := &dao.SourceUpdateRequest{}
		if cmd.Flags().Changed("name") {
			req.Name = &sourceName
		}
		if cmd.Flags().Changed("active") {
			req.IsActive = &sourceActive
		}

		cli := newClient(clientConfig())
		var out any
		if kind == model.SourceKindVideo {
			out, err = cli.UpdateVideoSource(context.Background(), id, req)
		} else {
			out, err = cli.UpdateCameraSource(context.Background(), id, req)
		}
		if err != nil {
			logrus.Fatalf("update source %s error, %s", args[0], err.Error())
		}
		printJSON(out)
	},
}

var deleteSourceCmd = &cobra.Command{
	Use:   "delete <uid>",
	Short: "Delete a source",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, id, err := client.ParseRowUID(args[0])
		if err != nil {
			logrus.Fatal(err)
		}
		cli := newClient(clientConfig())
		var ok bool
		if kind == model.SourceKindVideo {
			ok, err = cli.DeleteVideoSource(context.Background(), id)
		} else {
			ok, err = cli.DeleteCameraSource(context.Background(), id)
		}
		if err != nil {
			logrus.Fatalf("delete source %s error, %s", args[0], err.Error())
		}
		printJSON(dao.Result{Ok: ok})
	},
}

func init() {
	createVideoCmd.Flags().StringVarP(&sourceName, "name", "n", "", "Source name")
	createVideoCmd.Flags().BoolVar(&sourceActive, "active", false, "Start inference right away")
	createVideoCmd.Flags().IntVar(&sourceFileId, "file-id", 0, "Id of the uploaded file")
	createVideoCmd.Flags().Float64Var(&sourceTStart, "t-start", 0, "Absolute start of the recording, unix seconds")
	createVideoCmd.MarkFlagRequired("name")
	createVideoCmd.MarkFlagRequired("file-id")

	createCameraCmd.Flags().StringVarP(&sourceName, "name", "n", "", "Source name")
	createCameraCmd.Flags().BoolVar(&sourceActive, "active", false, "Mark the camera active")
	createCameraCmd.Flags().StringVar(&sourceUrl, "url", "", "Stream URL, credentials are kept private")
	createCameraCmd.MarkFlagRequired("name")
	createCameraCmd.MarkFlagRequired("url")

	updateSourceCmd.Flags().StringVarP(&sourceName, "name", "n", "", "New name")
	updateSourceCmd.Flags().BoolVar(&sourceActive, "active", false, "Activate or deactivate")

	sourcesCmd.AddCommand(listSourcesCmd)
	sourcesCmd.AddCommand(createVideoCmd)
	sourcesCmd.AddCommand(createCameraCmd)
	sourcesCmd.AddCommand(updateSourceCmd)
	sourcesCmd.AddCommand(deleteSourceCmd)
}
