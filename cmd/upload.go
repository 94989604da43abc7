package cmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vigil/internal/dao"
	"vigil/internal/storage"
)

var (
	uploadCreateSource bool
	uploadActive       bool
	uploadTStart       float64
)

var uploadCmd = &cobra.Command{
	Use:   "upload <video file>",
	Short: "Upload a video file, optionally creating a source for it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		ctx := context.Background()
		cli := newClient(clientConfig())

		file, err := cli.UploadFile(ctx, path, storage.ContentTypeOf(path))
		if err != nil {
			logrus.Fatalf("upload %s error, %s", path, err.Error())
		}
		if !uploadCreateSource {
			printJSON(file)
			return
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		req := &dao.VideoSourceCreateRequest{Name: name, IsActive: uploadActive, FileId: file.Id}
		if cmd.Flags().Changed("t-start") {
			req.TStart = &uploadTStart
		}
		src, err := cli.CreateVideoSource(ctx, req)
		if err != nil {
			logrus.Fatalf("create video source error, %s", err.Error())
		}
		printJSON(src)
	},
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadCreateSource, "source", false, "Create a video source for the uploaded file")
	uploadCmd.Flags().BoolVar(&uploadActive, "active", false, "Start inference on the new source")
	uploadCmd.Flags().Float64Var(&uploadTStart, "t-start", 0, "Absolute start of the recording, unix seconds")
}
