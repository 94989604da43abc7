package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"vigil/internal/version"
	"vigil/pkg/log"
)

var (
	logLevel   string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "vigil reviews video surveillance detections",
	Long: `Detection review for recorded videos and live cameras.
Version: ` + version.VERSION + `/` + version.COMMIT,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.InitLog(logLevel)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "etc/config.yaml", "Path to config file")

	rootCmd.AddCommand(serveCommand)
	rootCmd.AddCommand(updateDBCommand)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(toolsCmd)
}
