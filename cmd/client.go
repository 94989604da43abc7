package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"vigil/internal/client"
	"vigil/internal/config"
)

// clientConfig loads the config for client side commands, which run fine
// without a config file.
func clientConfig() *config.Config {
	conf, err := config.InitConfig(configFile, true)
	if err != nil {
		logrus.Fatal("initConfig error, ", err.Error())
	}
	return conf
}

func newClient(conf *config.Config) *client.Client {
	cli, err := client.New(conf.Viewer.ServerAddr,
		client.WithToken(conf.Viewer.Token),
		client.WithMediaAddr(conf.Viewer.MediaAddr),
	)
	if err != nil {
		logrus.Fatalf("create client error, %s", err.Error())
	}
	return cli
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logrus.Fatalf("encode output error, %s", err.Error())
	}
}

func mustRow(ctx context.Context, cli *client.Client, uid string) *client.SourceRow {
	row, err := cli.GetSource(ctx, uid)
	if err != nil {
		logrus.Fatalf("get source %s error, %s", uid, err.Error())
	}
	return row
}
