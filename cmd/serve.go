package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vigil/internal/alert"
	"vigil/internal/config"
	"vigil/internal/frames"
	"vigil/internal/infer"
	"vigil/internal/infer/metadata"
	"vigil/internal/model"
	"vigil/internal/server"
	"vigil/internal/storage"
	"vigil/pkg/log"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start vigil server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func runServe() {
	conf, err := config.InitConfig(configFile, false)
	if err != nil {
		logrus.Fatal("initConfig error, ", err.Error())
	}

	db, err := model.InitDB(conf.DB)
	if err != nil {
		logrus.Fatal("failed to init database", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()
	if err := model.AutoMigrate(db); err != nil {
		logrus.Fatal("failed to auto migrate database", err)
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	store, err := storage.New(conf.S3, log.Component(ctx, "storage"))
	if err != nil {
		logrus.Fatalf("init storage error, %s", err.Error())
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logrus.Fatalf("ensure bucket %s error, %s", store.Bucket(), err.Error())
	}

	statuses, err := metadata.NewMetadataDB(filepath.Join(conf.Infer.WorkDir, "metadata"), log.Component(ctx, "metadata"))
	if err != nil {
		logrus.Fatalf("open metadata db error, %s", err.Error())
	}
	defer statuses.Close()
	if n, err := statuses.MarkInterrupted(time.Now()); err != nil {
		logrus.Warnf("mark interrupted tasks failed, %s", err.Error())
	} else if n > 0 {
		logrus.Infof("%d inference tasks were interrupted by the last shutdown", n)
	}

	tritonClient, err := infer.NewTritonClient(conf.Triton.ServerAddr)
	if err != nil {
		logrus.Fatalf("create triton client error, %s", err.Error())
	}

	detector := infer.NewTritonDetector(tritonClient, conf.Triton.ModelName)
	readyCtx, readyCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := detector.Ready(readyCtx); err != nil {
		logrus.Warnf("triton model %s is not ready yet, %s", conf.Triton.ModelName, err.Error())
	}
	readyCancel()

	runnerConf := infer.RunnerConfig{
		Open:            frames.Open,
		Detector:        detector,
		Presigner:       store,
		Status:          statuses,
		AlertConfidence: conf.Infer.AlertConfidence,
		LogEvery:        conf.Infer.LogEvery,
	}
	if conf.NSQ.NSQDAddr != "" {
		publisher, err := alert.NewPublisher(ctx, conf.NSQ)
		if err != nil {
			logrus.Fatalf("create alert publisher error, %s", err.Error())
		}
		defer publisher.Stop()
		runnerConf.Publisher = publisher
	}
	runner := infer.NewRunner(ctx, runnerConf)
	defer runner.Close()

	srv, err := server.NewServer(ctx, conf, server.WithObjectStore(store), server.WithInferenceRunner(runner))
	if err != nil {
		logrus.Fatalf("newServer error, %s", err.Error())
	}
	go srv.Start()

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	<-termChan
	logrus.Infof("server is shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("shutdown error, %s", err.Error())
	}
}
