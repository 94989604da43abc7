package config

import (
	"fmt"
	"time"
)

const defaultSqlDsn = "root:123456@tcp(127.0.0.1:3306)/vigil?charset=utf8mb4&parseTime=True&loc=Local"

type DBConfig struct {
	DSN          string `yaml:"dsn" env:"DATABASE_URL"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxLifetime  int    `yaml:"maxLifetime"`
	Echo         bool   `yaml:"echo" env:"DATABASE_ECHO"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT_URL"`
	AccessKeyID     string `yaml:"accessKeyID" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secretAccessKey" env:"S3_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"useSSL" env:"S3_USE_SSL"`
	Region          string `yaml:"region" env:"S3_REGION"`
	// UploadExpire is the lifetime of presigned upload forms, in seconds.
	UploadExpire int `yaml:"uploadExpire"`
}

func (s3 *S3Config) UrlPrefix() string {
	if s3.UseSSL {
		return fmt.Sprintf("https://%s/%s", s3.Endpoint, s3.Bucket)
	}
	return fmt.Sprintf("http://%s/%s", s3.Endpoint, s3.Bucket)
}

type TritonConfig struct {
	ServerAddr string `yaml:"serverAddr" env:"TRITON_ADDR"`
	ModelName  string `yaml:"modelName"`
}

type NSQConfig struct {
	NSQDAddr  string   `yaml:"nsqdAddr" env:"NSQD_ADDR"`
	NSQDAddrs []string `yaml:"nsqdAddrs" env:"NSQD_ADDRS" envSeparator:","`
	Topic     string   `yaml:"topic"`
	Channel   string   `yaml:"channel"`
}

type InferConfig struct {
	// WorkDir holds the task metadata database.
	WorkDir string `yaml:"workDir" env:"VIGIL_WORK_DIR"`
	// AlertConfidence is the minimum hit confidence published as an alert.
	AlertConfidence float64 `yaml:"alertConfidence"`
	// LogEvery controls progress logging, in processed frames.
	LogEvery int `yaml:"logEvery"`
}

// ViewerConfig drives the client side commands: feed polling and rendering.
type ViewerConfig struct {
	ServerAddr     string  `yaml:"serverAddr" env:"VIGIL_SERVER_ADDR"`
	MediaAddr      string  `yaml:"mediaAddr" env:"VIGIL_MEDIA_ADDR"`
	Token          string  `yaml:"token" env:"VIGIL_TOKEN"`
	PollIntervalMs int     `yaml:"pollIntervalMs"`
	FetchLimit     int     `yaml:"fetchLimit"`
	MinConfidence  float64 `yaml:"minConfidence" env:"VIGIL_MIN_CONFIDENCE"`
	Fade           float64 `yaml:"fade"`
	BucketWidth    float64 `yaml:"bucketWidth"`
	FPS            int     `yaml:"fps"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	TimelineHeight int     `yaml:"timelineHeight"`
	LiveWindow     int     `yaml:"liveWindow"`
}

func (v ViewerConfig) PollInterval() time.Duration {
	return time.Duration(v.PollIntervalMs) * time.Millisecond
}

type Config struct {
	Addr        string       `yaml:"addr" env:"VIGIL_ADDR"`
	SSLCert     string       `yaml:"sslCert"`
	SSLKey      string       `yaml:"sslKey"`
	JwtSecret   string       `yaml:"jwtSecret" env:"VIGIL_JWT_SECRET"`
	CorsOrigins []string     `yaml:"corsOrigins" env:"VIGIL_CORS_ORIGINS" envSeparator:","`
	DB          DBConfig     `yaml:"db"`
	S3          S3Config     `yaml:"s3"`
	Triton      TritonConfig `yaml:"triton"`
	NSQ         NSQConfig    `yaml:"nsq"`
	Infer       InferConfig  `yaml:"infer"`
	Viewer      ViewerConfig `yaml:"viewer"`
}

func DefaultConfig() *Config {
	return &Config{
		Addr:        "127.0.0.1:8081",
		CorsOrigins: []string{"http://localhost:3000"},
		DB: DBConfig{
			DSN:          defaultSqlDsn,
			MaxIdleConns: 100,
			MaxOpenConns: 1000,
			MaxLifetime:  60,
		},
		S3: S3Config{
			Bucket:       "vigil",
			Endpoint:     "127.0.0.1:9000",
			UseSSL:       false,
			Region:       "us-east-1",
			UploadExpire: 600,
		},
		Triton: TritonConfig{
			ServerAddr: "localhost:8001",
			ModelName:  "guns",
		},
		NSQ: NSQConfig{
			Topic:   "detection_alerts",
			Channel: "vigil-alerts",
		},
		Infer: InferConfig{
			WorkDir:         "./vigil_data",
			AlertConfidence: 0.5,
			LogEvery:        100,
		},
		Viewer: ViewerConfig{
			ServerAddr:     "http://127.0.0.1:8081",
			MediaAddr:      "http://127.0.0.1:8081",
			PollIntervalMs: 500,
			FetchLimit:     1000,
			MinConfidence:  0.5,
			Fade:           0.25,
			BucketWidth:    1,
			FPS:            30,
			Width:          1280,
			Height:         720,
			TimelineHeight: 10,
			LiveWindow:     60,
		},
	}
}
