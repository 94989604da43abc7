package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"vigil/internal/config"
)

// Storage is the object store holding uploaded video files.
type Storage struct {
	cli    *minio.Client
	bucket string
	logger *logrus.Entry
}

func New(conf config.S3Config, logger *logrus.Entry) (*Storage, error) {
	region := conf.Region
	if region == "" {
		region = "us-east-1"
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(conf.Endpoint, "http://"), "https://")
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKeyID, conf.SecretAccessKey, ""),
		Secure: conf.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}
	return &Storage{cli: cli, bucket: conf.Bucket, logger: logger}, nil
}

func (s *Storage) Bucket() string {
	return s.bucket
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.cli.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s failed: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	s.logger.Infof("bucket %s does not exist, creating", s.bucket)
	if err := s.cli.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s failed: %w", s.bucket, err)
	}
	return nil
}

// PresignedPost returns the URL and form fields of a browser style POST upload of key.
func (s *Storage) PresignedPost(ctx context.Context, key, contentType string, expire time.Duration) (string, map[string]string, error) {
	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(s.bucket); err != nil {
		return "", nil, err
	}
	if err := policy.SetKey(key); err != nil {
		return "", nil, err
	}
	if err := policy.SetContentType(contentType); err != nil {
		return "", nil, err
	}
	if err := policy.SetExpires(time.Now().UTC().Add(expire)); err != nil {
		return "", nil, err
	}

	u, fields, err := s.cli.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return "", nil, fmt.Errorf("presign post policy failed: %w", err)
	}
	return u.String(), fields, nil
}

// PresignedGet returns a time limited download URL of bucket/key.
func (s *Storage) PresignedGet(ctx context.Context, bucket, key string, expire time.Duration) (string, error) {
	u, err := s.cli.PresignedGetObject(ctx, bucket, key, expire, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get object failed: %w", err)
	}
	return u.String(), nil
}

// UploadFile puts a local file under key, guessing its content type from the extension.
func (s *Storage) UploadFile(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file failed: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("get file info failed: %w", err)
	}

	_, err = s.cli.PutObject(
		ctx,
		s.bucket,
		strings.TrimPrefix(key, "/"),
		file,
		fileInfo.Size(),
		minio.PutObjectOptions{
			ContentType: ContentTypeOf(localPath),
		},
	)
	if err != nil {
		return fmt.Errorf("put object to minio failed: %w", err)
	}
	return nil
}

// ContentTypeOf maps a file extension to the content type stored with the object.
func ContentTypeOf(name string) string {
	lastDotIndex := strings.LastIndex(name, ".")
	ext := ""
	if lastDotIndex != -1 {
		ext = strings.ToLower(name[lastDotIndex+1:])
	}

	switch ext {
	case "mp4", "m4v":
		return "video/mp4"
	case "avi":
		return "video/avi"
	case "mov":
		return "video/quicktime"
	case "mkv":
		return "video/x-matroska"
	case "webm":
		return "video/webm"
	case "ts":
		return "video/mp2t"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "json":
		return "application/json"
	}
	return "application/octet-stream"
}
