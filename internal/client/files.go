package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"vigil/internal/dao"
)

const filesPath = "/v1/files"

func (c *Client) CreateFile(ctx context.Context, req *dao.FileCreateRequest) (*dao.FileCreateResponse, error) {
	var resp dao.FileCreateResponse
	if err := c.do(ctx, http.MethodPost, filesPath, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadFile registers a file and posts its content directly to object storage
// with the presigned form returned by the server.
func (c *Client) UploadFile(ctx context.Context, localPath, contentType string) (*dao.File, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	created, err := c.CreateFile(ctx, &dao.FileCreateRequest{
		Name:        filepath.Base(localPath),
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}

	target := created.S3PresignedUrl
	if target == "" {
		target = c.MediaURL("/s3/" + created.File.S3Bucket)
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(form, created.S3PresignedFields, filepath.Base(localPath), f))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", localPath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	c.logger.Infof("uploaded %s as %s/%s", localPath, created.File.S3Bucket, created.File.S3Key)
	return &created.File, nil
}

// writeUploadForm writes the policy fields first; object stores reject a file part preceding them.
func writeUploadForm(form *multipart.Writer, fields map[string]string, name string, content io.Reader) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := form.WriteField(k, fields[k]); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return form.Close()
}
