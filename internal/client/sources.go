package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"vigil/internal/dao"
	"vigil/internal/model"
)

const (
	videoSourcesPath  = "/v1/video-sources"
	cameraSourcesPath = "/v1/camera-sources"
)

func sourcesPath(kind model.SourceKind) (string, error) {
	switch kind {
	case model.SourceKindVideo:
		return videoSourcesPath, nil
	case model.SourceKindCamera:
		return cameraSourcesPath, nil
	}
	return "", fmt.Errorf("unknown source kind %q", kind)
}

// SourceRow addresses a source of either kind with a single uid, e.g. "Video-3".
type SourceRow struct {
	UID    string
	Kind   model.SourceKind
	Video  *dao.VideoSource
	Camera *dao.CameraSource
}

func VideoRow(src dao.VideoSource) SourceRow {
	return SourceRow{UID: RowUID(model.SourceKindVideo, src.Id), Kind: model.SourceKindVideo, Video: &src}
}

func CameraRow(src dao.CameraSource) SourceRow {
	return SourceRow{UID: RowUID(model.SourceKindCamera, src.Id), Kind: model.SourceKindCamera, Camera: &src}
}

func RowUID(kind model.SourceKind, id int) string {
	return fmt.Sprintf("%s-%d", kind, id)
}

// ParseRowUID splits a uid produced by RowUID.
func ParseRowUID(uid string) (model.SourceKind, int, error) {
	kindStr, idStr, ok := strings.Cut(uid, "-")
	if !ok {
		return "", 0, fmt.Errorf("invalid source uid %q", uid)
	}
	kind := model.SourceKind(kindStr)
	if !kind.Valid() {
		return "", 0, fmt.Errorf("invalid source kind in uid %q", uid)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid source id in uid %q", uid)
	}
	return kind, id, nil
}

func (r SourceRow) ID() int {
	if r.Video != nil {
		return r.Video.Id
	}
	if r.Camera != nil {
		return r.Camera.Id
	}
	return 0
}

func (r SourceRow) Name() string {
	if r.Video != nil {
		return r.Video.Name
	}
	if r.Camera != nil {
		return r.Camera.Name
	}
	return ""
}

func (r SourceRow) IsActive() bool {
	if r.Video != nil {
		return r.Video.IsActive
	}
	return r.Camera != nil && r.Camera.IsActive
}

// KnownStart is the absolute start of a recording; live cameras have none.
func (r SourceRow) KnownStart() (float64, bool) {
	if r.Video != nil {
		return r.Video.TStart, true
	}
	return 0, false
}

func (c *Client) ListVideoSources(ctx context.Context) ([]dao.VideoSource, error) {
	var sources []dao.VideoSource
	if err := c.do(ctx, http.MethodGet, videoSourcesPath, nil, nil, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func (c *Client) ListCameraSources(ctx context.Context) ([]dao.CameraSource, error) {
	var sources []dao.CameraSource
	if err := c.do(ctx, http.MethodGet, cameraSourcesPath, nil, nil, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// ListSources fetches both kinds concurrently; video rows come first.
func (c *Client) ListSources(ctx context.Context) ([]SourceRow, error) {
	var (
		videos  []dao.VideoSource
		cameras []dao.CameraSource
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		videos, err = c.ListVideoSources(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cameras, err = c.ListCameraSources(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := lo.Map(videos, func(src dao.VideoSource, _ int) SourceRow { return VideoRow(src) })
	rows = append(rows, lo.Map(cameras, func(src dao.CameraSource, _ int) SourceRow { return CameraRow(src) })...)
	return rows, nil
}

// GetSource finds a row by uid in the listing.
func (c *Client) GetSource(ctx context.Context, uid string) (*SourceRow, error) {
	if _, _, err := ParseRowUID(uid); err != nil {
		return nil, err
	}
	rows, err := c.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	row, ok := lo.Find(rows, func(r SourceRow) bool { return r.UID == uid })
	if !ok {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("source %s not found", uid)}
	}
	return &row, nil
}

func (c *Client) CreateVideoSource(ctx context.Context, req *dao.VideoSourceCreateRequest) (*dao.VideoSource, error) {
	var src dao.VideoSource
	if err := c.do(ctx, http.MethodPost, videoSourcesPath, nil, req, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func (c *Client) CreateCameraSource(ctx context.Context, req *dao.CameraSourceCreateRequest) (*dao.CameraSource, error) {
	var src dao.CameraSource
	if err := c.do(ctx, http.MethodPost, cameraSourcesPath, nil, req, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func (c *Client) UpdateVideoSource(ctx context.Context, id int, req *dao.SourceUpdateRequest) (*dao.VideoSource, error) {
	var src dao.VideoSource
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("%s/%d", videoSourcesPath, id), nil, req, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func (c *Client) UpdateCameraSource(ctx context.Context, id int, req *dao.SourceUpdateRequest) (*dao.CameraSource, error) {
	var src dao.CameraSource
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("%s/%d", cameraSourcesPath, id), nil, req, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func (c *Client) deleteSource(ctx context.Context, kind model.SourceKind, id int) (bool, error) {
	path, err := sourcesPath(kind)
	if err != nil {
		return false, err
	}
	var res dao.Result
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", path, id), nil, nil, &res); err != nil {
		return false, err
	}
	return res.Ok, nil
}

func (c *Client) DeleteVideoSource(ctx context.Context, id int) (bool, error) {
	return c.deleteSource(ctx, model.SourceKindVideo, id)
}

func (c *Client) DeleteCameraSource(ctx context.Context, id int) (bool, error) {
	return c.deleteSource(ctx, model.SourceKindCamera, id)
}
