package client

import (
	"fmt"
	"strings"

	"vigil/internal/dao"
)

func (c *Client) MediaURL(path string) string {
	u := *c.mediaURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// VideoStreamURL is the direct object storage URL of a video file source.
func (c *Client) VideoStreamURL(src *dao.VideoSource) string {
	return c.MediaURL(fmt.Sprintf("/s3/%s/%s", src.File.S3Bucket, src.File.S3Key))
}

// CameraStreamURL is the HLS manifest of a camera source.
func (c *Client) CameraStreamURL(src *dao.CameraSource) string {
	return c.MediaURL(fmt.Sprintf("/hls/%s/index.m3u8", src.MmtxName))
}

func (c *Client) StreamURL(row SourceRow) string {
	if row.Video != nil {
		return c.VideoStreamURL(row.Video)
	}
	if row.Camera != nil {
		return c.CameraStreamURL(row.Camera)
	}
	return ""
}
