package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"vigil/internal/dao"
	"vigil/internal/model"
)

// DefaultFetchLimit matches the server side default page size.
const DefaultFetchLimit = 1000

// ListInferences returns up to limit events with t > sinceT, in server order.
func (c *Client) ListInferences(ctx context.Context, kind model.SourceKind, id int, sinceT float64, limit int) ([]dao.Inference, error) {
	path, err := sourcesPath(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	query := url.Values{}
	query.Set("since_t", strconv.FormatFloat(sinceT, 'f', -1, 64))
	query.Set("limit", strconv.Itoa(limit))

	inferences := make([]dao.Inference, 0)
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d/inferences", path, id), query, nil, &inferences); err != nil {
		return nil, err
	}
	return inferences, nil
}

// TriggerInference (re)starts the server side inference task of a source.
func (c *Client) TriggerInference(ctx context.Context, kind model.SourceKind, id int) error {
	path, err := sourcesPath(kind)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%d/tasks/infer", path, id), nil, nil, nil)
}

func (c *Client) InferenceStatus(ctx context.Context, kind model.SourceKind, id int) (*dao.TaskStatus, error) {
	path, err := sourcesPath(kind)
	if err != nil {
		return nil, err
	}
	var status dao.TaskStatus
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d/tasks/infer", path, id), nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
