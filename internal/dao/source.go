package dao

import (
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vigil/internal/model"
)

type VideoSource struct {
	Id        int     `json:"id"`
	Name      string  `json:"name"`
	IsActive  bool    `json:"is_active"`
	DeletedAt *string `json:"deleted_at"`
	File      File    `json:"file"`
	// TStart is unix seconds.
	TStart float64 `json:"t_start"`
}

type CameraSource struct {
	Id        int     `json:"id"`
	Name      string  `json:"name"`
	IsActive  bool    `json:"is_active"`
	DeletedAt *string `json:"deleted_at"`
	Url       string  `json:"url"`
	MmtxName  string  `json:"mmtx_name"`
}

func formatDeletedAt(d gorm.DeletedAt) *string {
	if !d.Valid {
		return nil
	}
	s := d.Time.Format(time.RFC3339)
	return &s
}

func FromVideoSourceModel(m *model.VideoSource) *VideoSource {
	if m == nil {
		return nil
	}
	return &VideoSource{
		Id:        m.Id,
		Name:      m.Name,
		IsActive:  m.IsActive,
		DeletedAt: formatDeletedAt(m.DeletedAt),
		File:      FromFileModel(m.File),
		TStart:    m.TStart,
	}
}

func FromCameraSourceModel(m *model.CameraSource) *CameraSource {
	if m == nil {
		return nil
	}
	return &CameraSource{
		Id:        m.Id,
		Name:      m.Name,
		IsActive:  m.IsActive,
		DeletedAt: formatDeletedAt(m.DeletedAt),
		Url:       m.Url,
		MmtxName:  m.MmtxName,
	}
}

type VideoSourceCreateRequest struct {
	Name     string   `json:"name" binding:"required"`
	IsActive bool     `json:"is_active"`
	FileId   int      `json:"file_id" binding:"required,min=1"`
	TStart   *float64 `json:"t_start,omitempty"`
}

func (req *VideoSourceCreateRequest) ToModel(now time.Time) *model.VideoSource {
	src := &model.VideoSource{
		Name:     req.Name,
		IsActive: req.IsActive,
		FileId:   req.FileId,
		TStart:   float64(now.UnixNano()) / 1e9,
	}
	if req.TStart != nil {
		src.TStart = *req.TStart
	}
	return src
}

type CameraSourceCreateRequest struct {
	Name     string `json:"name" binding:"required"`
	IsActive bool   `json:"is_active"`
	Url      string `json:"url" binding:"required,stream_url"`
}

// ToModel keeps the credentials of the URL in PrivateUrl only.
func (req *CameraSourceCreateRequest) ToModel() *model.CameraSource {
	src := &model.CameraSource{
		Name:     req.Name,
		IsActive: req.IsActive,
		Url:      req.Url,
		MmtxName: uuid.New().String(),
	}
	if u, err := url.Parse(req.Url); err == nil && u.User != nil {
		src.PrivateUrl = req.Url
		u.User = nil
		src.Url = u.String()
	}
	return src
}

// SourceUpdateRequest is the partial update accepted by both source kinds.
type SourceUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (req *SourceUpdateRequest) UpdateVideoModel(m *model.VideoSource) {
	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}
}

func (req *SourceUpdateRequest) UpdateCameraModel(m *model.CameraSource) {
	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}
}
