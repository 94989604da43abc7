package dao

import "vigil/internal/model"

type File struct {
	Id          int    `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	S3Bucket    string `json:"s3_bucket"`
	S3Key       string `json:"s3_key"`
}

func FromFileModel(m *model.File) File {
	if m == nil {
		return File{}
	}
	return File{
		Id:          m.Id,
		Name:        m.Name,
		ContentType: m.ContentType,
		S3Bucket:    m.S3Bucket,
		S3Key:       m.S3Key,
	}
}

type FileCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	ContentType string `json:"content_type" binding:"required,content_type"`
}

type FileCreateResponse struct {
	File File `json:"file"`
	// S3PresignedFields are the form fields of a direct POST upload to object storage.
	S3PresignedFields map[string]string `json:"s3_presigned_fields"`
	S3PresignedUrl    string            `json:"s3_presigned_url,omitempty"`
}

type Result struct {
	Ok bool `json:"ok"`
}
