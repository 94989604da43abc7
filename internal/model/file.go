package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type File struct {
	Id          int       `gorm:"primaryKey"`
	Name        string    `gorm:"type:varchar(255)"`
	ContentType string    `gorm:"type:varchar(128)"`
	S3Bucket    string    `gorm:"type:varchar(128)"`
	S3Key       string    `gorm:"type:varchar(128);index"`
	CreateTime  time.Time `gorm:"autoCreateTime"`
}

func CreateFile(file *File) error {
	return DB.Create(file).Error
}

func GetFileById(id int) (*File, error) {
	var file File
	err := DB.Where("id = ?", id).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}
