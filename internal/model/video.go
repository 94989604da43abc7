package model

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VideoSource struct {
	Id        int            `gorm:"primaryKey"`
	IsActive  bool           `gorm:"default:false"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
	Name      string         `gorm:"type:varchar(255)"`
	// TStart is the absolute start of the recording, unix seconds.
	TStart float64 `gorm:"type:double"`
	FileId int     `gorm:"index"`
	File   *File   `gorm:"foreignKey:FileId"`
}

func CreateVideoSource(src *VideoSource) error {
	return DB.Omit(clause.Associations).Create(src).Error
}

func GetVideoSourceById(id int) (*VideoSource, error) {
	var src VideoSource
	err := DB.Preload("File").Where("id = ?", id).First(&src).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &src, nil
}

func ListVideoSources() ([]VideoSource, error) {
	var sources []VideoSource
	if err := DB.Model(&VideoSource{}).Preload("File").Order("id").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func UpdateVideoSource(src *VideoSource) error {
	return DB.Omit(clause.Associations).Save(src).Error
}

// DeleteVideoSource soft deletes the source, reporting false when it does not exist.
func DeleteVideoSource(id int) (bool, error) {
	res := DB.Delete(&VideoSource{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
