package model

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CameraSource struct {
	Id         int            `gorm:"primaryKey"`
	IsActive   bool           `gorm:"default:false"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
	Name       string         `gorm:"type:varchar(255)"`
	Url        string         `gorm:"type:varchar(1024);comment:Stripped of basic auth to display in user interface"`
	PrivateUrl string         `gorm:"type:varchar(1024)"`
	MmtxName   string         `gorm:"type:char(36);unique"`
}

// PullUrl is the address the inference runner reads from.
func (c *CameraSource) PullUrl() string {
	if c.PrivateUrl != "" {
		return c.PrivateUrl
	}
	return c.Url
}

func CreateCameraSource(src *CameraSource) error {
	return DB.Create(src).Error
}

func GetCameraSourceById(id int) (*CameraSource, error) {
	var src CameraSource
	err := DB.Where("id = ?", id).First(&src).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &src, nil
}

func ListCameraSources() ([]CameraSource, error) {
	var sources []CameraSource
	if err := DB.Model(&CameraSource{}).Order("id").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func UpdateCameraSource(src *CameraSource) error {
	return DB.Omit(clause.Associations).Save(src).Error
}

// DeleteCameraSource soft deletes the source, reporting false when it does not exist.
func DeleteCameraSource(id int) (bool, error) {
	res := DB.Delete(&CameraSource{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
