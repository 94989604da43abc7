package model

import (
	"gorm.io/gorm"
)

type SourceKind string

const (
	SourceKindVideo  SourceKind = "Video"
	SourceKindCamera SourceKind = "Camera"
)

func (k SourceKind) Valid() bool {
	return k == SourceKindVideo || k == SourceKindCamera
}

type Inference struct {
	Id         int            `gorm:"primaryKey"`
	T          float64        `gorm:"type:double;index:idx_inference_source_t,priority:3"`
	SourceKind SourceKind     `gorm:"type:varchar(16);index:idx_inference_source_t,priority:1"`
	SourceId   int            `gorm:"index:idx_inference_source_t,priority:2"`
	Hits       []InferenceHit `gorm:"foreignKey:InferenceId;constraint:OnDelete:CASCADE"`
}

type InferenceHit struct {
	Id int `gorm:"primaryKey"`
	X  float64
	Y  float64
	W  float64
	H  float64
	// C is the detector confidence.
	C           float64
	TrackId     *int
	InferenceId int `gorm:"index"`
}

func CreateInference(inference *Inference) error {
	return DB.Create(inference).Error
}

// GetInferences returns up to limit inferences of one source with t > sinceT, ascending.
func GetInferences(kind SourceKind, sourceId int, sinceT float64, limit int) ([]Inference, error) {
	var inferences []Inference
	err := DB.Preload("Hits", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).
		Where("source_kind = ? AND source_id = ? AND t > ?", kind, sourceId, sinceT).
		Order("t").Order("id").
		Limit(limit).
		Find(&inferences).Error
	if err != nil {
		return nil, err
	}
	return inferences, nil
}

// DestroyInferences drops every inference of a source together with its hits.
func DestroyInferences(kind SourceKind, sourceId int) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&Inference{}).Select("id").Where("source_kind = ? AND source_id = ?", kind, sourceId)
		if err := tx.Where("inference_id IN (?)", ids).Delete(&InferenceHit{}).Error; err != nil {
			return err
		}
		return tx.Where("source_kind = ? AND source_id = ?", kind, sourceId).Delete(&Inference{}).Error
	})
}
