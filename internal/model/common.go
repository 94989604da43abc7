package model

import (
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vigil/internal/config"
)

var DB *gorm.DB

const sqlitePrefix = "sqlite://"

func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	}
	return mysql.Open(dsn)
}

func InitDB(dbConfig config.DBConfig) (*gorm.DB, error) {
	gormConf := &gorm.Config{
		PrepareStmt: true,
	}
	if dbConfig.Echo {
		gormConf.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormConf.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector(dbConfig.DSN), gormConf)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Second * time.Duration(dbConfig.MaxLifetime))

	DB = db

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&File{}, &VideoSource{}, &CameraSource{}, &Inference{}, &InferenceHit{})
}

// InsertTestData seeds a demo file, video source and a handful of detections.
func InsertTestData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		file := &File{Name: "demo.mp4", ContentType: "video/mp4", S3Bucket: "vigil", S3Key: "demo"}
		if err := tx.Create(file).Error; err != nil {
			return err
		}
		start := float64(time.Now().Add(-time.Hour).Unix())
		src := &VideoSource{Name: "demo", IsActive: false, TStart: start, FileId: file.Id}
		if err := tx.Create(src).Error; err != nil {
			return err
		}
		for i := 0; i < 10; i++ {
			inf := &Inference{
				T:          start + float64(i)*0.5,
				SourceKind: SourceKindVideo,
				SourceId:   src.Id,
				Hits:       []InferenceHit{{X: 0.5, Y: 0.5, W: 0.1, H: 0.2, C: 0.4 + float64(i)*0.05}},
			}
			if err := tx.Create(inf).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
