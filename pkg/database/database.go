package database

import (
	"fmt"
	"institute_backend/internal/config"
	"institute_backend/internal/model"
	zlog "institute_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// 唯一索引冲突转换为 gorm.ErrDuplicatedKey，成绩幂等写入依赖它
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	zlog.Log.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate 考试引擎用到的表
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Registration{},
		&model.Test{},
		&model.Question{},
		&model.Result{},
	)
	if err != nil {
		return err
	}

	zlog.Log.Info("Database migration completed")
	return nil
}
