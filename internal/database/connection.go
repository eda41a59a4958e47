// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/admarket/admarket-backend/internal/config"
	"github.com/admarket/admarket-backend/internal/models"
)

// Initialize opens the mirror store. The returned handle is owned by the
// caller: constructed once at startup, injected into services, closed at
// shutdown. There is deliberately no package-level connection.
func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Mirror store connection established")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing mirror store connection")
	} else {
		logrus.Info("Mirror store connection closed")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running mirror store migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Video{},
		&models.Campaign{},
		&models.AdView{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Mirror store migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Video read paths: creator dashboards and recency-ordered lists
		"CREATE INDEX IF NOT EXISTS idx_videos_creator ON videos(creator)",
		"CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at DESC)",

		// Latest-campaign-wins lookup
		"CREATE INDEX IF NOT EXISTS idx_campaigns_video_created ON campaigns(video_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_campaigns_advertiser ON campaigns(advertiser)",

		// Fact-log aggregation paths
		"CREATE INDEX IF NOT EXISTS idx_ad_views_campaign ON ad_views(campaign_id)",
		"CREATE INDEX IF NOT EXISTS idx_ad_views_video ON ad_views(video_id)",
		"CREATE INDEX IF NOT EXISTS idx_ad_views_viewed_at ON ad_views(viewed_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).Warnf("Failed to create index: %s", index)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}
