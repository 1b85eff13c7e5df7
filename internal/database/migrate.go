package database

import (
	"github.com/DavidFlautero/felxeasy/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.RobotSession{},
		&domain.CapturedBlock{},
		&domain.LinkedCredential{},
	)
}
