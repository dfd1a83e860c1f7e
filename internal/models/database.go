package models

import (
	"fmt"

	"github.com/invoicemenecer/api/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&Role{},
		&RefreshToken{},
		&Customer{},
		&Invoice{},
		&InvoiceRow{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates the built-in roles if they do not exist yet.
func SeedDefaultData() error {
	for _, name := range []string{RoleAdmin, RoleUser} {
		var count int64
		DB.Model(&Role{}).Where("name = ?", name).Count(&count)
		if count == 0 {
			if err := DB.Create(&Role{Name: name}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
