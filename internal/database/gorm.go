package database

import (
	"fmt"

	"voice-campaign/internal/config"
	"voice-campaign/internal/logger"
	"voice-campaign/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dialector picks the gorm driver named by DB_DRIVER.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "", "sqlite":
		return sqlite.Open(cfg.DBPath), nil
	case "postgres":
		return postgres.Open(PostgresDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func PostgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
}

// Open connects to the configured database and migrates the schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	level := gormlogger.Info
	if cfg.LogMode == "production" {
		level = gormlogger.Warn
	}
	db, err := OpenDialector(dialector, level)
	if err != nil {
		return nil, err
	}
	logger.Info("Database ready", zap.String("driver", db.Dialector.Name()))
	return db, nil
}

func OpenDialector(d gorm.Dialector, level gormlogger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(d, &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migration: %w", err)
	}
	return nil
}

// SyncConfig reconciles telephony settings with the system_settings table.
// Values stored in the database win; values only present in the environment
// are written back so the next start sees them.
func SyncConfig(db *gorm.DB, cfg *config.Config) error {
	settings := []struct {
		Key   string
		Value *string
	}{
		{"TWILIO_PHONE_NUMBER", &cfg.TwilioPhoneNumber},
		{"BASE_URL", &cfg.BaseURL},
		{"BRIDGE_SIP_URI", &cfg.BridgeSIPURI},
	}

	for _, s := range settings {
		var setting models.SystemSetting
		err := db.Where("key = ?", s.Key).First(&setting).Error
		switch {
		case err == nil:
			if setting.Value != "" {
				*s.Value = setting.Value
			}
		case err == gorm.ErrRecordNotFound:
			if *s.Value == "" {
				continue
			}
			if err := db.Create(&models.SystemSetting{Key: s.Key, Value: *s.Value}).Error; err != nil {
				return fmt.Errorf("save setting %s: %w", s.Key, err)
			}
		default:
			return fmt.Errorf("load setting %s: %w", s.Key, err)
		}
	}
	logger.Debug("System settings synchronized from database")
	return nil
}

// PutSetting stores a setting, replacing any previous value.
func PutSetting(db *gorm.DB, key, value string) error {
	var setting models.SystemSetting
	err := db.Where("key = ?", key).First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&models.SystemSetting{Key: key, Value: value}).Error
	}
	if err != nil {
		return err
	}
	return db.Model(&setting).Update("value", value).Error
}
