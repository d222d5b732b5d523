package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
)

var DB *gorm.DB

// Open connects to the configured driver without touching the DB global.
func Open(c configs.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:         configs.NewGormLogger(),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	switch c.DBDriver {
	case "sqlite":
		return gorm.Open(sqlite.Open(c.DBSQLitePath), gcfg)
	case "postgres", "":
		sslmode := c.DBSSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=drillhub&options=-c statement_timeout=5000",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, sslmode,
		)
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), gcfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

func ConnectDB(c configs.Config) error {
	db, err := Open(c)
	if err != nil {
		return err
	}
	DB = db
	zap.L().Info("database connected", zap.String("driver", c.DBDriver))
	return nil
}

func TunePool(db *gorm.DB, driver string) {
	sqlDB, err := db.DB()
	if err != nil {
		zap.L().Warn("pool tune failed", zap.Error(err))
		return
	}
	if driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
