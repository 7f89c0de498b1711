package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/contadata/balancesync/pkg/common/config"
	"github.com/contadata/balancesync/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
	dbErr  error
)

// GetPostgres opens the connection pool without pinging, so an unreachable
// store does not block startup. Callers that care run PingPostgres and
// treat a failure as a warning; the write attempts are the real test.
func GetPostgres() (*gorm.DB, error) {
	dbOnce.Do(func() {
		cfg := config.Load()
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.PostgresHost,
			cfg.PostgresUser,
			cfg.PostgresPassword,
			cfg.PostgresDB,
			cfg.PostgresPort,
			cfg.PostgresSSLMode,
		)

		db, dbErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableAutomaticPing: true,
			Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if dbErr != nil {
			logger.Log.WithError(dbErr).Error("Failed to open PostgreSQL handle")
			return
		}

		logger.Log.Info("PostgreSQL handle ready")
	})

	return db, dbErr
}

func PingPostgres(ctx context.Context) error {
	gdb, err := GetPostgres()
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func ClosePostgres() error {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
