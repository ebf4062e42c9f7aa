package initializers

import (
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens the PostgreSQL database through the lib/pq driver.
func ConnectDB(cfg DatabaseConfig, verbose bool) (*gorm.DB, error) {
	slog.Info("connecting to database")
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is empty")
	}

	pgConfig := postgres.Config{
		PreferSimpleProtocol: true,
		DriverName:           "postgres",
		DSN:                  cfg.DSN,
	}

	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		PrepareStmt: false,
		Logger:      logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting underlying *sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	slog.Info("database connection successful")
	return db, nil
}
