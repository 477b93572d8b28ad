package database

import (
	"errors"
	"fmt"

	phxlog "fsms/backend/pkg/log"

	"github.com/golang-migrate/migrate/v4"
	postgresdriver "github.com/golang-migrate/migrate/v4/database/postgres" // Renomeado para evitar conflito com gorm/driver/postgres
	_ "github.com/golang-migrate/migrate/v4/source/file"                   // Importar driver source file
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// ConnectDB initializes the database connection.
func ConnectDB(dsn string, development bool) error {
	logLevel := logger.Silent
	if development {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	phxlog.L.Info("Database connection established.")
	return nil
}

// MigrateDB aplica as migrações SQL com golang-migrate.
// sourceURL aponta para o diretório de migrações, ex. "file://internal/database/migrations".
func MigrateDB(sourceURL string) error {
	if DB == nil {
		return errors.New("database connection is not initialized. Call ConnectDB first")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	driver, err := postgresdriver.WithInstance(sqlDB, &postgresdriver.Config{})
	if err != nil {
		return fmt.Errorf("could not create postgres driver for migrate: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrate with source '%s': %w", sourceURL, err)
	}

	phxlog.L.Info("Applying database migrations...", zap.String("source", sourceURL))
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			phxlog.L.Info("No new database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		phxlog.L.Warn("Could not read migration version after applying", zap.Error(err))
	} else {
		phxlog.L.Info("Database migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}

// GetDB returns the current database instance.
func GetDB() *gorm.DB {
	return DB
}
