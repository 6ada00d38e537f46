package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseSettings describes how to reach the backing database.
type DatabaseSettings struct {
	Driver   string
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
	Path     string
}

// LoadDatabaseSettings reads DB_* variables from the environment.
func LoadDatabaseSettings() DatabaseSettings {
	return DatabaseSettings{
		Driver:   strings.ToLower(envString("DB_DRIVER", "mysql")),
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Database: os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		SSLMode:  envString("DB_SSLMODE", "disable"),
		Path:     envString("DB_PATH", "formdrop.db"),
	}
}

// MySQLDSN builds the go-sql-driver DSN.
func (s DatabaseSettings) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		s.Username,
		s.Password,
		s.Host,
		s.Port,
		s.Database,
	)
}

// PostgresDSN builds the pgx keyword/value DSN.
func (s DatabaseSettings) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		s.Host,
		s.Port,
		s.Username,
		s.Password,
		s.Database,
		s.SSLMode,
	)
}

// Dialector picks the gorm dialector for the configured driver.
func (s DatabaseSettings) Dialector() (gorm.Dialector, error) {
	switch s.Driver {
	case "mysql", "":
		return mysql.Open(s.MySQLDSN()), nil
	case "postgres", "postgresql":
		return postgres.Open(s.PostgresDSN()), nil
	case "sqlite", "sqlite3":
		return sqlite.Open(s.Path), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", s.Driver)
}

// GormConfig returns the shared gorm configuration.
func GormConfig() *gorm.Config {
	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	debugSQL := strings.ToLower(os.Getenv("DEBUG_SQL"))

	// In production, suppress SQL logs unless explicitly re-enabled via DEBUG_SQL=true.
	logLevel := logger.Info
	if environment == "production" && debugSQL != "true" {
		logLevel = logger.Warn
	}

	return &gorm.Config{
		Logger: logger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			// Bound values carry submission data and stay out of the log.
			logger.Config{LogLevel: logLevel, IgnoreRecordNotFoundError: true, ParameterizedQueries: true},
		),
		TranslateError: true,
	}
}

// InitDB opens the database described by the environment.
func InitDB() (*gorm.DB, error) {
	settings := LoadDatabaseSettings()
	dialector, err := settings.Dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", settings.Driver, err)
	}

	log.Printf("Database connected successfully (%s)", settings.Driver)
	return db, nil
}
