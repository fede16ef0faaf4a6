package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/huangang/cdashconf/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnsupportedDriver = errors.New("unsupported database type")

// Driver maps the configured database type to a gorm driver name. An empty
// type means mysql.
func Driver(cfg *config.DatabaseConfig) (string, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "mysql":
		return DriverMySQL, nil
	case "pgsql", "postgres", "postgresql":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Type)
}

// DSN builds the connection string for the configured driver. Empty host and
// port fall back to the driver defaults.
func DSN(cfg *config.DatabaseConfig) (string, error) {
	driver, err := Driver(cfg)
	if err != nil {
		return "", err
	}

	switch driver {
	case DriverMySQL:
		return mysqlDSN(cfg), nil
	case DriverPostgres:
		return postgresDSN(cfg), nil
	default:
		return cfg.Name, nil
	}
}

func mysqlDSN(cfg *config.DatabaseConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == "" {
		port = "3306"
	}

	dc := mysqldrv.NewConfig()
	dc.User = cfg.Login
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(host, port)
	dc.DBName = cfg.Name
	dc.ParseTime = true
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

func postgresDSN(cfg *config.DatabaseConfig) string {
	var parts []string
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+quotePostgres(value))
		}
	}
	add("host", cfg.Host)
	add("port", cfg.Port)
	add("user", cfg.Login)
	add("password", cfg.Password)
	add("dbname", cfg.Name)
	parts = append(parts, "sslmode=disable")
	return strings.Join(parts, " ")
}

// quotePostgres quotes a keyword/value connection string value when needed.
func quotePostgres(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Open connects to the configured database. No schema is created. verbose
// logs every statement; otherwise only warnings reach the log.
func Open(cfg *config.DatabaseConfig, verbose bool) (*gorm.DB, error) {
	driver, err := Driver(cfg)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	}

	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// Ping verifies the connection is usable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Check opens, pings and closes the configured database.
func Check(ctx context.Context, cfg *config.DatabaseConfig) error {
	db, err := Open(cfg, false)
	if err != nil {
		return err
	}
	defer Close(db)
	return Ping(ctx, db)
}
