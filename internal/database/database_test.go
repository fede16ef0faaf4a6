package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/huangang/cdashconf/internal/config"
)

func TestDriver(t *testing.T) {
	tests := []struct {
		dbType  string
		want    string
		wantErr bool
	}{
		{"", DriverMySQL, false},
		{"mysql", DriverMySQL, false},
		{"pgsql", DriverPostgres, false},
		{"PGSQL", DriverPostgres, false},
		{"postgres", DriverPostgres, false},
		{"sqlite", DriverSQLite, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			got, err := Driver(&config.DatabaseConfig{Type: tt.dbType})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Driver(%q) error = %v, wantErr %v", tt.dbType, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedDriver) {
				t.Errorf("Driver(%q) error = %v, expected ErrUnsupportedDriver", tt.dbType, err)
			}
			if got != tt.want {
				t.Errorf("Driver(%q) = %q, expected %q", tt.dbType, got, tt.want)
			}
		})
	}
}

func TestDSN_Postgres(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "defaults leave host and port to the driver",
			cfg:  config.DatabaseConfig{Login: "cdash", Password: "cdash", Name: "cdash", Type: "pgsql"},
			want: "user=cdash password=cdash dbname=cdash sslmode=disable",
		},
		{
			name: "host and port",
			cfg:  config.DatabaseConfig{Host: "db", Port: "5433", Login: "cdash", Password: "cdash", Name: "cdash", Type: "pgsql"},
			want: "host=db port=5433 user=cdash password=cdash dbname=cdash sslmode=disable",
		},
		{
			name: "quoted password",
			cfg:  config.DatabaseConfig{Login: "cdash", Password: `it's a pw`, Name: "cdash", Type: "pgsql"},
			want: `user=cdash password='it\'s a pw' dbname=cdash sslmode=disable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DSN(&tt.cfg)
			if err != nil {
				t.Fatalf("DSN() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DSN() = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestDSN_MySQL(t *testing.T) {
	cfg := &config.DatabaseConfig{Login: "cdash", Password: "pw", Name: "cdash"}

	got, err := DSN(cfg)
	if err != nil {
		t.Fatalf("DSN() error = %v", err)
	}
	if !strings.HasPrefix(got, "cdash:pw@tcp(localhost:3306)/cdash?") {
		t.Errorf("DSN() = %q, expected default host and port", got)
	}
	for _, param := range []string{"parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(got, param) {
			t.Errorf("DSN() = %q, expected %s", got, param)
		}
	}

	cfg.Host = "mysql.internal"
	cfg.Port = "3307"
	got, err = DSN(cfg)
	if err != nil {
		t.Fatalf("DSN() error = %v", err)
	}
	if !strings.HasPrefix(got, "cdash:pw@tcp(mysql.internal:3307)/cdash?") {
		t.Errorf("DSN() = %q, expected configured host and port", got)
	}
}

func TestDSN_SQLite(t *testing.T) {
	got, err := DSN(&config.DatabaseConfig{Type: "sqlite", Name: "/tmp/cdash.db"})
	if err != nil {
		t.Fatalf("DSN() error = %v", err)
	}
	if got != "/tmp/cdash.db" {
		t.Errorf("DSN() = %q, expected the database name as path", got)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Type: "oracle"}, false)
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("Open() error = %v, expected ErrUnsupportedDriver", err)
	}
}
