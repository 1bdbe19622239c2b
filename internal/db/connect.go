// Package db owns database connections and schema migration for Foreman.
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported storage engines.
const (
	EngineSQLite = "sqlite"
	EngineMySQL  = "mysql"
)

// Options selects the storage engine and its location.
type Options struct {
	Engine   string // "sqlite" (default) or "mysql"
	Path     string // sqlite: database file path
	Host     string // mysql
	Port     int    // mysql
	User     string // mysql
	Database string // mysql
}

// Open connects to the configured database. SQLite paths get their parent
// directory created on demand so a fresh checkout works without setup.
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	switch opts.Engine {
	case EngineSQLite, "":
		path := opts.Path
		if path == "" {
			path = "data/foreman.db"
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("db: create data dir %s: %w", dir, err)
			}
		}
		gdb, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
		}
		return gdb, nil

	case EngineMySQL:
		gdb, err := gorm.Open(mysql.Open(DSN(opts)), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", opts.Host, opts.Port, opts.Database, err)
		}
		return gdb, nil

	default:
		return nil, fmt.Errorf("db: unknown engine %q", opts.Engine)
	}
}

// DSN builds the MySQL DSN for the given options.
func DSN(opts Options) string {
	user := opts.User
	if user == "" {
		user = "root"
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", user, opts.Host, opts.Port, opts.Database)
}
