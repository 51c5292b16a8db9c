package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open initializes the GORM connection for the single SQLite database file
// at path, migrates the schema, and installs the full-text-search triggers.
//
// Single-writer discipline (spec §4.A) is enforced by capping the
// underlying *sql.DB to one open connection: SQLite already serializes
// writers at the file level, but a single Go-level connection also
// serializes statement ordering within a transaction, which the FTS
// triggers depend on.
func Open(path string, debug bool) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	gormCfg := &gorm.Config{}
	if !debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_foreign_keys=on"), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&Contact{},
		&Thread{},
		&Message{},
		&MessageContact{},
		&ThreadContact{},
		&Attachment{},
		&Rule{},
		&RuleApplication{},
		&SchedulerState{},
		&IngestionState{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	if err := installFTS(db); err != nil {
		return nil, fmt.Errorf("install full-text search: %w", err)
	}

	return db, nil
}

// Backup snapshots the live database to destPath using SQLite's atomic
// VACUUM INTO, the same mechanism the teacher's in-memory sync used to
// flush to disk (internal/db/db.go backgroundSync), repurposed here as the
// scheduler's daily-snapshot task (spec §4.G task 1).
func Backup(db *gorm.DB, destPath string) error {
	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
	}
	os.Remove(destPath)
	return db.Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)).Error
}
