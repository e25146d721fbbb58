package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"photogallery/internal/domain/gallery"
)

func Connect(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	log.Println("Using SQLite for local development:", dsn)

	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
	if err != nil {
		return nil, err
	}

	// SQLite serialises writers anyway; a single connection keeps every
	// statement on the same (possibly in-memory) database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Models lists every table owned by the gallery engine.
func Models() []any {
	return []any{
		&gallery.User{},
		&gallery.Gallery{},
		&gallery.Section{},
		&gallery.Photo{},
		&gallery.Video{},
		&gallery.Backup{},
		&gallery.ScrapedEventItem{},
		&gallery.DriveItem{},
		&gallery.SharedFolderItem{},
		&gallery.DriveCredential{},
	}
}

// Migrate creates or updates the schema, including the per-table
// (section_id, source_id) unique indexes of provider item tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, table := range gallery.ExternalTables() {
		stmt := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_section_source ON %s (section_id, source_id)",
			table, table,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create source index on %s: %w", table, err)
		}
	}
	return nil
}
