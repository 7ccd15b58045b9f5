package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// database/sql drivers
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const dsnTemplate = "user=%s password=%s host=%s dbname=%s sslmode=disable"

// PostgresDSN builds a lib/pq connection string from its parts.
func PostgresDSN(host, user, password, dbname string) string {
	return fmt.Sprintf(dsnTemplate, user, password, host, dbname)
}

// OpenSQLite opens (creating if needed) and migrates a SQLite database file.
func OpenSQLite(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := open(SQLite, dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	return NewSQLRepository(db, SQLite), nil
}

// OpenPostgres connects to and migrates a Postgres database.
func OpenPostgres(dsn string) (*SQLRepository, error) {
	db, err := open(Postgres, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewSQLRepository(db, Postgres), nil
}

func open(dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect.Name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}
