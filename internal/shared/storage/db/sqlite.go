package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register the pure-Go sqlite driver
)

var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

// OpenSQLite opens (creating if needed) the file-backed database at path.
// Pragmas are set through the DSN so every pooled connection gets them.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("DATABASE_PATH is empty")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir: %w", err)
			}
		}
	}

	db, err := openDB("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	opts := Options{
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Hour,
	}
	if path == ":memory:" {
		// each connection would otherwise see its own empty database
		opts.MaxOpenConns, opts.MaxIdleConns = 1, 1
	}
	applyOptions(db, opts)
	if err := ping(ctx, db, 0); err != nil {
		db.Close()
		return nil, err
	}

	logPoolStats(db, "db.sqlite_init")
	return db, nil
}

func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}
