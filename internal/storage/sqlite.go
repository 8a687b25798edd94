package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DB wraps the SQL connection behind the rectangles endpoint.
type DB struct {
	conn   *sql.DB
	driver string
}

// New opens (or creates) the SQLite file at dbPath.
func New(dbPath string) (*DB, error) {
	return Open(DriverSQLite, dbPath)
}

// Open connects with driver and runs migrations. For sqlite, dsn is a
// file path.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	case DriverMySQL:
		if !strings.Contains(dsn, "parseTime=") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite only supports one writer: limit to single connection to prevent SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the driver name the DB was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) migrations() []string {
	switch db.driver {
	case DriverPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS rectangles (
				seq BIGSERIAL PRIMARY KEY,
				id TEXT NOT NULL UNIQUE,
				page INTEGER NOT NULL,
				x DOUBLE PRECISION NOT NULL,
				y DOUBLE PRECISION NOT NULL,
				width DOUBLE PRECISION NOT NULL,
				height DOUBLE PRECISION NOT NULL,
				color TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_rectangles_page ON rectangles(page)`,
		}
	case DriverMySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS rectangles (
				seq BIGINT AUTO_INCREMENT PRIMARY KEY,
				id VARCHAR(36) NOT NULL UNIQUE,
				page INT NOT NULL,
				x DOUBLE NOT NULL,
				y DOUBLE NOT NULL,
				width DOUBLE NOT NULL,
				height DOUBLE NOT NULL,
				color VARCHAR(64) NOT NULL DEFAULT '',
				created_at DATETIME(6) NOT NULL,
				INDEX idx_rectangles_page (page)
			)`,
		}
	default:
		return []string{
			`CREATE TABLE IF NOT EXISTS rectangles (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				page INTEGER NOT NULL,
				x REAL NOT NULL,
				y REAL NOT NULL,
				width REAL NOT NULL,
				height REAL NOT NULL,
				color TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_rectangles_page ON rectangles(page)`,
		}
	}
}

func (db *DB) migrate() error {
	for _, m := range db.migrations() {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", strings.TrimSpace(m)[:40], err)
		}
	}
	return nil
}
