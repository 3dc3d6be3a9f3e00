package engine

import (
	"database/sql"
	"net/url"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Option configures Open.
type Option func(*config)

type config struct {
	pragmas      []string
	maxOpenConns int
}

// WithPragma runs "PRAGMA <pragma>" on every new connection, for example
// WithPragma("busy_timeout(5000)") or WithPragma("journal_mode(WAL)").
func WithPragma(pragma string) Option {
	return func(c *config) { c.pragmas = append(c.pragmas, pragma) }
}

// WithMaxOpenConns limits the connection pool. In-memory databases are private
// to one connection, so ":memory:" needs a limit of 1 to behave as a single
// database.
func WithMaxOpenConns(n int) Option {
	return func(c *config) { c.maxOpenConns = n }
}

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./db.sqlite". For in-memory
// databases, pass ":memory:".
func Open(dsn string, opts ...Option) (*sql.DB, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	db, err := sql.Open(DriverName, DSN(dsn, cfg.pragmas...))
	if err != nil {
		return nil, err
	}
	if cfg.maxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.maxOpenConns)
	}
	return db, nil
}

// DSN appends _pragma query parameters understood by the driver to dsn.
func DSN(dsn string, pragmas ...string) string {
	if len(pragmas) == 0 {
		return dsn
	}
	q := url.Values{"_pragma": pragmas}.Encode()
	if strings.Contains(dsn, "?") {
		return dsn + "&" + q
	}
	return dsn + "?" + q
}
