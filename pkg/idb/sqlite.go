package idb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS idb_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS idb_stores (
	name           TEXT PRIMARY KEY,
	key_path       TEXT,
	auto_increment INTEGER NOT NULL DEFAULT 0,
	next_key       REAL NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS idb_indexes (
	store      TEXT NOT NULL,
	name       TEXT NOT NULL,
	key_path   TEXT NOT NULL,
	is_unique  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (store, name)
);
CREATE TABLE IF NOT EXISTS idb_records (
	store TEXT NOT NULL,
	key   BLOB NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (store, key)
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS idb_index_entries (
	store       TEXT NOT NULL,
	idx         TEXT NOT NULL,
	key         BLOB NOT NULL,
	primary_key BLOB NOT NULL,
	is_unique   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (store, idx, key, primary_key)
) WITHOUT ROWID;
CREATE UNIQUE INDEX IF NOT EXISTS idb_index_entries_unique
	ON idb_index_entries (store, idx, key) WHERE is_unique = 1;
CREATE INDEX IF NOT EXISTS idb_index_entries_primary
	ON idb_index_entries (store, primary_key);
`

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// fileName maps a database name to a file name inside the data directory.
func fileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_") + ".sqlite"
}

// pools holds the writer and reader connection pools of one database.
// In-memory databases share a single connection for both.
type pools struct {
	writer *sql.DB
	reader *sql.DB
	memory bool
}

func openPools(ctx context.Context, name string, opts Options) (*pools, error) {
	if opts.Dir == "" {
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", url.PathEscape(name))
		db, err := openSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		return &pools{writer: db, reader: db, memory: true}, nil
	}

	path := filepath.Join(opts.Dir, fileName(name))
	base := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	writer, err := openSQLite(ctx, base+"&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	writer.SetMaxOpenConns(1)
	reader, err := openSQLite(ctx, base)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}
	if opts.MaxReaders > 0 {
		reader.SetMaxOpenConns(opts.MaxReaders)
	}
	return &pools{writer: writer, reader: reader}, nil
}

func openSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapError(NameUnknown, err, "open sqlite db")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wrapError(NameUnknown, err, "ping sqlite db")
	}
	return db, nil
}

func (p *pools) close() error {
	err := p.writer.Close()
	if !p.memory {
		err = errors.Join(err, p.reader.Close())
	}
	return err
}

func (p *pools) pool(mode Mode) *sql.DB {
	if mode == ReadWrite {
		return p.writer
	}
	return p.reader
}

// isConstraintError reports whether err is a sqlite uniqueness failure.
func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

// sqlError converts a driver error into an engine error.
func sqlError(err error, op string) *Error {
	if isConstraintError(err) {
		return wrapError(NameConstraint, err, "%s", op)
	}
	return wrapError(NameUnknown, err, "%s", op)
}
