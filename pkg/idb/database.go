package idb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
)

// UpgradeFunc changes the schema when a database is opened with a newer
// version. Returning an error aborts the upgrade and the open.
type UpgradeFunc func(up *UpgradeTx) error

// Database is an open connection to one named database.
type Database struct {
	name    string
	version int
	pools   *pools
	sched   *scheduler
	log     *slog.Logger

	// stores is fixed after Open.
	stores map[string]*storeMeta

	mu     sync.RWMutex
	closed bool
	nextID atomic.Uint64
}

type storeMeta struct {
	name          string
	keyPath       string
	autoIncrement bool
	indexes       map[string]*indexMeta
}

type indexMeta struct {
	name    string
	keyPath string
	unique  bool
}

// StoreInfo describes an object store.
type StoreInfo struct {
	Name          string
	KeyPath       string
	AutoIncrement bool
	Indexes       []IndexInfo
}

// IndexInfo describes an index.
type IndexInfo struct {
	Name    string
	KeyPath string
	Unique  bool
}

// Open opens the named database at version, running upgrade first when
// the stored version is lower (a new database has version 0). Opening with
// a lower version than the stored one fails with VersionError.
func Open(ctx context.Context, name string, version int, upgrade UpgradeFunc, opts Options) (*Database, error) {
	if name == "" {
		return nil, newError(NameType, "database name is empty")
	}
	if version < 1 {
		return nil, newError(NameType, "version %d is not a positive integer", version)
	}
	log := opts.logger().With("database", name)

	p, err := openPools(ctx, name, opts)
	if err != nil {
		return nil, err
	}

	db := &Database{
		name:    name,
		version: version,
		pools:   p,
		log:     log,
		sched:   &scheduler{serial: p.memory, log: log},
	}
	if err := db.init(ctx, upgrade); err != nil {
		_ = p.close()
		return nil, err
	}
	return db, nil
}

func (db *Database) init(ctx context.Context, upgrade UpgradeFunc) error {
	if _, err := db.pools.writer.ExecContext(ctx, schema); err != nil {
		return sqlError(err, "create engine schema")
	}

	tx, err := db.pools.writer.BeginTx(ctx, nil)
	if err != nil {
		return sqlError(err, "begin open transaction")
	}
	defer func() { _ = tx.Rollback() }()

	old, err := storedVersion(ctx, tx)
	if err != nil {
		return err
	}
	if db.version < old {
		return newError(NameVersion, "requested version %d is less than the existing version %d", db.version, old)
	}

	stores, err := loadStores(ctx, tx)
	if err != nil {
		return err
	}

	if db.version > old {
		db.log.Info("upgrading database", "old_version", old, "new_version", db.version)
		up := &UpgradeTx{ctx: ctx, tx: tx, oldVersion: old, newVersion: db.version, stores: stores, log: db.log}
		if upgrade != nil {
			if err := upgrade(up); err != nil {
				var ierr *Error
				if errors.As(err, &ierr) && ierr.Name == NameAbort {
					return err
				}
				return wrapError(NameAbort, err, "upgrade failed")
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO idb_meta (key, value) VALUES ('version', ?), ('name', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			strconv.Itoa(db.version), db.name); err != nil {
			return sqlError(err, "store version")
		}
	}

	if err := tx.Commit(); err != nil {
		return sqlError(err, "commit open transaction")
	}
	db.stores = stores
	return nil
}

func storedVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT value FROM idb_meta WHERE key = 'version'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, sqlError(err, "read version")
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, wrapError(NameUnknown, err, "stored version %q is corrupt", raw)
	}
	return v, nil
}

func loadStores(ctx context.Context, tx *sql.Tx) (map[string]*storeMeta, error) {
	stores := make(map[string]*storeMeta)

	rows, err := tx.QueryContext(ctx, `SELECT name, COALESCE(key_path, ''), auto_increment FROM idb_stores`)
	if err != nil {
		return nil, sqlError(err, "load stores")
	}
	for rows.Next() {
		m := &storeMeta{indexes: make(map[string]*indexMeta)}
		if err := rows.Scan(&m.name, &m.keyPath, &m.autoIncrement); err != nil {
			_ = rows.Close()
			return nil, sqlError(err, "scan store")
		}
		stores[m.name] = m
	}
	if err := rows.Close(); err != nil {
		return nil, sqlError(err, "load stores")
	}

	rows, err = tx.QueryContext(ctx, `SELECT store, name, key_path, is_unique FROM idb_indexes`)
	if err != nil {
		return nil, sqlError(err, "load indexes")
	}
	defer rows.Close()
	for rows.Next() {
		var store string
		ix := &indexMeta{}
		if err := rows.Scan(&store, &ix.name, &ix.keyPath, &ix.unique); err != nil {
			return nil, sqlError(err, "scan index")
		}
		if m, ok := stores[store]; ok {
			m.indexes[ix.name] = ix
		}
	}
	if err := rows.Err(); err != nil {
		return nil, sqlError(err, "load indexes")
	}
	return stores, nil
}

// Name returns the database name.
func (db *Database) Name() string { return db.name }

// Version returns the version the database was opened at.
func (db *Database) Version() int { return db.version }

// ObjectStoreNames returns the store names in sorted order.
func (db *Database) ObjectStoreNames() []string {
	return sortedNames(db.stores)
}

// ObjectStoreInfo describes the named store.
func (db *Database) ObjectStoreInfo(name string) (StoreInfo, bool) {
	m, ok := db.stores[name]
	if !ok {
		return StoreInfo{}, false
	}
	info := StoreInfo{Name: m.name, KeyPath: m.keyPath, AutoIncrement: m.autoIncrement}
	for _, ixName := range sortedNames(m.indexes) {
		ix := m.indexes[ixName]
		info.Indexes = append(info.Indexes, IndexInfo{Name: ix.name, KeyPath: ix.keyPath, Unique: ix.unique})
	}
	return info, true
}

// Transaction creates a transaction over stores. It is queued immediately
// and starts once no earlier conflicting transaction is live.
func (db *Database) Transaction(mode Mode, stores ...string) (*Transaction, error) {
	if mode != ReadOnly && mode != ReadWrite {
		return nil, newError(NameType, "invalid transaction mode %d", mode)
	}
	if len(stores) == 0 {
		return nil, newError(NameInvalidAccess, "transaction scope is empty")
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, newError(NameInvalidState, "database connection is closed")
	}

	seen := make(map[string]bool, len(stores))
	scope := make([]string, 0, len(stores))
	for _, name := range stores {
		if _, ok := db.stores[name]; !ok {
			return nil, newError(NameNotFound, "store %q does not exist", name)
		}
		if !seen[name] {
			seen[name] = true
			scope = append(scope, name)
		}
	}
	sort.Strings(scope)

	t := newTransaction(db, db.nextID.Add(1), mode, scope)
	db.sched.add(t)
	return t, nil
}

// Close stops new transactions, aborts live ones that were never
// committed, waits for the rest to finish and releases the connections.
// Close is idempotent.
func (db *Database) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	live := db.sched.snapshot()
	for _, t := range live {
		t.abortUnlessCommitted()
	}
	for _, t := range live {
		<-t.done
	}
	db.sched.wait()

	if err := db.pools.close(); err != nil {
		return wrapError(NameUnknown, err, "close sqlite db")
	}
	db.log.Debug("database closed")
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
