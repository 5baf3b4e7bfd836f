package idb

import (
	"context"
	"database/sql"
	"log/slog"
)

// StoreOptions configures a new object store.
type StoreOptions struct {
	// KeyPath names the record field holding the key. Empty means keys are
	// supplied out of line.
	KeyPath string

	// AutoIncrement attaches a key generator starting at 1.
	AutoIncrement bool
}

// IndexOptions configures a new index.
type IndexOptions struct {
	Unique bool
}

// UpgradeTx is the schema-changing transaction passed to an UpgradeFunc.
// It is only valid during the callback.
type UpgradeTx struct {
	ctx        context.Context
	tx         *sql.Tx
	oldVersion int
	newVersion int
	stores     map[string]*storeMeta
	log        *slog.Logger
}

// OldVersion is the version before the upgrade; 0 for a new database.
func (u *UpgradeTx) OldVersion() int { return u.oldVersion }

// NewVersion is the version being opened.
func (u *UpgradeTx) NewVersion() int { return u.newVersion }

// ObjectStoreNames returns the current store names in sorted order.
func (u *UpgradeTx) ObjectStoreNames() []string { return sortedNames(u.stores) }

// ObjectStore returns a schema handle for an existing store.
func (u *UpgradeTx) ObjectStore(name string) (*UpgradeStore, error) {
	m, ok := u.stores[name]
	if !ok {
		return nil, newError(NameNotFound, "store %q does not exist", name)
	}
	return &UpgradeStore{u: u, meta: m}, nil
}

// CreateObjectStore adds a store. An existing name fails with
// ConstraintError.
func (u *UpgradeTx) CreateObjectStore(name string, opts StoreOptions) (*UpgradeStore, error) {
	if _, ok := u.stores[name]; ok {
		return nil, newError(NameConstraint, "store %q already exists", name)
	}
	if opts.KeyPath != "" && !ValidKeyPath(opts.KeyPath) {
		return nil, newError(NameData, "invalid key path %q", opts.KeyPath)
	}

	var keyPath any
	if opts.KeyPath != "" {
		keyPath = opts.KeyPath
	}
	if _, err := u.tx.ExecContext(u.ctx,
		`INSERT INTO idb_stores (name, key_path, auto_increment, next_key) VALUES (?, ?, ?, 1)`,
		name, keyPath, opts.AutoIncrement); err != nil {
		return nil, sqlError(err, "create store")
	}

	m := &storeMeta{
		name:          name,
		keyPath:       opts.KeyPath,
		autoIncrement: opts.AutoIncrement,
		indexes:       make(map[string]*indexMeta),
	}
	u.stores[name] = m
	u.log.Debug("created object store", "store", name, "key_path", opts.KeyPath, "auto_increment", opts.AutoIncrement)
	return &UpgradeStore{u: u, meta: m}, nil
}

// DeleteObjectStore drops a store with its records and indexes.
func (u *UpgradeTx) DeleteObjectStore(name string) error {
	if _, ok := u.stores[name]; !ok {
		return newError(NameNotFound, "store %q does not exist", name)
	}
	for _, stmt := range []string{
		`DELETE FROM idb_index_entries WHERE store = ?`,
		`DELETE FROM idb_records WHERE store = ?`,
		`DELETE FROM idb_indexes WHERE store = ?`,
		`DELETE FROM idb_stores WHERE name = ?`,
	} {
		if _, err := u.tx.ExecContext(u.ctx, stmt, name); err != nil {
			return sqlError(err, "delete store")
		}
	}
	delete(u.stores, name)
	u.log.Debug("deleted object store", "store", name)
	return nil
}

// UpgradeStore is a store handle valid during an upgrade.
type UpgradeStore struct {
	u    *UpgradeTx
	meta *storeMeta
}

// Name returns the store name.
func (s *UpgradeStore) Name() string { return s.meta.name }

// KeyPath returns the store's key path, or "" for out-of-line keys.
func (s *UpgradeStore) KeyPath() string { return s.meta.keyPath }

// AutoIncrement reports whether the store has a key generator.
func (s *UpgradeStore) AutoIncrement() bool { return s.meta.autoIncrement }

// IndexNames returns the store's index names in sorted order.
func (s *UpgradeStore) IndexNames() []string { return sortedNames(s.meta.indexes) }

// CreateIndex adds an index and fills it from existing records. An existing
// name fails with ConstraintError, as does a unique index over records
// that already share a key.
func (s *UpgradeStore) CreateIndex(name, keyPath string, opts IndexOptions) error {
	if _, ok := s.meta.indexes[name]; ok {
		return newError(NameConstraint, "index %q already exists on store %q", name, s.meta.name)
	}
	if keyPath == "" || !ValidKeyPath(keyPath) {
		return newError(NameData, "invalid key path %q", keyPath)
	}

	ctx, tx := s.u.ctx, s.u.tx
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO idb_indexes (store, name, key_path, is_unique) VALUES (?, ?, ?, ?)`,
		s.meta.name, name, keyPath, opts.Unique); err != nil {
		return sqlError(err, "create index")
	}
	ix := &indexMeta{name: name, keyPath: keyPath, unique: opts.Unique}

	rows, err := tx.QueryContext(ctx, `SELECT key, value FROM idb_records WHERE store = ?`, s.meta.name)
	if err != nil {
		return sqlError(err, "scan records")
	}
	type entry struct{ key, primary []byte }
	var entries []entry
	for rows.Next() {
		var primary []byte
		var raw string
		if err := rows.Scan(&primary, &raw); err != nil {
			_ = rows.Close()
			return sqlError(err, "scan record")
		}
		value, err := decodeValue([]byte(raw))
		if err != nil {
			_ = rows.Close()
			return err
		}
		if k, ok := indexKey(value, ix.keyPath); ok {
			entries = append(entries, entry{key: k, primary: primary})
		}
	}
	if err := rows.Close(); err != nil {
		return sqlError(err, "scan records")
	}

	for _, e := range entries {
		if err := insertIndexEntry(ctx, tx, s.meta.name, ix, e.key, e.primary); err != nil {
			return err
		}
	}

	s.meta.indexes[name] = ix
	s.u.log.Debug("created index", "store", s.meta.name, "index", name, "key_path", keyPath, "unique", opts.Unique)
	return nil
}

// DeleteIndex drops an index.
func (s *UpgradeStore) DeleteIndex(name string) error {
	if _, ok := s.meta.indexes[name]; !ok {
		return newError(NameNotFound, "index %q does not exist on store %q", name, s.meta.name)
	}
	ctx, tx := s.u.ctx, s.u.tx
	if _, err := tx.ExecContext(ctx, `DELETE FROM idb_index_entries WHERE store = ? AND idx = ?`, s.meta.name, name); err != nil {
		return sqlError(err, "delete index")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM idb_indexes WHERE store = ? AND name = ?`, s.meta.name, name); err != nil {
		return sqlError(err, "delete index")
	}
	delete(s.meta.indexes, name)
	return nil
}
