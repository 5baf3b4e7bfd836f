package idb

import (
	"context"
	"database/sql"
	"errors"
	"math"
)

// maxGeneratedKey is the largest key a generator hands out.
const maxGeneratedKey = 1 << 53

// ObjectStore is a store handle bound to one transaction.
type ObjectStore struct {
	tx   *Transaction
	meta *storeMeta
}

// Name returns the store name.
func (s *ObjectStore) Name() string { return s.meta.name }

// KeyPath returns the store's key path, or "" for out-of-line keys.
func (s *ObjectStore) KeyPath() string { return s.meta.keyPath }

// AutoIncrement reports whether the store has a key generator.
func (s *ObjectStore) AutoIncrement() bool { return s.meta.autoIncrement }

// IndexNames returns the store's index names in sorted order.
func (s *ObjectStore) IndexNames() []string { return sortedNames(s.meta.indexes) }

// Index returns the named index.
func (s *ObjectStore) Index(name string) (*Index, error) {
	ix, ok := s.meta.indexes[name]
	if !ok {
		return nil, newError(NameNotFound, "index %q does not exist on store %q", name, s.meta.name)
	}
	return &Index{store: s, meta: ix}, nil
}

// Add inserts value. The result is the record key. An existing key fails
// with ConstraintError. key must be omitted when the store has a key path.
func (s *ObjectStore) Add(value any, key ...Key) *Request {
	return s.write(value, key, true)
}

// Put inserts or replaces value. The result is the record key.
func (s *ObjectStore) Put(value any, key ...Key) *Request {
	return s.write(value, key, false)
}

// Get returns the first record matching query (a key or *KeyRange), or nil.
func (s *ObjectStore) Get(query any) *Request {
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	if query == nil {
		return failedRequest(newError(NameData, "get requires a key or key range"))
	}
	return s.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("key")
		var raw string
		err := tx.QueryRowContext(ctx,
			`SELECT value FROM idb_records WHERE store = ?`+cond+` ORDER BY key LIMIT 1`,
			append([]any{s.meta.name}, args...)...).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, sqlError(err, "get")
		}
		return decodeValue([]byte(raw))
	})
}

// GetAll returns the records matching query in key order. A nil query
// matches every record; count <= 0 means no limit. The result is a
// non-nil []any.
func (s *ObjectStore) GetAll(query any, count int) *Request {
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	return s.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("key")
		rows, err := tx.QueryContext(ctx,
			`SELECT value FROM idb_records WHERE store = ?`+cond+` ORDER BY key LIMIT ?`,
			append(append([]any{s.meta.name}, args...), limit(count))...)
		if err != nil {
			return nil, sqlError(err, "get all")
		}
		return scanValues(rows)
	})
}

// GetAllKeys returns the keys matching query in order as a []Key.
func (s *ObjectStore) GetAllKeys(query any, count int) *Request {
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	return s.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("key")
		rows, err := tx.QueryContext(ctx,
			`SELECT key FROM idb_records WHERE store = ?`+cond+` ORDER BY key LIMIT ?`,
			append(append([]any{s.meta.name}, args...), limit(count))...)
		if err != nil {
			return nil, sqlError(err, "get all keys")
		}
		return scanKeys(rows)
	})
}

// Count returns the number of records matching query as an int.
func (s *ObjectStore) Count(query any) *Request {
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	return s.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("key")
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM idb_records WHERE store = ?`+cond,
			append([]any{s.meta.name}, args...)...).Scan(&n)
		if err != nil {
			return nil, sqlError(err, "count")
		}
		return n, nil
	})
}

// Delete removes the records matching query. Deleting a missing key
// succeeds.
func (s *ObjectStore) Delete(query any) *Request {
	if err := s.writable(); err != nil {
		return failedRequest(err)
	}
	if query == nil {
		return failedRequest(newError(NameData, "delete requires a key or key range"))
	}
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	return s.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("key")
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM idb_index_entries WHERE store = ? AND primary_key IN
			 (SELECT key FROM idb_records WHERE store = ?`+cond+`)`,
			append([]any{s.meta.name, s.meta.name}, args...)...); err != nil {
			return nil, sqlError(err, "delete index entries")
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM idb_records WHERE store = ?`+cond,
			append([]any{s.meta.name}, args...)...); err != nil {
			return nil, sqlError(err, "delete")
		}
		return nil, nil
	})
}

// Clear removes every record. The key generator is not reset.
func (s *ObjectStore) Clear() *Request {
	if err := s.writable(); err != nil {
		return failedRequest(err)
	}
	return s.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM idb_index_entries WHERE store = ?`, s.meta.name); err != nil {
			return nil, sqlError(err, "clear index entries")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM idb_records WHERE store = ?`, s.meta.name); err != nil {
			return nil, sqlError(err, "clear")
		}
		return nil, nil
	})
}

func (s *ObjectStore) writable() error {
	if s.tx.mode != ReadWrite {
		return newError(NameReadOnly, "store %q is in a readonly transaction", s.meta.name)
	}
	return nil
}

// write validates synchronously and queues the insert. Validation failures
// fail the request without aborting the transaction.
func (s *ObjectStore) write(value any, keys []Key, noOverwrite bool) *Request {
	if err := s.writable(); err != nil {
		return failedRequest(err)
	}
	if len(keys) > 1 {
		return failedRequest(newError(NameType, "at most one key may be given"))
	}
	hasKey := len(keys) == 1
	if hasKey && s.meta.keyPath != "" {
		return failedRequest(newError(NameData, "store %q uses in-line keys; the key argument must be omitted", s.meta.name))
	}
	if !hasKey && s.meta.keyPath == "" && !s.meta.autoIncrement {
		return failedRequest(newError(NameData, "store %q has no key path and no key generator; a key is required", s.meta.name))
	}

	record, err := clone(value)
	if err != nil {
		return failedRequest(err)
	}

	var key Key
	generate := false
	switch {
	case hasKey:
		if key, err = NormalizeKey(keys[0]); err != nil {
			return failedRequest(err)
		}
	case s.meta.keyPath != "":
		v, ok := evaluateKeyPath(record, s.meta.keyPath)
		if ok {
			if key, err = NormalizeKey(v); err != nil {
				return failedRequest(newError(NameData, "value at key path %q is not a valid key", s.meta.keyPath))
			}
			break
		}
		if !s.meta.autoIncrement {
			return failedRequest(newError(NameData, "value has no key at key path %q", s.meta.keyPath))
		}
		if _, isObj := record.(map[string]any); !isObj {
			return failedRequest(newError(NameData, "cannot inject a generated key into a %s value", kindOf(record)))
		}
		generate = true
	default:
		generate = true
	}

	return s.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		return s.store(ctx, tx, record, key, generate, noOverwrite)
	})
}

func (s *ObjectStore) store(ctx context.Context, tx *sql.Tx, record any, key Key, generate, noOverwrite bool) (Key, error) {
	name := s.meta.name
	if generate {
		var next float64
		if err := tx.QueryRowContext(ctx, `SELECT next_key FROM idb_stores WHERE name = ?`, name).Scan(&next); err != nil {
			return nil, sqlError(err, "read key generator")
		}
		if next > maxGeneratedKey {
			return nil, newError(NameConstraint, "key generator of store %q is exhausted", name)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE idb_stores SET next_key = ? WHERE name = ?`, next+1, name); err != nil {
			return nil, sqlError(err, "advance key generator")
		}
		key = next
		if s.meta.keyPath != "" {
			if err := injectKey(record, s.meta.keyPath, key); err != nil {
				return nil, err
			}
		}
	} else if f, ok := key.(float64); ok && s.meta.autoIncrement {
		if _, err := tx.ExecContext(ctx,
			`UPDATE idb_stores SET next_key = ? WHERE name = ? AND next_key <= ?`,
			math.Floor(f)+1, name, f); err != nil {
			return nil, sqlError(err, "advance key generator")
		}
	}

	primary := encodeKey(key)
	raw, err := encodeValue(record)
	if err != nil {
		return nil, err
	}

	if noOverwrite {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO idb_records (store, key, value) VALUES (?, ?, ?)`, name, primary, raw); err != nil {
			if isConstraintError(err) {
				return nil, wrapError(NameConstraint, err, "a record with this key already exists in store %q", name)
			}
			return nil, sqlError(err, "add")
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM idb_index_entries WHERE store = ? AND primary_key = ?`, name, primary); err != nil {
			return nil, sqlError(err, "replace index entries")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO idb_records (store, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(store, key) DO UPDATE SET value = excluded.value`, name, primary, raw); err != nil {
			return nil, sqlError(err, "put")
		}
	}

	for _, ixName := range sortedNames(s.meta.indexes) {
		ix := s.meta.indexes[ixName]
		k, ok := indexKey(record, ix.keyPath)
		if !ok {
			continue
		}
		if err := insertIndexEntry(ctx, tx, name, ix, k, primary); err != nil {
			return nil, err
		}
	}
	return key, nil
}

// indexKey extracts and encodes the index key of a record. Records without
// a valid key at the path are not indexed.
func indexKey(record any, keyPath string) ([]byte, bool) {
	v, ok := evaluateKeyPath(record, keyPath)
	if !ok {
		return nil, false
	}
	k, err := NormalizeKey(v)
	if err != nil {
		return nil, false
	}
	return encodeKey(k), true
}

func insertIndexEntry(ctx context.Context, tx *sql.Tx, store string, ix *indexMeta, key, primary []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO idb_index_entries (store, idx, key, primary_key, is_unique) VALUES (?, ?, ?, ?, ?)`,
		store, ix.name, key, primary, ix.unique)
	if isConstraintError(err) {
		return wrapError(NameConstraint, err, "unique index %q already contains this key", ix.name)
	}
	if err != nil {
		return sqlError(err, "write index entry")
	}
	return nil
}

func limit(count int) int {
	if count <= 0 {
		return -1
	}
	return count
}

func scanValues(rows *sql.Rows) (any, error) {
	defer rows.Close()
	out := []any{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, sqlError(err, "scan value")
		}
		v, err := decodeValue([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlError(err, "scan values")
	}
	return out, nil
}

func scanKeys(rows *sql.Rows) (any, error) {
	defer rows.Close()
	out := []Key{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, sqlError(err, "scan key")
		}
		k, err := decodeKey(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlError(err, "scan keys")
	}
	return out, nil
}
