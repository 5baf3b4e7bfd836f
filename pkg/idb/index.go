package idb

import (
	"context"
	"database/sql"
	"errors"
)

// Index queries a store through a secondary key. Results are ordered by
// index key, then by primary key.
type Index struct {
	store *ObjectStore
	meta  *indexMeta
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.meta.name }

// KeyPath returns the indexed key path.
func (ix *Index) KeyPath() string { return ix.meta.keyPath }

// Unique reports whether the index rejects duplicate keys.
func (ix *Index) Unique() bool { return ix.meta.unique }

const indexJoin = ` FROM idb_index_entries e
	JOIN idb_records r ON r.store = e.store AND r.key = e.primary_key
	WHERE e.store = ? AND e.idx = ?`

// Get returns the first record whose index key matches query, or nil.
func (ix *Index) Get(query any) *Request {
	if query == nil {
		return failedRequest(newError(NameData, "get requires a key or key range"))
	}
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	return ix.store.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("e.key")
		var raw string
		err := tx.QueryRowContext(ctx,
			`SELECT r.value`+indexJoin+cond+` ORDER BY e.key, e.primary_key LIMIT 1`,
			ix.args(args)...).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, sqlError(err, "index get")
		}
		return decodeValue([]byte(raw))
	})
}

// GetKey returns the primary key of the first match, or nil.
func (ix *Index) GetKey(query any) *Request {
	if query == nil {
		return failedRequest(newError(NameData, "get requires a key or key range"))
	}
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	return ix.store.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("e.key")
		var raw []byte
		err := tx.QueryRowContext(ctx,
			`SELECT e.primary_key FROM idb_index_entries e WHERE e.store = ? AND e.idx = ?`+cond+
				` ORDER BY e.key, e.primary_key LIMIT 1`,
			ix.args(args)...).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, sqlError(err, "index get key")
		}
		return decodeKey(raw)
	})
}

// GetAll returns every record whose index key matches query as a []any.
func (ix *Index) GetAll(query any, count int) *Request {
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	return ix.store.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("e.key")
		rows, err := tx.QueryContext(ctx,
			`SELECT r.value`+indexJoin+cond+` ORDER BY e.key, e.primary_key LIMIT ?`,
			append(ix.args(args), limit(count))...)
		if err != nil {
			return nil, sqlError(err, "index get all")
		}
		return scanValues(rows)
	})
}

// GetAllKeys returns the primary keys of every match as a []Key.
func (ix *Index) GetAllKeys(query any, count int) *Request {
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	return ix.store.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("e.key")
		rows, err := tx.QueryContext(ctx,
			`SELECT e.primary_key FROM idb_index_entries e WHERE e.store = ? AND e.idx = ?`+cond+
				` ORDER BY e.key, e.primary_key LIMIT ?`,
			append(ix.args(args), limit(count))...)
		if err != nil {
			return nil, sqlError(err, "index get all keys")
		}
		return scanKeys(rows)
	})
}

// Count returns the number of index entries matching query as an int.
func (ix *Index) Count(query any) *Request {
	r, err := toRange(query)
	if err != nil {
		return failedRequest(err)
	}
	return ix.store.tx.enqueue(func(ctx context.Context, tx *sql.Tx) (any, error) {
		cond, args := r.where("e.key")
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM idb_index_entries e WHERE e.store = ? AND e.idx = ?`+cond,
			ix.args(args)...).Scan(&n)
		if err != nil {
			return nil, sqlError(err, "index count")
		}
		return n, nil
	})
}

func (ix *Index) args(rangeArgs []any) []any {
	return append([]any{ix.store.meta.name, ix.meta.name}, rangeArgs...)
}
