package webdb

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/chatui/internal/errors"
	"github.com/vango-dev/chatui/pkg/idb"
)

const tracerName = "github.com/vango-dev/chatui/pkg/webdb"

// DB is an open database handle. It is safe for concurrent use.
type DB struct {
	conn    *idb.Database
	name    string
	log     *slog.Logger
	metrics *metrics
	tracer  trace.Tracer

	mu     sync.RWMutex
	closed bool
}

// Open opens (creating or upgrading as needed) the named database at
// version. When the stored version is lower, every declared store that is
// missing is created with its indexes. Stores that already exist are never
// dropped or altered, and indexes newly declared on them are ignored.
// Opening with an unchanged version leaves the schema untouched.
func Open(ctx context.Context, name string, version int, stores []StoreDefinition, opts ...Option) (*DB, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if version < 1 {
		return nil, errors.New("E111").WithDetailf("got version %d", version)
	}
	if err := validateStores(stores); err != nil {
		return nil, err
	}

	log := o.logger.With("component", "webdb", "database", name)
	tracer := o.tracerProvider.Tracer(tracerName)

	ctx, span := tracer.Start(ctx, "webdb.Open", trace.WithAttributes(
		attribute.String("db.name", name),
		attribute.Int("db.version", version),
	))
	defer span.End()

	var created []string
	conn, err := idb.Open(ctx, name, version, defineStores(stores, &created), idb.Options{
		Dir:        o.dir,
		MaxReaders: o.maxReaders,
		Logger:     o.logger,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("open failed", "version", version, "error", err)
		return nil, err
	}
	if len(created) > 0 {
		log.Info("schema upgraded", "version", version, "created", created)
	}
	log.Debug("database opened", "version", version, "stores", conn.ObjectStoreNames())

	db := &DB{
		conn:    conn,
		name:    name,
		log:     log,
		metrics: newMetrics(o.registerer),
		tracer:  tracer,
	}
	db.metrics.opened()
	return db, nil
}

// Name returns the database name.
func (db *DB) Name() string { return db.name }

// Version returns the version the database was opened at.
func (db *DB) Version() int { return db.conn.Version() }

// StoreNames returns the names of every store in sorted order.
func (db *DB) StoreNames() []string { return db.conn.ObjectStoreNames() }

// StoreInfo describes the named store.
func (db *DB) StoreInfo(store string) (idb.StoreInfo, bool) { return db.conn.ObjectStoreInfo(store) }

// AddData inserts record into store and returns its key. key is only
// given for stores without a key path. An existing key fails with
// ConstraintError.
func (db *DB) AddData(ctx context.Context, store string, record any, key ...idb.Key) (idb.Key, error) {
	return db.do(ctx, "AddData", store, idb.ReadWrite, func(s *idb.ObjectStore) *idb.Request {
		return s.Add(record, key...)
	})
}

// GetData returns the record stored under key, or nil when there is none.
func (db *DB) GetData(ctx context.Context, store string, key idb.Key) (any, error) {
	return db.do(ctx, "GetData", store, idb.ReadOnly, func(s *idb.ObjectStore) *idb.Request {
		return s.Get(key)
	})
}

// UpdateData inserts or replaces record and returns its key.
func (db *DB) UpdateData(ctx context.Context, store string, record any, key ...idb.Key) (idb.Key, error) {
	return db.do(ctx, "UpdateData", store, idb.ReadWrite, func(s *idb.ObjectStore) *idb.Request {
		return s.Put(record, key...)
	})
}

// DeleteData removes the record stored under key. A missing key is not an
// error.
func (db *DB) DeleteData(ctx context.Context, store string, key idb.Key) error {
	_, err := db.do(ctx, "DeleteData", store, idb.ReadWrite, func(s *idb.ObjectStore) *idb.Request {
		return s.Delete(key)
	})
	return err
}

// ClearData removes every record from store.
func (db *DB) ClearData(ctx context.Context, store string) error {
	_, err := db.do(ctx, "ClearData", store, idb.ReadWrite, func(s *idb.ObjectStore) *idb.Request {
		return s.Clear()
	})
	return err
}

// GetAllData returns every record of store in key order. An empty store
// yields an empty, non-nil slice.
func (db *DB) GetAllData(ctx context.Context, store string) ([]any, error) {
	res, err := db.do(ctx, "GetAllData", store, idb.ReadOnly, func(s *idb.ObjectStore) *idb.Request {
		return s.GetAll(nil, 0)
	})
	if err != nil {
		return nil, err
	}
	return res.([]any), nil
}

// Entry is one stored record with its primary key.
type Entry struct {
	Key   idb.Key `json:"key"`
	Value any     `json:"value"`
}

// GetAllEntries returns every record of store with its key, in key order,
// read in one transaction.
func (db *DB) GetAllEntries(ctx context.Context, store string) ([]Entry, error) {
	var keysReq *idb.Request
	res, err := db.do(ctx, "GetAllEntries", store, idb.ReadOnly, func(s *idb.ObjectStore) *idb.Request {
		keysReq = s.GetAllKeys(nil, 0)
		return s.GetAll(nil, 0)
	})
	if err != nil {
		return nil, err
	}
	keys, err := keysReq.Result()
	if err != nil {
		return nil, err
	}

	values, ks := res.([]any), keys.([]idb.Key)
	entries := make([]Entry, len(values))
	for i := range values {
		entries[i] = Entry{Key: ks[i], Value: values[i]}
	}
	return entries, nil
}

// GetAllByIndex returns the records whose index key matches query (a key,
// an *idb.KeyRange, or nil for all), ordered by index key then primary key.
func (db *DB) GetAllByIndex(ctx context.Context, store, index string, query any) ([]any, error) {
	res, err := db.do(ctx, "GetAllByIndex", store, idb.ReadOnly, func(s *idb.ObjectStore) *idb.Request {
		ix, err := s.Index(index)
		if err != nil {
			return idb.FailedRequest(err)
		}
		return ix.GetAll(query, 0)
	})
	if err != nil {
		return nil, err
	}
	return res.([]any), nil
}

// CountData returns the number of records in store.
func (db *DB) CountData(ctx context.Context, store string) (int, error) {
	res, err := db.do(ctx, "CountData", store, idb.ReadOnly, func(s *idb.ObjectStore) *idb.Request {
		return s.Count(nil)
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// Close releases the connection. Later operations fail with E110.
// Close is idempotent.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	db.metrics.closed()
	db.log.Debug("database closed")
	return db.conn.Close()
}

// do runs one request in a fresh single-store transaction and waits for
// the transaction to finish.
func (db *DB) do(ctx context.Context, op, store string, mode idb.Mode, issue func(*idb.ObjectStore) *idb.Request) (res any, err error) {
	ctx, span := db.tracer.Start(ctx, "webdb."+op, trace.WithAttributes(
		attribute.String("db.name", db.name),
		attribute.String("db.store", store),
		attribute.String("db.mode", mode.String()),
	))
	start := time.Now()
	defer func() {
		db.metrics.observe(db.name, store, op, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := db.begin(mode, store)
	if err != nil {
		return nil, err
	}
	s, err := tx.ObjectStore(store)
	if err != nil {
		_ = tx.Abort()
		return nil, err
	}
	req := issue(s)
	_ = tx.Commit()

	res, err = req.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err := tx.Wait(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func (db *DB) begin(mode idb.Mode, store string) (*idb.Transaction, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, errors.New("E110").WithDetailf("database %q was closed", db.name)
	}
	return db.conn.Transaction(mode, store)
}
