package idb

import (
	"context"
	"database/sql"
	"sync"
)

// Mode is the access mode of a transaction.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "readonly"
	case ReadWrite:
		return "readwrite"
	}
	return "unknown"
}

// operation is one queued request body, run inside the SQL transaction.
type operation struct {
	req *Request
	run func(ctx context.Context, tx *sql.Tx) (any, error)
}

// Transaction groups requests against a fixed set of stores. It must be
// finished with Commit or Abort.
type Transaction struct {
	db    *Database
	id    uint64
	mode  Mode
	scope []string

	// started is guarded by the scheduler's mutex.
	started bool

	mu        sync.Mutex
	queue     []operation
	committed bool
	aborted   bool
	abortErr  error
	wake      chan struct{}

	done chan struct{}
	err  error
}

func newTransaction(db *Database, id uint64, mode Mode, scope []string) *Transaction {
	return &Transaction{
		db:    db,
		id:    id,
		mode:  mode,
		scope: scope,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Mode returns the transaction's access mode.
func (t *Transaction) Mode() Mode { return t.mode }

// Scope returns the names of the stores the transaction may touch.
func (t *Transaction) Scope() []string { return append([]string(nil), t.scope...) }

// ObjectStore returns the named store. The store must be in scope.
func (t *Transaction) ObjectStore(name string) (*ObjectStore, error) {
	for _, s := range t.scope {
		if s == name {
			return &ObjectStore{tx: t, meta: t.db.stores[name]}, nil
		}
	}
	return nil, newError(NameNotFound, "store %q is not in the transaction scope", name)
}

// Commit finishes the transaction once every queued request has run.
func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.aborted {
		return newError(NameInvalidState, "transaction is already finishing")
	}
	t.committed = true
	t.signal()
	return nil
}

// Abort rolls the transaction back. Queued requests fail with AbortError.
func (t *Transaction) Abort() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.aborted {
		return newError(NameInvalidState, "transaction is already finishing")
	}
	t.abortWith(newError(NameAbort, "transaction was aborted"))
	return nil
}

// Done is closed when the transaction has committed or aborted.
func (t *Transaction) Done() <-chan struct{} { return t.done }

// Err returns nil after a successful commit and the abort reason otherwise.
// It is only meaningful once Done is closed.
func (t *Transaction) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the transaction finishes or ctx is done. Cancelling
// ctx does not abort the transaction.
func (t *Transaction) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue adds a request body to the queue.
func (t *Transaction) enqueue(run func(ctx context.Context, tx *sql.Tx) (any, error)) *Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.aborted {
		return failedRequest(newError(NameAbort, "transaction was aborted"))
	}
	if t.committed {
		return failedRequest(newError(NameInvalidState, "transaction is finishing"))
	}
	req := newRequest()
	t.queue = append(t.queue, operation{req: req, run: run})
	t.signal()
	return req
}

// abortWith must be called with mu held.
func (t *Transaction) abortWith(err error) {
	t.aborted = true
	t.abortErr = err
	t.signal()
}

// abortUnlessCommitted is used by Database.Close.
func (t *Transaction) abortUnlessCommitted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.committed && !t.aborted {
		t.abortWith(newError(NameAbort, "connection is closing"))
	}
}

func (t *Transaction) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// run executes the transaction. It is started by the scheduler.
func (t *Transaction) run() {
	ctx := context.Background()

	t.mu.Lock()
	aborted := t.aborted
	t.mu.Unlock()
	if aborted {
		t.drainAborted()
		return
	}

	tx, err := t.db.pools.pool(t.mode).BeginTx(ctx, nil)
	if err != nil {
		t.mu.Lock()
		t.abortWith(sqlError(err, "begin transaction"))
		t.mu.Unlock()
		t.drainAborted()
		return
	}

	for {
		t.mu.Lock()
		for len(t.queue) == 0 && !t.committed && !t.aborted {
			t.mu.Unlock()
			<-t.wake
			t.mu.Lock()
		}

		if t.aborted {
			t.mu.Unlock()
			if err := tx.Rollback(); err != nil {
				t.db.log.Debug("rollback failed", "id", t.id, "error", err)
			}
			t.drainAborted()
			return
		}

		if len(t.queue) > 0 {
			op := t.queue[0]
			t.queue = t.queue[1:]
			t.mu.Unlock()

			result, err := op.run(ctx, tx)
			op.req.finish(result, err)
			if err != nil {
				t.mu.Lock()
				if !t.aborted {
					t.abortWith(wrapError(NameAbort, err, "request failed"))
				}
				t.mu.Unlock()
			}
			continue
		}

		t.mu.Unlock()
		if err := tx.Commit(); err != nil {
			t.complete(sqlError(err, "commit"))
			return
		}
		t.complete(nil)
		return
	}
}

// drainAborted fails every queued request and completes with the abort
// reason.
func (t *Transaction) drainAborted() {
	t.mu.Lock()
	queue := t.queue
	t.queue = nil
	reason := t.abortErr
	t.mu.Unlock()

	for _, op := range queue {
		op.req.finish(nil, newError(NameAbort, "transaction was aborted"))
	}
	t.complete(reason)
}

func (t *Transaction) complete(err error) {
	t.err = err
	if err != nil {
		t.db.log.Debug("transaction aborted", "id", t.id, "error", err)
	}
	close(t.done)
	t.db.sched.finish(t)
}
