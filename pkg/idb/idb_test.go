package idb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func chatSchema(up *UpgradeTx) error {
	sessions, err := up.CreateObjectStore("sessions", StoreOptions{KeyPath: "id", AutoIncrement: true})
	if err != nil {
		return err
	}
	if err := sessions.CreateIndex("title", "title", IndexOptions{}); err != nil {
		return err
	}
	if _, err := up.CreateObjectStore("kv", StoreOptions{}); err != nil {
		return err
	}
	users, err := up.CreateObjectStore("users", StoreOptions{KeyPath: "id"})
	if err != nil {
		return err
	}
	return users.CreateIndex("email", "email", IndexOptions{Unique: true})
}

func openTest(t *testing.T, dir string) *Database {
	t.Helper()
	db, err := Open(context.Background(), "test", 1, chatSchema, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// do runs fn in a transaction, commits and returns the last request's
// result.
func do(t *testing.T, db *Database, mode Mode, store string, fn func(s *ObjectStore) *Request) (any, error) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.Transaction(mode, store)
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	s, err := tx.ObjectStore(store)
	if err != nil {
		t.Fatalf("ObjectStore: %v", err)
	}
	req := fn(s)
	_ = tx.Commit()
	res, reqErr := req.Wait(ctx)
	if err := tx.Wait(ctx); err != nil && reqErr == nil {
		return nil, err
	}
	return res, reqErr
}

func TestOpenCreatesSchema(t *testing.T) {
	db := openTest(t, t.TempDir())

	if diff := cmp.Diff([]string{"kv", "sessions", "users"}, db.ObjectStoreNames()); diff != "" {
		t.Errorf("stores (-want +got):\n%s", diff)
	}
	info, ok := db.ObjectStoreInfo("sessions")
	if !ok {
		t.Fatal("sessions missing")
	}
	want := StoreInfo{
		Name: "sessions", KeyPath: "id", AutoIncrement: true,
		Indexes: []IndexInfo{{Name: "title", KeyPath: "title"}},
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("info (-want +got):\n%s", diff)
	}
}

func TestReopenSkipsUpgrade(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(ctx, "test", 1, chatSchema, Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := do(t, db, ReadWrite, "kv", func(s *ObjectStore) *Request { return s.Put("v", "k") }); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	called := false
	db, err = Open(ctx, "test", 1, func(*UpgradeTx) error { called = true; return nil }, Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if called {
		t.Error("upgrade ran for an unchanged version")
	}
	got, err := do(t, db, ReadOnly, "kv", func(s *ObjectStore) *Request { return s.Get("k") })
	if err != nil || got != "v" {
		t.Errorf("Get after reopen = %v, %v", got, err)
	}
}

func TestOpenVersions(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(ctx, "v", 2, chatSchema, Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := Open(ctx, "v", 1, nil, Options{Dir: dir}); !errors.Is(err, ErrVersion) {
		t.Errorf("lower version err = %v, want VersionError", err)
	}
	if _, err := Open(ctx, "v", 0, nil, Options{Dir: dir}); !errors.Is(err, ErrType) {
		t.Errorf("zero version err = %v, want TypeError", err)
	}

	var oldV, newV int
	db, err = Open(ctx, "v", 3, func(up *UpgradeTx) error {
		oldV, newV = up.OldVersion(), up.NewVersion()
		if _, err := up.CreateObjectStore("kv", StoreOptions{}); !errors.Is(err, ErrConstraint) {
			t.Errorf("duplicate store err = %v", err)
		}
		return up.DeleteObjectStore("users")
	}, Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if oldV != 2 || newV != 3 {
		t.Errorf("versions = %d -> %d, want 2 -> 3", oldV, newV)
	}
	if diff := cmp.Diff([]string{"kv", "sessions"}, db.ObjectStoreNames()); diff != "" {
		t.Errorf("stores (-want +got):\n%s", diff)
	}
}

func TestFailedUpgradeRollsBack(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Open(ctx, "u", 1, func(up *UpgradeTx) error {
		if _, err := up.CreateObjectStore("a", StoreOptions{}); err != nil {
			return err
		}
		return boom
	}, Options{Dir: dir})
	if !errors.Is(err, ErrAbort) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want AbortError wrapping boom", err)
	}

	db, err := Open(ctx, "u", 1, nil, Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if n := len(db.ObjectStoreNames()); n != 0 {
		t.Errorf("stores after failed upgrade = %d", n)
	}
}

func TestAutoIncrementInjectsKey(t *testing.T) {
	db := openTest(t, t.TempDir())

	for i, title := range []string{"first", "second"} {
		key, err := do(t, db, ReadWrite, "sessions", func(s *ObjectStore) *Request {
			return s.Add(map[string]any{"title": title})
		})
		if err != nil {
			t.Fatal(err)
		}
		if key != float64(i+1) {
			t.Errorf("key %d = %v, want %d", i, key, i+1)
		}
	}

	all, err := do(t, db, ReadOnly, "sessions", func(s *ObjectStore) *Request { return s.GetAll(nil, 0) })
	if err != nil {
		t.Fatal(err)
	}
	want := []any{
		map[string]any{"id": 1.0, "title": "first"},
		map[string]any{"id": 2.0, "title": "second"},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("GetAll (-want +got):\n%s", diff)
	}
}

func TestExplicitKeyAdvancesGenerator(t *testing.T) {
	db := openTest(t, t.TempDir())
	add := func(rec map[string]any) any {
		key, err := do(t, db, ReadWrite, "sessions", func(s *ObjectStore) *Request { return s.Add(rec) })
		if err != nil {
			t.Fatal(err)
		}
		return key
	}
	add(map[string]any{"id": 10.5})
	if got := add(map[string]any{}); got != 11.0 {
		t.Errorf("generated after 10.5 = %v, want 11", got)
	}
	add(map[string]any{"id": 3})
	if got := add(map[string]any{}); got != 12.0 {
		t.Errorf("generated after lower explicit key = %v, want 12", got)
	}
}

func TestWriteValidation(t *testing.T) {
	db := openTest(t, t.TempDir())

	tests := []struct {
		name  string
		store string
		fn    func(s *ObjectStore) *Request
		want  error
	}{
		{"key with in-line store", "users", func(s *ObjectStore) *Request { return s.Add(map[string]any{"id": 1}, 1) }, ErrData},
		{"missing in-line key", "users", func(s *ObjectStore) *Request { return s.Add(map[string]any{"name": "x"}) }, ErrData},
		{"missing out-of-line key", "kv", func(s *ObjectStore) *Request { return s.Add("v") }, ErrData},
		{"invalid key", "kv", func(s *ObjectStore) *Request { return s.Put("v", true) }, ErrData},
		{"uncloneable", "kv", func(s *ObjectStore) *Request { return s.Put(make(chan int), "k") }, ErrDataClone},
		{"inject into primitive", "sessions", func(s *ObjectStore) *Request { return s.Add("plain") }, ErrData},
		{"delete everything", "kv", func(s *ObjectStore) *Request { return s.Delete(nil) }, ErrData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := do(t, db, ReadWrite, tt.store, tt.fn)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	db := openTest(t, t.TempDir())
	_, err := do(t, db, ReadOnly, "kv", func(s *ObjectStore) *Request { return s.Put("v", "k") })
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("err = %v, want ReadOnlyError", err)
	}
}

func TestAddDuplicateAbortsTransaction(t *testing.T) {
	db := openTest(t, t.TempDir())
	ctx := context.Background()

	if _, err := do(t, db, ReadWrite, "kv", func(s *ObjectStore) *Request { return s.Add("one", "k") }); err != nil {
		t.Fatal(err)
	}

	tx, _ := db.Transaction(ReadWrite, "kv")
	s, _ := tx.ObjectStore("kv")
	other := s.Put("other", "k2")
	dup := s.Add("two", "k")
	after := s.Put("three", "k3")
	_ = tx.Commit()

	if _, err := dup.Wait(ctx); !errors.Is(err, ErrConstraint) {
		t.Errorf("duplicate add err = %v, want ConstraintError", err)
	}
	if _, err := after.Wait(ctx); !errors.Is(err, ErrAbort) {
		t.Errorf("later request err = %v, want AbortError", err)
	}
	if _, err := other.Wait(ctx); err != nil {
		t.Errorf("earlier request err = %v", err)
	}
	if err := tx.Wait(ctx); !errors.Is(err, ErrAbort) {
		t.Errorf("transaction err = %v, want AbortError", err)
	}

	got, _ := do(t, db, ReadOnly, "kv", func(s *ObjectStore) *Request { return s.GetAllKeys(nil, 0) })
	if diff := cmp.Diff([]Key{"k"}, got); diff != "" {
		t.Errorf("keys after abort (-want +got):\n%s", diff)
	}
}

func TestUniqueIndex(t *testing.T) {
	db := openTest(t, t.TempDir())
	put := func(id int, email string) error {
		_, err := do(t, db, ReadWrite, "users", func(s *ObjectStore) *Request {
			return s.Put(map[string]any{"id": id, "email": email})
		})
		return err
	}
	if err := put(1, "a@x"); err != nil {
		t.Fatal(err)
	}
	if err := put(2, "a@x"); !errors.Is(err, ErrConstraint) {
		t.Errorf("duplicate email err = %v", err)
	}
	// Replacing the owner of the key keeps the index consistent.
	if err := put(1, "b@x"); err != nil {
		t.Fatal(err)
	}
	if err := put(2, "a@x"); err != nil {
		t.Errorf("reusing a released email: %v", err)
	}
}

func TestIndexQueries(t *testing.T) {
	db := openTest(t, t.TempDir())
	ctx := context.Background()

	tx, _ := db.Transaction(ReadWrite, "sessions")
	s, _ := tx.ObjectStore("sessions")
	for _, title := range []string{"b", "a", "b", "c"} {
		s.Add(map[string]any{"title": title})
	}
	s.Add(map[string]any{"untitled": true})
	_ = tx.Commit()
	if err := tx.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	tx, _ = db.Transaction(ReadOnly, "sessions")
	s, _ = tx.ObjectStore("sessions")
	ix, err := s.Index("title")
	if err != nil {
		t.Fatal(err)
	}
	keysB := ix.GetAllKeys("b", 0)
	count := ix.Count(nil)
	first := ix.Get(LowerBound("b", false))
	firstKey := ix.GetKey("c")
	rangeAll := ix.GetAll(Bound("a", "b", false, false), 2)
	_ = tx.Commit()

	if got, _ := keysB.Wait(ctx); !cmp.Equal(got, []Key{1.0, 3.0}) {
		t.Errorf("keys for b = %v", got)
	}
	if got, _ := count.Wait(ctx); got != 4 {
		t.Errorf("index count = %v, want 4 (untitled record is not indexed)", got)
	}
	if got, _ := first.Wait(ctx); got.(map[string]any)["id"] != 1.0 {
		t.Errorf("first b = %v", got)
	}
	if got, _ := firstKey.Wait(ctx); got != 4.0 {
		t.Errorf("key for c = %v", got)
	}
	got, _ := rangeAll.Wait(ctx)
	titles := []string{}
	for _, rec := range got.([]any) {
		titles = append(titles, rec.(map[string]any)["title"].(string))
	}
	if diff := cmp.Diff([]string{"a", "b"}, titles); diff != "" {
		t.Errorf("range titles (-want +got):\n%s", diff)
	}
	if err := tx.Wait(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestRangesDeleteClearCount(t *testing.T) {
	db := openTest(t, t.TempDir())
	ctx := context.Background()

	tx, _ := db.Transaction(ReadWrite, "kv")
	s, _ := tx.ObjectStore("kv")
	for i := 1; i <= 5; i++ {
		s.Put(i*10, i)
	}
	s.Delete(Bound(2, 3, false, false))
	s.Delete(99)
	keys := s.GetAllKeys(nil, 0)
	tail := s.GetAll(LowerBound(4, true), 0)
	count := s.Count(nil)
	_ = tx.Commit()

	if got, _ := keys.Wait(ctx); !cmp.Equal(got, []Key{1.0, 4.0, 5.0}) {
		t.Errorf("keys = %v", got)
	}
	if got, _ := tail.Wait(ctx); !cmp.Equal(got, []any{50.0}) {
		t.Errorf("tail = %v", got)
	}
	if got, _ := count.Wait(ctx); got != 3 {
		t.Errorf("count = %v", got)
	}
	if err := tx.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := do(t, db, ReadWrite, "kv", func(s *ObjectStore) *Request { return s.Clear() }); err != nil {
		t.Fatal(err)
	}
	got, _ := do(t, db, ReadOnly, "kv", func(s *ObjectStore) *Request { return s.GetAll(nil, 0) })
	if got == nil || len(got.([]any)) != 0 {
		t.Errorf("GetAll after clear = %#v, want empty slice", got)
	}
	if miss, err := do(t, db, ReadOnly, "kv", func(s *ObjectStore) *Request { return s.Get(1) }); miss != nil || err != nil {
		t.Errorf("Get miss = %v, %v", miss, err)
	}
}

func TestAbortDiscardsWrites(t *testing.T) {
	db := openTest(t, t.TempDir())
	ctx := context.Background()

	tx, _ := db.Transaction(ReadWrite, "kv")
	s, _ := tx.ObjectStore("kv")
	put := s.Put("v", "k")
	if _, err := put.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Abort(); err != nil {
		t.Fatal(err)
	}
	if err := tx.Wait(ctx); !errors.Is(err, ErrAbort) {
		t.Errorf("err = %v", err)
	}
	if err := tx.Commit(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("commit after abort err = %v", err)
	}
	if got, _ := do(t, db, ReadOnly, "kv", func(s *ObjectStore) *Request { return s.Get("k") }); got != nil {
		t.Errorf("aborted write visible: %v", got)
	}
}

func TestTransactionScope(t *testing.T) {
	db := openTest(t, t.TempDir())
	if _, err := db.Transaction(ReadOnly); !errors.Is(err, ErrInvalidAccess) {
		t.Errorf("empty scope err = %v", err)
	}
	if _, err := db.Transaction(ReadOnly, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown store err = %v", err)
	}
	tx, err := db.Transaction(ReadOnly, "kv", "kv")
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Abort()
	if diff := cmp.Diff([]string{"kv"}, tx.Scope()); diff != "" {
		t.Errorf("scope (-want +got):\n%s", diff)
	}
	if _, err := tx.ObjectStore("sessions"); !errors.Is(err, ErrNotFound) {
		t.Errorf("out of scope err = %v", err)
	}
}

func TestWritersRunInCreationOrder(t *testing.T) {
	db := openTest(t, t.TempDir())
	ctx := context.Background()

	first, _ := db.Transaction(ReadWrite, "kv")
	second, _ := db.Transaction(ReadWrite, "kv")
	reader, _ := db.Transaction(ReadOnly, "kv")

	s2, _ := second.ObjectStore("kv")
	w2 := s2.Put("second", "k")
	_ = second.Commit()

	r, _ := reader.ObjectStore("kv")
	read := r.Get("k")
	_ = reader.Commit()

	select {
	case <-w2.Done():
		t.Fatal("second writer ran before the first finished")
	case <-time.After(50 * time.Millisecond):
	}

	s1, _ := first.ObjectStore("kv")
	s1.Put("first", "k")
	_ = first.Commit()

	if _, err := w2.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := read.Wait(ctx); got != "second" {
		t.Errorf("reader saw %v, want the second write", got)
	}
}

func TestReadersDoNotBlockEachOther(t *testing.T) {
	db := openTest(t, t.TempDir())
	ctx := context.Background()

	held, _ := db.Transaction(ReadOnly, "kv")
	defer held.Commit()

	other, _ := db.Transaction(ReadOnly, "kv")
	s, _ := other.ObjectStore("kv")
	req := s.Count(nil)
	_ = other.Commit()

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := req.Wait(wctx); err != nil {
		t.Fatalf("second reader blocked: %v", err)
	}
}

func TestConcurrentWriters(t *testing.T) {
	db := openTest(t, t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := do(t, db, ReadWrite, "sessions", func(s *ObjectStore) *Request {
				return s.Add(map[string]any{"title": "t"})
			}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, _ := do(t, db, ReadOnly, "sessions", func(s *ObjectStore) *Request { return s.Count(nil) })
	if got != 20 {
		t.Errorf("count = %v, want 20", got)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	db := openTest(t, t.TempDir())

	blocker, _ := db.Transaction(ReadWrite, "kv")
	tx, _ := db.Transaction(ReadWrite, "kv")
	s, _ := tx.ObjectStore("kv")
	req := s.Put("v", "k")
	_ = tx.Commit()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := req.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if _, err := req.Result(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Result while pending err = %v", err)
	}

	// The abandoned request still completes.
	_ = blocker.Commit()
	if _, err := req.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := req.Result(); err != nil {
		t.Errorf("Result after completion: %v", err)
	}
}

func TestCloseAbortsUncommitted(t *testing.T) {
	db, err := Open(context.Background(), "c", 1, chatSchema, Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	tx, _ := db.Transaction(ReadWrite, "kv")
	s, _ := tx.ObjectStore("kv")
	req := s.Put("v", "k")

	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tx.Wait(context.Background()); !errors.Is(err, ErrAbort) {
		t.Errorf("tx err = %v", err)
	}
	<-req.Done()
	if _, err := db.Transaction(ReadOnly, "kv"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("transaction after close err = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestInMemoryDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "mem-"+t.Name(), 1, chatSchema, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := do(t, db, ReadWrite, "kv", func(s *ObjectStore) *Request { return s.Put(map[string]any{"a": []any{1.0, "x"}}, "k") }); err != nil {
		t.Fatal(err)
	}
	got, err := do(t, db, ReadOnly, "kv", func(s *ObjectStore) *Request { return s.Get("k") })
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"a": []any{1.0, "x"}}, got); diff != "" {
		t.Errorf("record (-want +got):\n%s", diff)
	}
}

func TestCreateIndexBackfills(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db := openTest(t, dir)
	for _, title := range []string{"x", "y"} {
		if _, err := do(t, db, ReadWrite, "sessions", func(s *ObjectStore) *Request {
			return s.Add(map[string]any{"title": title, "len": float64(len(title))})
		}); err != nil {
			t.Fatal(err)
		}
	}
	_ = db.Close()

	db, err := Open(ctx, "test", 2, func(up *UpgradeTx) error {
		s, err := up.ObjectStore("sessions")
		if err != nil {
			return err
		}
		return s.CreateIndex("len", "len", IndexOptions{})
	}, Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	tx, _ := db.Transaction(ReadOnly, "sessions")
	s, _ := tx.ObjectStore("sessions")
	ix, err := s.Index("len")
	if err != nil {
		t.Fatal(err)
	}
	req := ix.Count(1)
	_ = tx.Commit()
	if got, _ := req.Wait(ctx); got != 2 {
		t.Errorf("backfilled entries = %v, want 2", got)
	}
}
