// Package idb is an asynchronous, transactional key/value engine with
// IndexedDB semantics, persisted in SQLite.
//
// A Database holds named object stores. Each store keeps records ordered by
// key and may declare a key path (records carry their own key), a key
// generator (auto-increment) and secondary indexes. All reads and writes go
// through a Transaction whose scope and mode are fixed at creation:
//
//	db, err := idb.Open(ctx, "chats", 1, func(up *idb.UpgradeTx) error {
//	    s, err := up.CreateObjectStore("sessions", idb.StoreOptions{KeyPath: "id", AutoIncrement: true})
//	    if err != nil {
//	        return err
//	    }
//	    return s.CreateIndex("title", "title", idb.IndexOptions{})
//	}, idb.Options{Dir: dir})
//
//	tx, _ := db.Transaction(idb.ReadWrite, "sessions")
//	store, _ := tx.ObjectStore("sessions")
//	req := store.Add(map[string]any{"title": "hello"})
//	tx.Commit()
//	key, err := req.Wait(ctx)
//
// Transactions start in creation order. A readwrite transaction waits for
// every earlier live transaction whose scope overlaps its own, a readonly
// transaction waits for earlier overlapping readwrite transactions, and
// readwrite transactions are serialized database-wide. Requests issued
// before a transaction starts are queued and run in order once it does.
//
// A transaction must be finished with Commit or Abort. An unfinished
// readwrite transaction blocks every later writer.
//
// Keys are numbers (normalized to float64), strings, time.Time and []byte,
// ordered number < date < string < binary. Records are structured-cloned
// through JSON.
package idb
