// Package webdb is a promise-free facade over the idb engine: open a named,
// versioned database with a declarative schema, then read and write records
// one store at a time.
//
//	db, err := webdb.Open(ctx, "chats", 1, []webdb.StoreDefinition{{
//	    Name:          "sessions",
//	    KeyPath:       "id",
//	    AutoIncrement: true,
//	    Indexes:       []webdb.IndexDefinition{{Name: "title", KeyPath: "title"}},
//	}}, webdb.WithDir(dataDir))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	key, err := db.AddData(ctx, "sessions", map[string]any{"title": "hello"})
//
// Every operation runs in its own transaction scoped to exactly one store
// and blocks until that transaction completes. Requests cannot be
// cancelled: a cancelled ctx only abandons the wait, and the write may
// still commit.
//
// Engine failures are returned unchanged as *idb.Error. Misuse of the
// facade itself (bad version, bad schema, use after Close) is reported with
// coded errors from internal/errors.
package webdb
