package backup

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/vango-dev/chatui/internal/errors"
	"github.com/vango-dev/chatui/pkg/webdb"
)

// FormatVersion identifies the snapshot layout.
const FormatVersion = 1

// Snapshot is the full contents of one database.
type Snapshot struct {
	Format    int             `json:"format"`
	Database  string          `json:"database"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	Stores    []StoreSnapshot `json:"stores"`
}

// StoreSnapshot is one store's definition and records.
type StoreSnapshot struct {
	webdb.StoreDefinition
	Records []webdb.Entry `json:"records"`
}

// Store returns the snapshot of the named store.
func (s *Snapshot) Store(name string) (StoreSnapshot, bool) {
	for _, st := range s.Stores {
		if st.Name == name {
			return st, true
		}
	}
	return StoreSnapshot{}, false
}

// Definitions returns the store definitions recorded in the snapshot.
func (s *Snapshot) Definitions() []webdb.StoreDefinition {
	defs := make([]webdb.StoreDefinition, len(s.Stores))
	for i, st := range s.Stores {
		defs[i] = st.StoreDefinition
	}
	return defs
}

// Take reads every store of db. Stores are read one transaction each, so
// writes that happen during Take may be seen in some stores only.
func Take(ctx context.Context, db *webdb.DB, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		Format:    FormatVersion,
		Database:  db.Name(),
		Version:   db.Version(),
		CreatedAt: now.UTC(),
	}
	for _, name := range db.StoreNames() {
		info, _ := db.StoreInfo(name)
		def := webdb.StoreDefinition{
			Name:          info.Name,
			KeyPath:       info.KeyPath,
			AutoIncrement: info.AutoIncrement,
		}
		for _, ix := range info.Indexes {
			def.Indexes = append(def.Indexes, webdb.IndexDefinition{Name: ix.Name, KeyPath: ix.KeyPath, Unique: ix.Unique})
		}

		entries, err := db.GetAllEntries(ctx, name)
		if err != nil {
			return nil, errors.New("E113").WithDetailf("read store %q", name).Wrap(err)
		}
		snap.Stores = append(snap.Stores, StoreSnapshot{StoreDefinition: def, Records: entries})
	}
	return snap, nil
}

// Restore writes every snapshot record into db, replacing records with the
// same key. Stores missing from db are skipped and returned by name.
func Restore(ctx context.Context, db *webdb.DB, snap *Snapshot) (skipped []string, err error) {
	for _, st := range snap.Stores {
		if _, ok := db.StoreInfo(st.Name); !ok {
			skipped = append(skipped, st.Name)
			continue
		}
		for _, rec := range st.Records {
			var key []any
			if st.KeyPath == "" {
				key = append(key, rec.Key)
			}
			if _, err := db.UpdateData(ctx, st.Name, rec.Value, key...); err != nil {
				return skipped, errors.New("E113").WithDetailf("restore %q key %v", st.Name, rec.Key).Wrap(err)
			}
		}
	}
	return skipped, nil
}

// Write encodes snap as indented JSON.
func Write(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Read decodes a snapshot written by Write.
func Read(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, errors.New("E113").WithDetail("decode snapshot").Wrap(err)
	}
	if snap.Format != FormatVersion {
		return nil, errors.New("E113").WithDetailf("unsupported snapshot format %d", snap.Format)
	}
	return &snap, nil
}
