package webdb

import (
	"github.com/vango-dev/chatui/internal/errors"
	"github.com/vango-dev/chatui/pkg/idb"
)

// StoreDefinition declares one object store.
type StoreDefinition struct {
	Name          string            `json:"name"`
	KeyPath       string            `json:"keyPath,omitempty"`
	AutoIncrement bool              `json:"autoIncrement,omitempty"`
	Indexes       []IndexDefinition `json:"indexes,omitempty"`
}

// IndexDefinition declares one index of a store.
type IndexDefinition struct {
	Name    string `json:"name"`
	KeyPath string `json:"keyPath"`
	Unique  bool   `json:"unique,omitempty"`
}

func validateStores(stores []StoreDefinition) error {
	seen := make(map[string]bool, len(stores))
	for i, s := range stores {
		if s.Name == "" {
			return errors.New("E112").WithDetailf("store %d has no name", i)
		}
		if seen[s.Name] {
			return errors.New("E112").WithDetailf("store %q is declared twice", s.Name)
		}
		seen[s.Name] = true
		if !idb.ValidKeyPath(s.KeyPath) {
			return errors.New("E112").WithDetailf("store %q has invalid key path %q", s.Name, s.KeyPath)
		}

		indexes := make(map[string]bool, len(s.Indexes))
		for _, ix := range s.Indexes {
			switch {
			case ix.Name == "":
				return errors.New("E112").WithDetailf("store %q has an index with no name", s.Name)
			case ix.KeyPath == "" || !idb.ValidKeyPath(ix.KeyPath):
				return errors.New("E112").WithDetailf("index %q of store %q has invalid key path %q", ix.Name, s.Name, ix.KeyPath)
			case indexes[ix.Name]:
				return errors.New("E112").WithDetailf("index %q of store %q is declared twice", ix.Name, s.Name)
			}
			indexes[ix.Name] = true
		}
	}
	return nil
}

// defineStores creates every declared store that does not exist yet,
// together with its indexes. Stores that already exist are left as they
// are, including their indexes.
func defineStores(stores []StoreDefinition, created *[]string) idb.UpgradeFunc {
	return func(up *idb.UpgradeTx) error {
		existing := make(map[string]bool)
		for _, name := range up.ObjectStoreNames() {
			existing[name] = true
		}

		for _, def := range stores {
			if existing[def.Name] {
				continue
			}
			store, err := up.CreateObjectStore(def.Name, idb.StoreOptions{
				KeyPath:       def.KeyPath,
				AutoIncrement: def.AutoIncrement,
			})
			if err != nil {
				return err
			}
			*created = append(*created, def.Name)

			for _, ix := range def.Indexes {
				if err := store.CreateIndex(ix.Name, ix.KeyPath, idb.IndexOptions{Unique: ix.Unique}); err != nil {
					return err
				}
				*created = append(*created, def.Name+"."+ix.Name)
			}
		}
		return nil
	}
}
