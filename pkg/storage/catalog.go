package storage

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/dd0wney/semconv-graph/pkg/logging"
)

// loadCatalog reads every catalog entry into the in-memory mirror.
func (s *Store) loadCatalog() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte{prefixCatalog, keySep}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			parts := splitKey(item.Key())
			if len(parts) != 2 {
				continue
			}
			kind := parts[0]
			err := item.Value(func(val []byte) error {
				switch kind {
				case kindNode:
					var def NodeTableDef
					if err := json.Unmarshal(val, &def); err != nil {
						return err
					}
					s.nodeTables[def.Name] = def
				case kindRel:
					var def RelTableDef
					if err := json.Unmarshal(val, &def); err != nil {
						return err
					}
					s.relTables[def.Name] = def
				}
				return nil
			})
			if err != nil {
				return opError("loadCatalog", parts[1], err)
			}
		}
		return nil
	})
}

// CreateNodeTable declares a node table. IF NOT EXISTS semantics: declaring
// a table that already exists with an identical definition is a no-op;
// declaring it with a different definition is an error.
func (s *Store) CreateNodeTable(def NodeTableDef) error {
	if s.isClosed() {
		return opError("CreateNodeTable", def.Name, ErrStoreClosed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.nodeTables[def.Name]; ok {
		if !reflect.DeepEqual(existing, def) {
			return opError("CreateNodeTable", def.Name, ErrTableExists)
		}
		return nil
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return opError("CreateNodeTable", def.Name, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(catalogKey(kindNode, def.Name), raw)
	})
	if err != nil {
		return opError("CreateNodeTable", def.Name, err)
	}

	s.nodeTables[def.Name] = def
	s.logger.Debug("node table created", logging.Table(def.Name))
	return nil
}

// CreateRelTable declares a relationship table. Every endpoint table named
// in the allowed pairs must already exist. IF NOT EXISTS semantics as for
// CreateNodeTable.
func (s *Store) CreateRelTable(def RelTableDef) error {
	if s.isClosed() {
		return opError("CreateRelTable", def.Name, ErrStoreClosed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range def.Pairs {
		if _, ok := s.nodeTables[p.From]; !ok {
			return opError("CreateRelTable", def.Name, &StoreError{
				Op: "resolve pair", Table: p.From, Cause: ErrTableNotFound,
			})
		}
		if _, ok := s.nodeTables[p.To]; !ok {
			return opError("CreateRelTable", def.Name, &StoreError{
				Op: "resolve pair", Table: p.To, Cause: ErrTableNotFound,
			})
		}
	}

	if existing, ok := s.relTables[def.Name]; ok {
		if !reflect.DeepEqual(existing, def) {
			return opError("CreateRelTable", def.Name, ErrTableExists)
		}
		return nil
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return opError("CreateRelTable", def.Name, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(catalogKey(kindRel, def.Name), raw)
	})
	if err != nil {
		return opError("CreateRelTable", def.Name, err)
	}

	s.relTables[def.Name] = def
	s.logger.Debug("rel table created", logging.Rel(def.Name))
	return nil
}

// NodeTable returns the definition of a node table.
func (s *Store) NodeTable(name string) (NodeTableDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.nodeTables[name]
	return def, ok
}

// RelTable returns the definition of a relationship table.
func (s *Store) RelTable(name string) (RelTableDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.relTables[name]
	return def, ok
}

// NodeTables returns all node table definitions, sorted by name.
func (s *Store) NodeTables() []NodeTableDef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NodeTableDef, 0, len(s.nodeTables))
	for _, def := range s.nodeTables {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RelTables returns all relationship table definitions, sorted by name.
func (s *Store) RelTables() []RelTableDef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RelTableDef, 0, len(s.relTables))
	for _, def := range s.relTables {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ShowTables lists every table in the catalog, node tables first, each
// group sorted by name. This is the introspection surface the HTTP layer
// exposes at /tables.
func (s *Store) ShowTables() []TableInfo {
	var out []TableInfo
	for _, def := range s.NodeTables() {
		out = append(out, TableInfo{Name: def.Name, Kind: kindNode})
	}
	for _, def := range s.RelTables() {
		out = append(out, TableInfo{Name: def.Name, Kind: kindRel})
	}
	return out
}
