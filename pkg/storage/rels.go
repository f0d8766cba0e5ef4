package storage

import (
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dd0wney/semconv-graph/pkg/logging"
)

// RelInsert is one relationship row to be inserted: its endpoints plus any
// edge properties.
type RelInsert struct {
	FromID string
	ToID   string
	Props  Row
}

// InsertRel inserts a single relationship row.
func (s *Store) InsertRel(rel, fromTable, toTable string, ins RelInsert) error {
	_, err := s.InsertRels(rel, fromTable, toTable, []RelInsert{ins})
	return err
}

// InsertRels bulk-inserts relationship rows between one (from, to) table
// pair. The pair must be declared for the relationship table, and every
// endpoint must reference an existing node row; a dangling endpoint fails
// the whole batch before anything is written. Re-inserting an existing
// relationship overwrites its properties (relationship rows have no
// separate primary key).
func (s *Store) InsertRels(rel, fromTable, toTable string, inserts []RelInsert) (int, error) {
	if s.isClosed() {
		return 0, opError("InsertRels", rel, ErrStoreClosed)
	}
	def, ok := s.RelTable(rel)
	if !ok {
		return 0, opError("InsertRels", rel, ErrTableNotFound)
	}
	if !def.Allows(fromTable, toTable) {
		return 0, &StoreError{
			Op: "InsertRels", Table: rel,
			Field: fromTable + "->" + toTable,
			Cause: ErrPairNotAllowed,
		}
	}

	start := time.Now()

	type pending struct {
		fwdKey  []byte
		revKey  []byte
		payload []byte
	}
	batch := make([]pending, 0, len(inserts))

	err := s.db.View(func(txn *badger.Txn) error {
		for _, ins := range inserts {
			if ins.FromID == "" || ins.ToID == "" {
				return opError("InsertRels", rel, ErrDanglingRel)
			}
			if _, err := txn.Get(nodeKey(fromTable, ins.FromID)); err != nil {
				if err == badger.ErrKeyNotFound {
					return keyError("InsertRels", fromTable, ins.FromID, ErrDanglingRel)
				}
				return keyError("InsertRels", fromTable, ins.FromID, err)
			}
			if _, err := txn.Get(nodeKey(toTable, ins.ToID)); err != nil {
				if err == badger.ErrKeyNotFound {
					return keyError("InsertRels", toTable, ins.ToID, ErrDanglingRel)
				}
				return keyError("InsertRels", toTable, ins.ToID, err)
			}

			props := ins.Props
			if props == nil {
				props = Row{}
			}
			payload, err := encodeRow(props)
			if err != nil {
				return keyError("InsertRels", rel, ins.FromID, err)
			}
			batch = append(batch, pending{
				fwdKey:  relKey(rel, fromTable, ins.FromID, ins.ToID),
				revKey:  revIdxKey(rel, ins.ToID, fromTable, ins.FromID),
				payload: payload,
			})
		}
		return nil
	})
	if err != nil {
		s.recordOp("insert_rels", "error", start)
		return 0, err
	}

	written := 0
	for len(batch) > 0 {
		chunk := batch
		if len(chunk) > insertChunkSize {
			chunk = chunk[:insertChunkSize]
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, p := range chunk {
				if err := txn.Set(p.fwdKey, p.payload); err != nil {
					return err
				}
				if err := txn.Set(p.revKey, nil); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.recordOp("insert_rels", "error", start)
			return written, opError("InsertRels", rel, err)
		}
		written += len(chunk)
		batch = batch[len(chunk):]
	}

	s.recordOp("insert_rels", "ok", start)
	s.logger.Debug("rels inserted",
		logging.Rel(rel),
		logging.Table(fromTable),
		logging.Count(written))
	return written, nil
}

// Neighbor is a traversal result: the target row plus the edge properties
// carried by the relationship itself.
type Neighbor struct {
	Table string
	Row   Row
	Props Row
}

// Neighbors returns the rows reachable from (fromTable, fromID) over the
// given relationship table, ordered by target id. Targets are resolved per
// the declared pairs; a relationship with several targets for the same
// source table returns all of them.
func (s *Store) Neighbors(rel, fromTable, fromID string) ([]Neighbor, error) {
	if s.isClosed() {
		return nil, opError("Neighbors", rel, ErrStoreClosed)
	}
	def, ok := s.RelTable(rel)
	if !ok {
		return nil, opError("Neighbors", rel, ErrTableNotFound)
	}
	targets := def.Targets(fromTable)
	if len(targets) == 0 {
		return nil, &StoreError{
			Op: "Neighbors", Table: rel, Field: fromTable, Cause: ErrPairNotAllowed,
		}
	}

	var out []Neighbor
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := relFromPrefix(rel, fromTable, fromID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			parts := splitKey(item.Key())
			if len(parts) != 4 {
				continue
			}
			toID := parts[3]

			var props Row
			err := item.Value(func(val []byte) error {
				var err error
				props, err = decodeRow(val)
				return err
			})
			if err != nil {
				return keyError("Neighbors", rel, toID, err)
			}

			for _, target := range targets {
				targetItem, err := txn.Get(nodeKey(target, toID))
				if err == badger.ErrKeyNotFound {
					continue
				}
				if err != nil {
					return keyError("Neighbors", target, toID, err)
				}
				var row Row
				err = targetItem.Value(func(val []byte) error {
					var err error
					row, err = decodeRow(val)
					return err
				})
				if err != nil {
					return keyError("Neighbors", target, toID, err)
				}
				row[PrimaryKey] = toID
				out = append(out, Neighbor{Table: target, Row: row, Props: props})
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Incoming returns the (fromTable, fromID) endpoints of every relationship
// row of the given table that points at toID.
func (s *Store) Incoming(rel, toID string) ([]RelRecord, error) {
	if s.isClosed() {
		return nil, opError("Incoming", rel, ErrStoreClosed)
	}
	if _, ok := s.RelTable(rel); !ok {
		return nil, opError("Incoming", rel, ErrTableNotFound)
	}

	var out []RelRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := revIdxPrefix(rel, toID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			parts := splitKey(it.Item().Key())
			if len(parts) != 4 {
				continue
			}
			out = append(out, RelRecord{
				Rel:       rel,
				FromTable: parts[2],
				FromID:    parts[3],
				ToID:      toID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, opError("Incoming", rel, err)
	}
	return out, nil
}

// CountRels returns the number of rows in a relationship table.
func (s *Store) CountRels(rel string) (int, error) {
	if s.isClosed() {
		return 0, opError("CountRels", rel, ErrStoreClosed)
	}
	if _, ok := s.RelTable(rel); !ok {
		return 0, opError("CountRels", rel, ErrTableNotFound)
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := relPrefix(rel)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, opError("CountRels", rel, err)
	}
	return count, nil
}
