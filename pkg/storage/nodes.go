package storage

import (
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dd0wney/semconv-graph/pkg/logging"
)

// insertChunkSize bounds the number of rows per write transaction so bulk
// imports stay under Badger's transaction size limit.
const insertChunkSize = 500

// normalizeRow checks a row against the table definition and returns the
// stored form: required columns present, defaults applied, no unknown
// columns, primary key separated out.
func normalizeRow(def NodeTableDef, row Row) (id string, stored Row, err error) {
	id, ok := row[PrimaryKey]
	if !ok || id == "" {
		return "", nil, columnError("normalize", def.Name, PrimaryKey, ErrMissingColumn)
	}

	stored = make(Row, len(def.Columns))
	for _, col := range def.Columns {
		v, ok := row[col.Name]
		switch {
		case ok:
			stored[col.Name] = v
		case col.HasDefault:
			stored[col.Name] = col.Default
		default:
			return "", nil, columnError("normalize", def.Name, col.Name, ErrMissingColumn)
		}
	}

	for k := range row {
		if k == PrimaryKey {
			continue
		}
		if _, ok := def.Column(k); !ok {
			return "", nil, columnError("normalize", def.Name, k, ErrUnknownColumn)
		}
	}
	return id, stored, nil
}

// InsertNode inserts a single node row. The row must carry the primary key
// and every required column; optional columns fall back to their defaults.
// A primary-key collision fails with ErrDuplicateKey and writes nothing.
func (s *Store) InsertNode(table string, row Row) error {
	_, err := s.InsertNodes(table, []Row{row})
	return err
}

// InsertNodes bulk-inserts rows into a node table. All rows are validated
// before anything is written: column checks, duplicate keys within the
// batch, and duplicate keys against rows already stored. Only after the
// whole batch validates are rows committed, in chunks. A validation
// failure therefore leaves the table untouched; only an I/O failure during
// the write phase can leave a partial import behind.
func (s *Store) InsertNodes(table string, rows []Row) (int, error) {
	if s.isClosed() {
		return 0, opError("InsertNodes", table, ErrStoreClosed)
	}
	def, ok := s.NodeTable(table)
	if !ok {
		return 0, opError("InsertNodes", table, ErrTableNotFound)
	}

	start := time.Now()

	type pending struct {
		key     []byte
		payload []byte
	}
	batch := make([]pending, 0, len(rows))
	seen := make(map[string]bool, len(rows))

	err := s.db.View(func(txn *badger.Txn) error {
		for _, row := range rows {
			id, stored, err := normalizeRow(def, row)
			if err != nil {
				return err
			}
			if seen[id] {
				return keyError("InsertNodes", table, id, ErrDuplicateKey)
			}
			seen[id] = true

			key := nodeKey(table, id)
			if _, err := txn.Get(key); err == nil {
				return keyError("InsertNodes", table, id, ErrDuplicateKey)
			} else if err != badger.ErrKeyNotFound {
				return keyError("InsertNodes", table, id, err)
			}

			payload, err := encodeRow(stored)
			if err != nil {
				return keyError("InsertNodes", table, id, err)
			}
			batch = append(batch, pending{key: key, payload: payload})
		}
		return nil
	})
	if err != nil {
		s.recordOp("insert_nodes", "error", start)
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
				if err := txn.Set(p.key, p.payload); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.recordOp("insert_nodes", "error", start)
			return written, opError("InsertNodes", table, err)
		}
		written += len(chunk)
		batch = batch[len(chunk):]
	}

	s.recordOp("insert_nodes", "ok", start)
	s.logger.Debug("nodes inserted", logging.Table(table), logging.Count(written))
	return written, nil
}

// GetNode fetches one node row by primary key. The returned row includes
// the primary key column.
func (s *Store) GetNode(table, id string) (Row, error) {
	if s.isClosed() {
		return nil, opError("GetNode", table, ErrStoreClosed)
	}
	if _, ok := s.NodeTable(table); !ok {
		return nil, opError("GetNode", table, ErrTableNotFound)
	}

	var row Row
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(table, id))
		if err == badger.ErrKeyNotFound {
			return keyError("GetNode", table, id, ErrRowNotFound)
		}
		if err != nil {
			return keyError("GetNode", table, id, err)
		}
		return item.Value(func(val []byte) error {
			row, err = decodeRow(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	row[PrimaryKey] = id
	return row, nil
}

// ScanNodes returns every row of a node table, ordered by primary key.
// This is the MATCH-all read the serving layer builds on.
func (s *Store) ScanNodes(table string) ([]Row, error) {
	if s.isClosed() {
		return nil, opError("ScanNodes", table, ErrStoreClosed)
	}
	if _, ok := s.NodeTable(table); !ok {
		return nil, opError("ScanNodes", table, ErrTableNotFound)
	}

	start := time.Now()
	var rows []Row
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := nodePrefix(table)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			parts := splitKey(item.Key())
			if len(parts) != 2 {
				continue
			}
			id := parts[1]
			err := item.Value(func(val []byte) error {
				row, err := decodeRow(val)
				if err != nil {
					return err
				}
				row[PrimaryKey] = id
				rows = append(rows, row)
				return nil
			})
			if err != nil {
				return keyError("ScanNodes", table, id, err)
			}
		}
		return nil
	})
	if err != nil {
		s.recordOp("scan_nodes", "error", start)
		return nil, err
	}
	s.recordOp("scan_nodes", "ok", start)
	return rows, nil
}

// CountNodes returns the number of rows in a node table.
func (s *Store) CountNodes(table string) (int, error) {
	if s.isClosed() {
		return 0, opError("CountNodes", table, ErrStoreClosed)
	}
	if _, ok := s.NodeTable(table); !ok {
		return 0, opError("CountNodes", table, ErrTableNotFound)
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := nodePrefix(table)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, opError("CountNodes", table, err)
	}
	return count, nil
}

func (s *Store) recordOp(op, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordStoreOperation(op, status, time.Since(start))
	}
}
