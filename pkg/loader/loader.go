// Package loader bulk-imports semantic-convention rows from JSON import
// files into the graph store. An import file is a JSON array of flat
// objects whose keys match the target table's column names.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/semconv-graph/pkg/logging"
	"github.com/dd0wney/semconv-graph/pkg/metrics"
	"github.com/dd0wney/semconv-graph/pkg/storage"
)

// Relationship import files reference their endpoints under these keys.
const (
	fromKey = "from"
	toKey   = "to"
)

// Loader reads JSON import files and inserts their rows.
type Loader struct {
	store   *storage.Store
	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates a Loader. logger may be nil; reg may be nil.
func New(store *storage.Store, logger logging.Logger, reg *metrics.Registry) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{store: store, logger: logger, metrics: reg}
}

// CopyNodes imports a JSON array of node rows into a node table. The
// whole file is validated and inserted as one bulk operation: malformed
// JSON, a missing required column, or a duplicate primary key aborts the
// import before any row is written. Keys that are not declared columns
// are dropped, matching how the convention export files carry extra
// bookkeeping keys alongside the column data.
func (l *Loader) CopyNodes(table, path string) (int, error) {
	def, ok := l.store.NodeTable(table)
	if !ok {
		return 0, fmt.Errorf("copy into %s: %w", table, storage.ErrTableNotFound)
	}

	start := time.Now()
	objects, err := readImportFile(path)
	if err != nil {
		l.recordFailure(table)
		return 0, fmt.Errorf("copy into %s from %s: %w", table, path, err)
	}

	rows := make([]storage.Row, 0, len(objects))
	for _, obj := range objects {
		row := make(storage.Row)
		for k, v := range obj {
			if k != storage.PrimaryKey {
				if _, declared := def.Column(k); !declared {
					continue
				}
			}
			row[k] = coerce(v)
		}
		rows = append(rows, row)
	}

	n, err := l.store.InsertNodes(table, rows)
	if err != nil {
		l.recordFailure(table)
		return n, err
	}

	if l.metrics != nil {
		l.metrics.RecordImport(table, n, time.Since(start))
	}
	l.logger.Info("bulk import complete",
		logging.Table(table),
		logging.Path(path),
		logging.Count(n))
	return n, nil
}

// CopyRels imports a JSON array of relationship rows into a relationship
// table. Each object carries "from" and "to" endpoint ids; every other
// key becomes an edge property. The (fromTable, toTable) pair must be
// declared for the relationship, and both endpoints must exist.
func (l *Loader) CopyRels(rel, fromTable, toTable, path string) (int, error) {
	start := time.Now()
	objects, err := readImportFile(path)
	if err != nil {
		l.recordFailure(rel)
		return 0, fmt.Errorf("copy into %s from %s: %w", rel, path, err)
	}

	inserts := make([]storage.RelInsert, 0, len(objects))
	for _, obj := range objects {
		ins := storage.RelInsert{Props: make(storage.Row)}
		for k, v := range obj {
			switch k {
			case fromKey:
				ins.FromID = coerce(v)
			case toKey:
				ins.ToID = coerce(v)
			default:
				ins.Props[k] = coerce(v)
			}
		}
		inserts = append(inserts, ins)
	}

	n, err := l.store.InsertRels(rel, fromTable, toTable, inserts)
	if err != nil {
		l.recordFailure(rel)
		return n, err
	}

	if l.metrics != nil {
		l.metrics.RecordImport(rel, n, time.Since(start))
	}
	l.logger.Info("bulk import complete",
		logging.Rel(rel),
		logging.Table(fromTable),
		logging.Path(path),
		logging.Count(n))
	return n, nil
}

func (l *Loader) recordFailure(table string) {
	if l.metrics != nil {
		l.metrics.RecordImportFailure(table)
	}
}

// readImportFile parses a JSON array of flat objects.
func readImportFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("malformed import file: %w", err)
	}
	return objects, nil
}

// coerce renders an import value as a stored string. The convention data
// occasionally carries numbers, booleans and lists where a string column
// is declared; lists (typically attribute examples) are joined with
// newlines, the same normalization the conventions exporter applies.
func coerce(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, coerce(item))
		}
		return strings.Join(parts, "\n")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
