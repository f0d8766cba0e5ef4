package conventions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dd0wney/semconv-graph/pkg/schema"
	"github.com/dd0wney/semconv-graph/pkg/storage"
)

// ImportFile is one exported JSON file plus the metadata the loader needs
// to copy it into the store.
type ImportFile struct {
	Path     string
	Rel      string // empty for node files
	Table    string // node table, or source table for rel files
	ToTable  string // target table for rel files
	RowCount int
}

// Export writes the dataset as loader-compatible JSON import files under
// dir: one array per node table, one per (relationship, source table)
// pair. Node rows are completed against the declared schema: declared
// columns absent from the model data are exported as empty strings, and
// undeclared keys are left in place for the loader to drop. Node files
// are returned before relationship files so imports run in dependency
// order.
func (ds *Dataset) Export(dir string) ([]ImportFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	defs := make(map[string]storage.NodeTableDef)
	for _, def := range schema.NodeTables() {
		defs[def.Name] = def
	}

	var files []ImportFile
	for _, def := range schema.NodeTables() {
		sections := ds.Nodes[def.Name]
		ids := make([]string, 0, len(sections))
		for id := range sections {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		rows := make([]map[string]any, 0, len(sections))
		for _, id := range ids {
			section := sections[id]
			if _, ok := section["id"]; !ok {
				section["id"] = id
			}
			rows = append(rows, completeRow(defs[def.Name], section))
		}

		path := filepath.Join(dir, def.Name+"s.json")
		if err := writeJSON(path, rows); err != nil {
			return nil, fmt.Errorf("export %s: %w", def.Name, err)
		}
		files = append(files, ImportFile{
			Path:     path,
			Table:    def.Name,
			RowCount: len(rows),
		})
	}

	for _, relDef := range schema.RelTables() {
		target, _ := schema.RelEndpoint(relDef.Name)
		byTable := ds.Rels[relDef.Name]

		tables := make([]string, 0, len(byTable))
		for table := range byTable {
			tables = append(tables, table)
		}
		sort.Strings(tables)

		for _, table := range tables {
			edges := byTable[table]
			rows := make([]map[string]any, 0, len(edges))
			for _, e := range edges {
				row := map[string]any{"from": e.From, "to": e.To}
				for k, v := range e.Props {
					row[k] = v
				}
				rows = append(rows, row)
			}

			path := filepath.Join(dir, fmt.Sprintf("rel_%s_%s.json", table, relDef.Name))
			if err := writeJSON(path, rows); err != nil {
				return nil, fmt.Errorf("export %s: %w", relDef.Name, err)
			}
			files = append(files, ImportFile{
				Path:     path,
				Rel:      relDef.Name,
				Table:    table,
				ToTable:  target,
				RowCount: len(rows),
			})
		}
	}
	return files, nil
}

// completeRow fills declared columns missing from a model section with
// empty strings, keeping the id and any extra keys untouched.
func completeRow(def storage.NodeTableDef, section map[string]any) map[string]any {
	row := make(map[string]any, len(section)+1)
	for k, v := range section {
		row[k] = v
	}
	for _, col := range def.Columns {
		if _, ok := row[col.Name]; !ok {
			if col.HasDefault {
				row[col.Name] = col.Default
			} else {
				row[col.Name] = ""
			}
		}
	}
	return row
}

func writeJSON(path string, rows []map[string]any) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
