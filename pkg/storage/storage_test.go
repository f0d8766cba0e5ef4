package storage

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func attributeDef() NodeTableDef {
	return NodeTableDef{
		Name: "Attribute",
		Columns: []Column{
			{Name: "type"},
			{Name: "brief"},
			{Name: "examples", HasDefault: true},
			{Name: "stability"},
		},
	}
}

func metricDef() NodeTableDef {
	return NodeTableDef{
		Name: "Metric",
		Columns: []Column{
			{Name: "metric_name"},
			{Name: "brief"},
			{Name: "instrument"},
			{Name: "unit", HasDefault: true},
			{Name: "stability"},
		},
	}
}

func hasAttributeDef() RelTableDef {
	return RelTableDef{
		Name: "HasAttribute",
		Pairs: []Pair{
			{From: "Metric", To: "Attribute"},
		},
	}
}

func TestCreateNodeTableIdempotent(t *testing.T) {
	store := newTestStore(t)

	def := attributeDef()
	if err := store.CreateNodeTable(def); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}
	// Identical re-declaration is a no-op.
	if err := store.CreateNodeTable(def); err != nil {
		t.Fatalf("CreateNodeTable (repeat): %v", err)
	}

	// A different definition under the same name is rejected.
	changed := attributeDef()
	changed.Columns = append(changed.Columns, Column{Name: "extra"})
	err := store.CreateNodeTable(changed)
	if !errors.Is(err, ErrTableExists) {
		t.Fatalf("expected ErrTableExists, got %v", err)
	}

	got, ok := store.NodeTable("Attribute")
	if !ok {
		t.Fatal("table missing from catalog")
	}
	if len(got.Columns) != 4 {
		t.Errorf("original definition was replaced: %+v", got)
	}
}

func TestCreateRelTableRequiresEndpoints(t *testing.T) {
	store := newTestStore(t)

	err := store.CreateRelTable(hasAttributeDef())
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}

	if err := store.CreateNodeTable(metricDef()); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}
	if err := store.CreateNodeTable(attributeDef()); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}
	if err := store.CreateRelTable(hasAttributeDef()); err != nil {
		t.Fatalf("CreateRelTable: %v", err)
	}
	// Idempotent re-declaration.
	if err := store.CreateRelTable(hasAttributeDef()); err != nil {
		t.Fatalf("CreateRelTable (repeat): %v", err)
	}
}

func TestInsertAndGetNode(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateNodeTable(attributeDef()); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}

	row := Row{
		"id":        "http.request.method",
		"type":      "string",
		"brief":     "HTTP request method.",
		"stability": "stable",
		// examples omitted: default applies
	}
	if err := store.InsertNode("Attribute", row); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}

	got, err := store.GetNode("Attribute", "http.request.method")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got["id"] != "http.request.method" {
		t.Errorf("id = %q", got["id"])
	}
	if got["brief"] != "HTTP request method." {
		t.Errorf("brief = %q", got["brief"])
	}
	if v, ok := got["examples"]; !ok || v != "" {
		t.Errorf("examples default not applied: %q (present=%v)", v, ok)
	}
}

func TestGetNodeMissing(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateNodeTable(attributeDef()); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}

	_, err := store.GetNode("Attribute", "no.such.attribute")
	if !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should report true")
	}

	_, err = store.GetNode("Nope", "x")
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

func TestInsertNodeValidation(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateNodeTable(attributeDef()); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}

	tests := []struct {
		name string
		row  Row
		want error
	}{
		{
			name: "missing primary key",
			row:  Row{"type": "string", "brief": "b", "stability": "stable"},
			want: ErrMissingColumn,
		},
		{
			name: "missing required column",
			row:  Row{"id": "a", "type": "string", "stability": "stable"},
			want: ErrMissingColumn,
		},
		{
			name: "unknown column",
			row:  Row{"id": "a", "type": "string", "brief": "b", "stability": "stable", "bogus": "x"},
			want: ErrUnknownColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.InsertNode("Attribute", tt.row)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	count, err := store.CountNodes("Attribute")
	if err != nil {
		t.Fatalf("CountNodes: %v", err)
	}
	if count != 0 {
		t.Errorf("rejected inserts left %d rows behind", count)
	}
}

func TestInsertNodesDuplicateAborts(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateNodeTable(metricDef()); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}

	seed := Row{
		"id": "m1", "metric_name": "system.cpu.time", "brief": "b",
		"instrument": "counter", "stability": "stable",
	}
	if err := store.InsertNode("Metric", seed); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}

	// Batch where the second row collides with a stored key: nothing from
	// the batch may be written.
	batch := []Row{
		{"id": "m2", "metric_name": "system.memory.usage", "brief": "b",
			"instrument": "updowncounter", "stability": "stable"},
		{"id": "m1", "metric_name": "system.cpu.time", "brief": "b",
			"instrument": "counter", "stability": "stable"},
	}
	n, err := store.InsertNodes("Metric", batch)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if n != 0 {
		t.Errorf("written = %d, want 0", n)
	}
	if !IsDuplicate(err) {
		t.Error("IsDuplicate should report true")
	}

	count, err := store.CountNodes("Metric")
	if err != nil {
		t.Fatalf("CountNodes: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (failed batch must write nothing)", count)
	}

	// Duplicate within the batch itself is also rejected.
	batch = []Row{
		{"id": "m3", "metric_name": "a", "brief": "b", "instrument": "gauge", "stability": "stable"},
		{"id": "m3", "metric_name": "a", "brief": "b", "instrument": "gauge", "stability": "stable"},
	}
	_, err = store.InsertNodes("Metric", batch)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey for in-batch duplicate, got %v", err)
	}
}

func TestScanNodesOrdered(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateNodeTable(attributeDef()); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}

	ids := []string{"zeta", "alpha", "mid"}
	for _, id := range ids {
		row := Row{"id": id, "type": "string", "brief": "b", "stability": "stable"}
		if err := store.InsertNode("Attribute", row); err != nil {
			t.Fatalf("InsertNode %s: %v", id, err)
		}
	}

	rows, err := store.ScanNodes("Attribute")
	if err != nil {
		t.Fatalf("ScanNodes: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len = %d, want 3", len(rows))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, w := range want {
		if rows[i]["id"] != w {
			t.Errorf("rows[%d].id = %q, want %q", i, rows[i]["id"], w)
		}
	}
}

func TestInsertRelsPairEnforcement(t *testing.T) {
	store := newTestStore(t)
	for _, def := range []NodeTableDef{metricDef(), attributeDef()} {
		if err := store.CreateNodeTable(def); err != nil {
			t.Fatalf("CreateNodeTable: %v", err)
		}
	}
	if err := store.CreateRelTable(hasAttributeDef()); err != nil {
		t.Fatalf("CreateRelTable: %v", err)
	}

	// Reversed direction is not a declared pair.
	_, err := store.InsertRels("HasAttribute", "Attribute", "Metric", []RelInsert{
		{FromID: "a", ToID: "m"},
	})
	if !errors.Is(err, ErrPairNotAllowed) {
		t.Fatalf("expected ErrPairNotAllowed, got %v", err)
	}

	_, err = store.InsertRels("NoSuchRel", "Metric", "Attribute", nil)
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

func TestInsertRelsDanglingEndpoint(t *testing.T) {
	store := newTestStore(t)
	for _, def := range []NodeTableDef{metricDef(), attributeDef()} {
		if err := store.CreateNodeTable(def); err != nil {
			t.Fatalf("CreateNodeTable: %v", err)
		}
	}
	if err := store.CreateRelTable(hasAttributeDef()); err != nil {
		t.Fatalf("CreateRelTable: %v", err)
	}

	metric := Row{"id": "m1", "metric_name": "system.cpu.time", "brief": "b",
		"instrument": "counter", "stability": "stable"}
	if err := store.InsertNode("Metric", metric); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}

	_, err := store.InsertRels("HasAttribute", "Metric", "Attribute", []RelInsert{
		{FromID: "m1", ToID: "missing.attr"},
	})
	if !errors.Is(err, ErrDanglingRel) {
		t.Fatalf("expected ErrDanglingRel, got %v", err)
	}

	count, err := store.CountRels("HasAttribute")
	if err != nil {
		t.Fatalf("CountRels: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestNeighborsAndIncoming(t *testing.T) {
	store := newTestStore(t)
	for _, def := range []NodeTableDef{metricDef(), attributeDef()} {
		if err := store.CreateNodeTable(def); err != nil {
			t.Fatalf("CreateNodeTable: %v", err)
		}
	}
	if err := store.CreateRelTable(hasAttributeDef()); err != nil {
		t.Fatalf("CreateRelTable: %v", err)
	}

	metric := Row{"id": "m1", "metric_name": "system.cpu.time", "brief": "b",
		"instrument": "counter", "stability": "stable"}
	if err := store.InsertNode("Metric", metric); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	for _, id := range []string{"cpu.mode", "cpu.logical_number"} {
		row := Row{"id": id, "type": "string", "brief": "b", "stability": "stable"}
		if err := store.InsertNode("Attribute", row); err != nil {
			t.Fatalf("InsertNode %s: %v", id, err)
		}
	}

	n, err := store.InsertRels("HasAttribute", "Metric", "Attribute", []RelInsert{
		{FromID: "m1", ToID: "cpu.mode", Props: Row{"requirement_level": "recommended"}},
		{FromID: "m1", ToID: "cpu.logical_number", Props: Row{"requirement_level": "opt_in"}},
	})
	if err != nil {
		t.Fatalf("InsertRels: %v", err)
	}
	if n != 2 {
		t.Fatalf("written = %d, want 2", n)
	}

	neighbors, err := store.Neighbors("HasAttribute", "Metric", "m1")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("len(neighbors) = %d, want 2", len(neighbors))
	}
	// Ordered by target id.
	if neighbors[0].Row["id"] != "cpu.logical_number" || neighbors[1].Row["id"] != "cpu.mode" {
		t.Errorf("neighbor order: %q, %q", neighbors[0].Row["id"], neighbors[1].Row["id"])
	}
	if neighbors[1].Props["requirement_level"] != "recommended" {
		t.Errorf("edge props lost: %+v", neighbors[1].Props)
	}

	incoming, err := store.Incoming("HasAttribute", "cpu.mode")
	if err != nil {
		t.Fatalf("Incoming: %v", err)
	}
	if len(incoming) != 1 {
		t.Fatalf("len(incoming) = %d, want 1", len(incoming))
	}
	if incoming[0].FromTable != "Metric" || incoming[0].FromID != "m1" {
		t.Errorf("incoming = %+v", incoming[0])
	}
}

func TestReinsertRelOverwritesProps(t *testing.T) {
	store := newTestStore(t)
	for _, def := range []NodeTableDef{metricDef(), attributeDef()} {
		if err := store.CreateNodeTable(def); err != nil {
			t.Fatalf("CreateNodeTable: %v", err)
		}
	}
	if err := store.CreateRelTable(hasAttributeDef()); err != nil {
		t.Fatalf("CreateRelTable: %v", err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	must(store.InsertNode("Metric", Row{"id": "m1", "metric_name": "n", "brief": "b",
		"instrument": "counter", "stability": "stable"}))
	must(store.InsertNode("Attribute", Row{"id": "a1", "type": "string", "brief": "b",
		"stability": "stable"}))

	must(store.InsertRel("HasAttribute", "Metric", "Attribute",
		RelInsert{FromID: "m1", ToID: "a1", Props: Row{"requirement_level": "required"}}))
	must(store.InsertRel("HasAttribute", "Metric", "Attribute",
		RelInsert{FromID: "m1", ToID: "a1", Props: Row{"requirement_level": "opt_in"}}))

	count, err := store.CountRels("HasAttribute")
	if err != nil {
		t.Fatalf("CountRels: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (reinsert overwrites)", count)
	}

	neighbors, err := store.Neighbors("HasAttribute", "Metric", "m1")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if neighbors[0].Props["requirement_level"] != "opt_in" {
		t.Errorf("props = %+v, want overwritten value", neighbors[0].Props)
	}
}

func TestCatalogPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.CreateNodeTable(attributeDef()); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}
	row := Row{"id": "a1", "type": "string", "brief": "b", "stability": "stable"}
	if err := s.InsertNode("Attribute", row); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	if _, ok := s.NodeTable("Attribute"); !ok {
		t.Fatal("catalog entry lost across reopen")
	}
	got, err := s.GetNode("Attribute", "a1")
	if err != nil {
		t.Fatalf("GetNode after reopen: %v", err)
	}
	if got["brief"] != "b" {
		t.Errorf("row content lost: %+v", got)
	}
}

func TestShowTables(t *testing.T) {
	store := newTestStore(t)
	for _, def := range []NodeTableDef{metricDef(), attributeDef()} {
		if err := store.CreateNodeTable(def); err != nil {
			t.Fatalf("CreateNodeTable: %v", err)
		}
	}
	if err := store.CreateRelTable(hasAttributeDef()); err != nil {
		t.Fatalf("CreateRelTable: %v", err)
	}

	tables := store.ShowTables()
	want := []TableInfo{
		{Name: "Attribute", Kind: "NODE"},
		{Name: "Metric", Kind: "NODE"},
		{Name: "HasAttribute", Kind: "REL"},
	}
	if len(tables) != len(want) {
		t.Fatalf("len = %d, want %d", len(tables), len(want))
	}
	for i, w := range want {
		if tables[i] != w {
			t.Errorf("tables[%d] = %+v, want %+v", i, tables[i], w)
		}
	}
}

func TestClosedStore(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateNodeTable(attributeDef()); err != nil {
		t.Fatalf("CreateNodeTable: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent.
	if err := store.Close(); err != nil {
		t.Fatalf("Close (repeat): %v", err)
	}

	if err := store.InsertNode("Attribute", Row{"id": "a"}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("InsertNode after close: %v", err)
	}
	if _, err := store.GetNode("Attribute", "a"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("GetNode after close: %v", err)
	}
	if err := store.CreateNodeTable(metricDef()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("CreateNodeTable after close: %v", err)
	}
}
