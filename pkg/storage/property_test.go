package storage

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestStoreInvariants uses property-based testing to verify invariants that
// should hold for any sequence of valid store operations.
func TestStoreInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	// Property 1: An inserted row reads back with every declared column.
	properties.Property("insert then get round-trips", prop.ForAll(
		func(id, brief string) bool {
			if id == "" {
				return true // Empty primary key is rejected elsewhere
			}
			store := newPropertyStore(t)
			defer store.Close()

			row := Row{"id": id, "type": "string", "brief": brief, "stability": "stable"}
			if err := store.InsertNode("Attribute", row); err != nil {
				return false
			}

			got, err := store.GetNode("Attribute", id)
			if err != nil {
				return false
			}
			return got["id"] == id &&
				got["brief"] == brief &&
				got["examples"] == "" // default applied
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	// Property 2: A batch of distinct ids grows the count by exactly its size.
	properties.Property("batch insert grows count by batch size", prop.ForAll(
		func(ids []string) bool {
			store := newPropertyStore(t)
			defer store.Close()

			distinct := make(map[string]bool)
			var rows []Row
			for _, id := range ids {
				if id == "" || distinct[id] {
					continue
				}
				distinct[id] = true
				rows = append(rows, Row{
					"id": id, "type": "string", "brief": "b", "stability": "stable",
				})
			}
			if len(rows) == 0 {
				return true
			}

			n, err := store.InsertNodes("Attribute", rows)
			if err != nil || n != len(rows) {
				return false
			}
			count, err := store.CountNodes("Attribute")
			return err == nil && count == len(rows)
		},
		gen.SliceOf(gen.Identifier()),
	))

	// Property 3: A batch containing any duplicate leaves the table unchanged.
	properties.Property("failed batch writes nothing", prop.ForAll(
		func(id string) bool {
			if id == "" {
				return true
			}
			store := newPropertyStore(t)
			defer store.Close()

			seed := Row{"id": id, "type": "string", "brief": "b", "stability": "stable"}
			if err := store.InsertNode("Attribute", seed); err != nil {
				return false
			}

			batch := []Row{
				{"id": id + ".fresh", "type": "string", "brief": "b", "stability": "stable"},
				{"id": id, "type": "string", "brief": "b", "stability": "stable"},
			}
			if _, err := store.InsertNodes("Attribute", batch); err == nil {
				return false
			}
			count, err := store.CountNodes("Attribute")
			return err == nil && count == 1
		},
		gen.Identifier(),
	))

	// Property 4: Scan order is always ascending by primary key.
	properties.Property("scan is ordered by primary key", prop.ForAll(
		func(ids []string) bool {
			store := newPropertyStore(t)
			defer store.Close()

			seen := make(map[string]bool)
			for _, id := range ids {
				if id == "" || seen[id] {
					continue
				}
				seen[id] = true
				row := Row{"id": id, "type": "string", "brief": "b", "stability": "stable"}
				if err := store.InsertNode("Attribute", row); err != nil {
					return false
				}
			}

			rows, err := store.ScanNodes("Attribute")
			if err != nil {
				return false
			}
			for i := 1; i < len(rows); i++ {
				if rows[i-1]["id"] >= rows[i]["id"] {
					return false
				}
			}
			return len(rows) == len(seen)
		},
		gen.SliceOf(gen.Identifier()),
	))

	// Property 5: A successfully inserted relationship always has both
	// endpoints resolvable, and the target shows up in Neighbors.
	properties.Property("relationships never dangle", prop.ForAll(
		func(metricID, attrID string) bool {
			if metricID == "" || attrID == "" {
				return true
			}
			store := newPropertyStore(t)
			defer store.Close()

			metric := Row{"id": metricID, "metric_name": "n", "brief": "b",
				"instrument": "counter", "stability": "stable"}
			attr := Row{"id": attrID, "type": "string", "brief": "b", "stability": "stable"}
			if err := store.InsertNode("Metric", metric); err != nil {
				return false
			}
			if err := store.InsertNode("Attribute", attr); err != nil {
				return false
			}

			ins := RelInsert{FromID: metricID, ToID: attrID}
			if err := store.InsertRel("HasAttribute", "Metric", "Attribute", ins); err != nil {
				return false
			}

			neighbors, err := store.Neighbors("HasAttribute", "Metric", metricID)
			if err != nil || len(neighbors) != 1 {
				return false
			}
			return neighbors[0].Row["id"] == attrID
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// newPropertyStore creates an in-memory store with the tables the
// properties exercise.
func newPropertyStore(t *testing.T) *Store {
	store, err := Open(Options{InMemory: true})
	if err != nil {
		t.Skipf("Failed to open test store: %v", err)
	}

	defs := []NodeTableDef{
		{
			Name: "Attribute",
			Columns: []Column{
				{Name: "type"},
				{Name: "brief"},
				{Name: "examples", HasDefault: true},
				{Name: "stability"},
			},
		},
		{
			Name: "Metric",
			Columns: []Column{
				{Name: "metric_name"},
				{Name: "brief"},
				{Name: "instrument"},
				{Name: "unit", HasDefault: true},
				{Name: "stability"},
			},
		},
	}
	for _, def := range defs {
		if err := store.CreateNodeTable(def); err != nil {
			store.Close()
			t.Skipf("Failed to create table: %v", err)
		}
	}
	rel := RelTableDef{
		Name:  "HasAttribute",
		Pairs: []Pair{{From: "Metric", To: "Attribute"}},
	}
	if err := store.CreateRelTable(rel); err != nil {
		store.Close()
		t.Skipf("Failed to create rel table: %v", err)
	}
	return store
}
