// Package schema declares the graph tables for OpenTelemetry
// semantic-convention data: six node tables and three relationship
// tables. The declarations mirror the convention registry structure at
// https://github.com/open-telemetry/semantic-conventions/tree/main/model.
package schema

import (
	"github.com/dd0wney/semconv-graph/pkg/storage"
)

// Node table names.
const (
	TableAttributeGroup = "AttributeGroup"
	TableAttribute      = "Attribute"
	TableSpan           = "Span"
	TableEntity         = "Entity"
	TableEvent          = "Event"
	TableMetric         = "Metric"
)

// Relationship table names.
const (
	RelHasAttribute   = "HasAttribute"
	RelHasEvent       = "HasEvent"
	RelAssociatedWith = "AssociatedWith"
)

func col(name string) storage.Column {
	return storage.Column{Name: name}
}

func colDefault(name, def string) storage.Column {
	return storage.Column{Name: name, HasDefault: true, Default: def}
}

// NodeTables returns the node table definitions in declaration order.
// Order matters only in that all node tables precede relationship tables.
func NodeTables() []storage.NodeTableDef {
	return []storage.NodeTableDef{
		{
			Name: TableAttributeGroup,
			Columns: []storage.Column{
				col("display_name"),
				col("brief"),
			},
		},
		{
			Name: TableAttribute,
			Columns: []storage.Column{
				col("stability"),
				col("brief"),
				col("examples"),
				col("note"),
			},
		},
		{
			Name: TableSpan,
			Columns: []storage.Column{
				col("span_kind"),
				col("stability"),
				col("brief"),
				col("note"),
				colDefault("example", ""),
			},
		},
		{
			Name: TableEntity,
			Columns: []storage.Column{
				col("stability"),
				col("brief"),
				col("name"),
			},
		},
		{
			Name: TableEvent,
			Columns: []storage.Column{
				col("stability"),
				col("brief"),
				col("name"),
				colDefault("example", ""),
			},
		},
		{
			Name: TableMetric,
			Columns: []storage.Column{
				col("stability"),
				col("brief"),
				col("metric_name"),
				col("instrument"),
				colDefault("unit", ""),
				colDefault("example", ""),
			},
		},
	}
}

// RelTables returns the relationship table definitions. HasAttribute is
// the structurally interesting one: five source tables share the single
// relationship table, all pointed at Attribute.
func RelTables() []storage.RelTableDef {
	return []storage.RelTableDef{
		{
			Name: RelHasAttribute,
			Pairs: []storage.Pair{
				{From: TableAttributeGroup, To: TableAttribute},
				{From: TableMetric, To: TableAttribute},
				{From: TableEntity, To: TableAttribute},
				{From: TableSpan, To: TableAttribute},
				{From: TableEvent, To: TableAttribute},
			},
		},
		{
			Name: RelHasEvent,
			Pairs: []storage.Pair{
				{From: TableSpan, To: TableEvent},
			},
		},
		{
			Name: RelAssociatedWith,
			Pairs: []storage.Pair{
				{From: TableMetric, To: TableEntity},
			},
		},
	}
}

// Apply declares every table in dependency order: node tables first, then
// the relationship tables that reference them. Re-applying against an
// already-initialized store is a no-op; a store holding a conflicting
// definition for any table fails the whole application.
func Apply(store *storage.Store) error {
	for _, def := range NodeTables() {
		if err := store.CreateNodeTable(def); err != nil {
			return err
		}
	}
	for _, def := range RelTables() {
		if err := store.CreateRelTable(def); err != nil {
			return err
		}
	}
	return nil
}

// RelEndpoint maps each relationship table to its target node table, the
// way the convention data references them (attributes by ref, events and
// entities by name).
func RelEndpoint(rel string) (string, bool) {
	switch rel {
	case RelHasAttribute:
		return TableAttribute, true
	case RelHasEvent:
		return TableEvent, true
	case RelAssociatedWith:
		return TableEntity, true
	default:
		return "", false
	}
}
