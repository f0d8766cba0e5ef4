package graphql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/semconv-graph/pkg/storage"
)

// relFieldNames maps relationship tables to the nested field name exposed
// on their source types. Anything not listed falls back to the pluralized
// target type name.
var relFieldNames = map[string]string{
	"HasAttribute":   "attributes",
	"HasEvent":       "events",
	"AssociatedWith": "entities",
}

// GenerateSchema builds the read-only GraphQL schema from the store's
// table catalog: one object type per node table with its declared columns,
// relationship traversal as nested list fields, and singular/plural query
// fields per table. There is no Mutation type; the catalog is served
// read-only.
func GenerateSchema(store *storage.Store) (graphql.Schema, error) {
	nodeTypes := make(map[string]*graphql.Object)
	for _, def := range store.NodeTables() {
		nodeTypes[def.Name] = createNodeType(def)
	}

	// Relationship fields are attached after all types exist so a
	// relationship may target any table regardless of declaration order.
	for _, relDef := range store.RelTables() {
		attachRelFields(store, relDef, nodeTypes)
	}

	queryFields := graphql.Fields{
		"health": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return "ok", nil
			},
		},
	}

	for _, def := range store.NodeTables() {
		nodeType := nodeTypes[def.Name]
		table := def.Name

		singular := fieldName(table)
		queryFields[singular] = &graphql.Field{
			Type: nodeType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{
					Type: graphql.NewNonNull(graphql.ID),
				},
			},
			Resolve: createNodeResolver(store, table),
		}

		queryFields[pluralize(singular)] = &graphql.Field{
			Type:    graphql.NewList(nodeType),
			Resolve: createNodesResolver(store, table),
		}
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: queryFields,
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

// createNodeType creates a GraphQL object type for a node table: the id
// plus one String field per declared column.
func createNodeType(def storage.NodeTableDef) *graphql.Object {
	fields := graphql.Fields{
		"id": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.ID),
			Resolve: createColumnResolver(storage.PrimaryKey),
		},
	}
	for _, column := range def.Columns {
		fields[column.Name] = &graphql.Field{
			Type:    graphql.String,
			Resolve: createColumnResolver(column.Name),
		}
	}
	return graphql.NewObject(graphql.ObjectConfig{
		Name:   def.Name,
		Fields: fields,
	})
}

// attachRelFields adds a nested list field to every source type of the
// relationship table, returning rows of the target type.
func attachRelFields(store *storage.Store, relDef storage.RelTableDef, nodeTypes map[string]*graphql.Object) {
	seen := make(map[string]bool)
	for _, pair := range relDef.Pairs {
		if seen[pair.From] {
			continue
		}
		seen[pair.From] = true

		sourceType, ok := nodeTypes[pair.From]
		if !ok {
			continue
		}
		targetType, ok := nodeTypes[pair.To]
		if !ok {
			continue
		}

		name := relFieldNames[relDef.Name]
		if name == "" {
			name = pluralize(fieldName(pair.To))
		}
		sourceType.AddFieldConfig(name, &graphql.Field{
			Type:    graphql.NewList(targetType),
			Resolve: createNeighborsResolver(store, relDef.Name, pair.From),
		})
	}
}

// createColumnResolver resolves a column from a stored row.
func createColumnResolver(column string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		if row, ok := p.Source.(storage.Row); ok {
			return row[column], nil
		}
		return nil, nil
	}
}

// createNodeResolver creates a resolver fetching a single row by primary
// key. A missing row resolves to null rather than an error.
func createNodeResolver(store *storage.Store, table string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		id, ok := p.Args["id"].(string)
		if !ok {
			return nil, fmt.Errorf("id argument is required")
		}

		row, err := store.GetNode(table, id)
		if err != nil {
			if errors.Is(err, storage.ErrRowNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return row, nil
	}
}

// createNodesResolver creates a resolver returning every row of a table.
func createNodesResolver(store *storage.Store, table string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		return store.ScanNodes(table)
	}
}

// createNeighborsResolver creates a resolver traversing a relationship
// table from a source row.
func createNeighborsResolver(store *storage.Store, rel, fromTable string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		row, ok := p.Source.(storage.Row)
		if !ok {
			return nil, nil
		}
		neighbors, err := store.Neighbors(rel, fromTable, row[storage.PrimaryKey])
		if err != nil {
			return nil, err
		}
		rows := make([]storage.Row, 0, len(neighbors))
		for _, n := range neighbors {
			rows = append(rows, n.Row)
		}
		return rows, nil
	}
}

// fieldName lowercases the leading character of a table name
// (AttributeGroup -> attributeGroup).
func fieldName(table string) string {
	if table == "" {
		return table
	}
	return strings.ToLower(table[:1]) + table[1:]
}

// pluralize forms the plural query field name (entity -> entities,
// metric -> metrics).
func pluralize(name string) string {
	if strings.HasSuffix(name, "y") {
		return name[:len(name)-1] + "ies"
	}
	return name + "s"
}
