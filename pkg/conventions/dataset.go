package conventions

import (
	"strings"

	"github.com/dd0wney/semconv-graph/pkg/logging"
	"github.com/dd0wney/semconv-graph/pkg/schema"
)

// groupTypeToTable maps the convention group "type" field to a node table.
var groupTypeToTable = map[string]string{
	"metric":          schema.TableMetric,
	"entity":          schema.TableEntity,
	"span":            schema.TableSpan,
	"attribute_group": schema.TableAttributeGroup,
	"event":           schema.TableEvent,
}

// Edge is one relationship occurrence extracted from the model: endpoint
// ids plus whatever edge properties the reference carried
// (requirement_level, condition, note, and so on).
type Edge struct {
	From  string
	To    string
	Props map[string]any
}

// Dataset is the parsed model: node sections keyed by table then id, and
// relationship edges keyed by relationship table then source table.
// Attribute nodes come both from the registry (inline definitions) and
// from groups; later definitions of the same id win, as the registry is
// the canonical source.
type Dataset struct {
	Nodes map[string]map[string]map[string]any
	Rels  map[string]map[string][]Edge

	logger logging.Logger
}

// NewDataset creates an empty Dataset covering every declared table.
func NewDataset(logger logging.Logger) *Dataset {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ds := &Dataset{
		Nodes:  make(map[string]map[string]map[string]any),
		Rels:   make(map[string]map[string][]Edge),
		logger: logger,
	}
	for _, def := range schema.NodeTables() {
		ds.Nodes[def.Name] = make(map[string]map[string]any)
	}
	for _, def := range schema.RelTables() {
		ds.Rels[def.Name] = make(map[string][]Edge)
	}
	return ds
}

// AddGroups processes the "groups" entry of one parsed model document.
func (ds *Dataset) AddGroups(doc map[string]any) {
	groups, _ := doc["groups"].([]any)
	for _, g := range groups {
		section, ok := asStringMap(g)
		if !ok {
			continue
		}

		groupType, _ := section["type"].(string)
		table, ok := groupTypeToTable[groupType]
		if !ok {
			ds.logger.Error("unknown semantic convention group",
				logging.String("type", groupType),
				logging.Any("id", section["id"]))
			continue
		}

		id, _ := section["id"].(string)
		if id == "" {
			ds.logger.Error("semantic convention group without id",
				logging.Table(table))
			continue
		}

		delete(section, "type")
		ds.Nodes[table][id] = section

		ds.relateAttributes(table, id, section["attributes"])
		ds.relateEvents(table, id, section["events"])
		if assoc, ok := section["entity_associations"]; ok {
			ds.relateEntities(table, id, assoc)
		}
		if table == schema.TableAttributeGroup {
			if _, ok := section["display_name"]; !ok {
				section["display_name"] = id
			}
		}
	}
}

// relateAttributes records HasAttribute edges for a group. An attribute
// entry is either a reference ("ref") to a registry attribute, in which
// case its remaining keys become edge properties, or an inline definition,
// which becomes an Attribute node of its own.
func (ds *Dataset) relateAttributes(table, id string, raw any) {
	attrs, _ := raw.([]any)
	for _, a := range attrs {
		data, ok := asStringMap(a)
		if !ok {
			continue
		}

		edge := Edge{From: id, Props: make(map[string]any)}
		if ref, ok := data["ref"].(string); ok {
			edge.To = ref
			delete(data, "ref")
			flattenRequirementLevel(data)
			if examples, ok := data["examples"].([]any); ok {
				// Examples are sometimes numeric; store one per line.
				data["examples"] = joinScalars(examples)
			}
			for k, v := range data {
				edge.Props[k] = v
			}
		} else {
			attrID, _ := data["id"].(string)
			if attrID == "" {
				continue
			}
			delete(data, "type")
			ds.Nodes[schema.TableAttribute][attrID] = data
			edge.To = attrID
		}
		ds.Rels[schema.RelHasAttribute][table] = append(ds.Rels[schema.RelHasAttribute][table], edge)
	}
}

// relateEvents records HasEvent edges. Event references in span groups
// are bare names; the event node ids carry an "event." prefix.
func (ds *Dataset) relateEvents(table, id string, raw any) {
	events, _ := raw.([]any)
	for _, e := range events {
		name, ok := e.(string)
		if !ok {
			continue
		}
		if !strings.HasPrefix(name, "event") {
			name = "event." + name
		}
		ds.Rels[schema.RelHasEvent][table] = append(ds.Rels[schema.RelHasEvent][table], Edge{
			From: id, To: name, Props: map[string]any{},
		})
	}
}

// relateEntities records AssociatedWith edges from entity_associations.
// Associations reference entities by bare name or by id; entity node ids
// carry an "entity." prefix, so bare names are prefixed.
func (ds *Dataset) relateEntities(table, id string, raw any) {
	entities, _ := raw.([]any)
	for _, e := range entities {
		name, ok := e.(string)
		if !ok {
			continue
		}
		if !strings.HasPrefix(name, "entity") {
			name = "entity." + name
		}
		ds.Rels[schema.RelAssociatedWith][table] = append(ds.Rels[schema.RelAssociatedWith][table], Edge{
			From: id, To: name, Props: map[string]any{},
		})
	}
}

// flattenRequirementLevel normalizes the requirement_level entry. The
// model expresses conditional levels as a nested map
// ({conditionally_required: <condition>}); the flat column form keeps the
// level name in requirement_level and the condition text in condition.
func flattenRequirementLevel(data map[string]any) {
	level, ok := asStringMap(data["requirement_level"])
	if !ok {
		return
	}
	if cond, ok := level["conditionally_required"]; ok {
		data["condition"] = cond
		data["requirement_level"] = "conditionally_required"
	}
	if cond, ok := level["recommended"]; ok {
		data["condition"] = cond
		data["requirement_level"] = "recommended"
	}
}

// Prune drops edges whose endpoints are not present in the dataset. The
// model tree legitimately references attributes and entities outside the
// directories that were read; the store rejects dangling relationship
// inserts, so those edges are dropped here, with a count per relationship.
func (ds *Dataset) Prune() map[string]int {
	dropped := make(map[string]int)
	for rel, byTable := range ds.Rels {
		target, ok := schema.RelEndpoint(rel)
		if !ok {
			continue
		}
		for table, edges := range byTable {
			kept := edges[:0]
			for _, e := range edges {
				_, fromOK := ds.Nodes[table][e.From]
				_, toOK := ds.Nodes[target][e.To]
				if fromOK && toOK {
					kept = append(kept, e)
				} else {
					dropped[rel]++
				}
			}
			byTable[table] = kept
		}
	}
	for rel, n := range dropped {
		ds.logger.Warn("dropped dangling edges",
			logging.Rel(rel), logging.Count(n))
	}
	return dropped
}

func asStringMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func joinScalars(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, scalarString(item))
	}
	return strings.Join(parts, "\n")
}
