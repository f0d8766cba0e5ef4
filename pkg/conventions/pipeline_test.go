package conventions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dd0wney/semconv-graph/pkg/loader"
	"github.com/dd0wney/semconv-graph/pkg/schema"
	"github.com/dd0wney/semconv-graph/pkg/storage"
)

const pipelineModel = `groups:
  - id: registry.cpu
    type: attribute_group
    display_name: CPU Attributes
    brief: Attributes for CPU metrics.
    attributes:
      - id: cpu.mode
        type: string
        stability: stable
        brief: The CPU mode.
        examples:
          - user
          - system
  - id: metric.system.cpu.time
    type: metric
    metric_name: system.cpu.time
    instrument: counter
    unit: s
    stability: stable
    brief: Seconds each mode has spent on the CPU.
    attributes:
      - ref: cpu.mode
        requirement_level: recommended
    entity_associations:
      - host
  - id: entity.host
    type: entity
    name: host
    stability: stable
    brief: A general computing instance.
`

// TestPipeline walks the whole path: model YAML to dataset, dataset to
// import files, import files into the store, then traverses the result.
func TestPipeline(t *testing.T) {
	modelDir := t.TempDir()
	err := os.WriteFile(filepath.Join(modelDir, "model.yaml"), []byte(pipelineModel), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ds, err := NewReader(nil).ReadModelDir(modelDir)
	if err != nil {
		t.Fatalf("ReadModelDir: %v", err)
	}
	ds.Prune()

	files, err := ds.Export(t.TempDir())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	store, err := storage.Open(storage.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if err := schema.Apply(store); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	l := loader.New(store, nil, nil)
	for _, f := range files {
		if f.Rel == "" {
			if _, err := l.CopyNodes(f.Table, f.Path); err != nil {
				t.Fatalf("CopyNodes %s: %v", f.Table, err)
			}
		} else {
			if _, err := l.CopyRels(f.Rel, f.Table, f.ToTable, f.Path); err != nil {
				t.Fatalf("CopyRels %s: %v", f.Rel, err)
			}
		}
	}

	metric, err := store.GetNode(schema.TableMetric, "metric.system.cpu.time")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if metric["metric_name"] != "system.cpu.time" || metric["unit"] != "s" {
		t.Errorf("metric row = %+v", metric)
	}

	attrs, err := store.Neighbors(schema.RelHasAttribute, schema.TableMetric, "metric.system.cpu.time")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(attrs) != 1 || attrs[0].Row["id"] != "cpu.mode" {
		t.Fatalf("metric attributes = %+v", attrs)
	}
	if attrs[0].Props["requirement_level"] != "recommended" {
		t.Errorf("edge props = %+v", attrs[0].Props)
	}
	if attrs[0].Row["examples"] != "user\nsystem" {
		t.Errorf("examples = %q", attrs[0].Row["examples"])
	}

	entities, err := store.Neighbors(schema.RelAssociatedWith, schema.TableMetric, "metric.system.cpu.time")
	if err != nil {
		t.Fatalf("Neighbors entities: %v", err)
	}
	if len(entities) != 1 || entities[0].Row["id"] != "entity.host" {
		t.Fatalf("metric entities = %+v", entities)
	}

	incoming, err := store.Incoming(schema.RelHasAttribute, "cpu.mode")
	if err != nil {
		t.Fatalf("Incoming: %v", err)
	}
	want := map[string]bool{"registry.cpu": false, "metric.system.cpu.time": false}
	for _, rec := range incoming {
		want[rec.FromID] = true
	}
	for id, seen := range want {
		if !seen {
			t.Errorf("missing incoming edge from %s", id)
		}
	}
}
