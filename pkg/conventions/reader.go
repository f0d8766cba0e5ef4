// Package conventions reads the OpenTelemetry semantic-conventions model
// tree (the YAML registry at
// https://github.com/open-telemetry/semantic-conventions/tree/main/model)
// and turns it into a Dataset of node rows and relationship edges ready
// for bulk import.
package conventions

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/semconv-graph/pkg/logging"
)

// Reader walks a model directory and accumulates a Dataset.
type Reader struct {
	logger logging.Logger
}

// NewReader creates a Reader. logger may be nil.
func NewReader(logger logging.Logger) *Reader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Reader{logger: logger}
}

// ReadModelDir reads every semantic-convention YAML file under dir and
// its subdirectories. Files that fail to parse are logged and skipped;
// only a missing directory is an error.
func (r *Reader) ReadModelDir(dir string) (*Dataset, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "read model dir", Path: dir, Err: fs.ErrInvalid}
	}

	ds := NewDataset(r.logger)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			r.logger.Error("failed to read model file",
				logging.Path(path), logging.Error(err))
			return nil
		}

		var doc map[string]any
		if err := yaml.Unmarshal(content, &doc); err != nil {
			r.logger.Error("failed to parse model file",
				logging.Path(path), logging.Error(err))
			return nil
		}
		if doc == nil {
			return nil
		}

		ds.AddGroups(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
