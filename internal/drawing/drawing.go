// Package drawing reads and writes drawing documents: a flat list of
// curves in YAML or JSON.
package drawing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agenthands/topoclean/internal/core/common"
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/store"
)

// Entity is one curve of a document. An empty handle is assigned on load.
type Entity struct {
	Handle     model.EntityHandle `json:"handle,omitempty" yaml:"handle,omitempty"`
	geom.Curve `yaml:",inline"`
}

type Document struct {
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Entities []Entity `json:"entities" yaml:"entities"`
}

var kinds = map[geom.Kind]bool{
	geom.KindLine:       true,
	geom.KindPolyline:   true,
	geom.KindArc:        true,
	geom.KindCircle:     true,
	geom.KindAnnotation: true,
}

// Validate checks kinds, vertex counts and handle uniqueness. Degenerate
// geometry is allowed: finding it is what the detectors are for.
func (d Document) Validate() error {
	seen := make(map[model.EntityHandle]bool)
	for i, e := range d.Entities {
		if e.Kind == "" {
			return fmt.Errorf("entity %d: missing kind", i)
		}
		if !kinds[e.Kind] {
			return fmt.Errorf("entity %d: unknown kind %q", i, e.Kind)
		}
		if len(e.Vertices) == 0 {
			return fmt.Errorf("entity %d: no vertices", i)
		}
		if e.Handle == "" {
			continue
		}
		if seen[e.Handle] {
			return fmt.Errorf("entity %d: duplicate handle %s", i, e.Handle)
		}
		seen[e.Handle] = true
	}
	return nil
}

// Parse decodes and validates a document.
func Parse(data []byte) (Document, error) {
	doc, err := common.Decode[Document](data)
	if err != nil {
		return Document{}, err
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ReadFile parses the document at path.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read drawing '%s': %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse drawing '%s': %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// FormatFor picks the encoding from a file extension; YAML by default.
func FormatFor(path string) common.Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return common.FormatJSON
	}
	return common.FormatYAML
}

// WriteFile encodes doc in the format of path.
func WriteFile(path string, doc Document) error {
	data, err := common.Encode(doc, FormatFor(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write drawing '%s': %w", path, err)
	}
	return nil
}

// Load adds every entity to l and returns their handles in document order.
func (d Document) Load(ctx context.Context, l store.Loader) ([]model.EntityHandle, error) {
	out := make([]model.EntityHandle, 0, len(d.Entities))
	for i, e := range d.Entities {
		if e.Handle != "" {
			if err := l.AddWithHandle(ctx, e.Handle, e.Curve); err != nil {
				return out, fmt.Errorf("failed to load entity %d: %w", i, err)
			}
			out = append(out, e.Handle)
			continue
		}
		h, err := l.Add(ctx, e.Curve)
		if err != nil {
			return out, fmt.Errorf("failed to load entity %d: %w", i, err)
		}
		out = append(out, h)
	}
	return out, nil
}

// Export reads every live entity of s into a document.
func Export(ctx context.Context, s store.EntityStore, name string) (Document, error) {
	es, err := store.Snapshot(ctx, s)
	if err != nil {
		return Document{}, fmt.Errorf("failed to export drawing: %w", err)
	}
	doc := Document{Name: name, Entities: make([]Entity, 0, len(es))}
	for _, e := range es {
		doc.Entities = append(doc.Entities, Entity{Handle: e.Handle, Curve: e.Geometry})
	}
	return doc, nil
}
