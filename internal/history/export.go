// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes the runs matching q to w as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, q Query) error {
	runs, err := s.exportRuns(ctx, q)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the runs matching q to w as an indented JSON array.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, q Query) error {
	runs, err := s.exportRuns(ctx, q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) exportRuns(ctx context.Context, q Query) ([]Run, error) {
	if q.Limit <= 0 {
		q.Limit = exportLimit
	}
	runs, err := s.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	return runs, nil
}
