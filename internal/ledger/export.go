// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ExportEntry is a run with its records.
type ExportEntry struct {
	Run     `yaml:",inline"`
	Records []types.Record `json:"records" yaml:"records"`
}

// Export writes the runs matching opts, with their records, to w.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, opts QueryOptions) error {
	runs, err := s.Runs(ctx, opts)
	if err != nil {
		return err
	}

	entries := make([]ExportEntry, len(runs))
	for i, r := range runs {
		records, err := s.Records(ctx, r.ID, "")
		if err != nil {
			return err
		}
		entries[i] = ExportEntry{Run: r, Records: records}
	}

	var data []byte
	switch format {
	case FormatYAML, "":
		data, err = yaml.Marshal(entries)
	case FormatJSON:
		data, err = json.MarshalIndent(entries, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown export format %q (want %s or %s)", format, FormatYAML, FormatJSON)
	}
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}
