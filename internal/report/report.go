// Package report renders classified incident sets into the formats the
// CLI and MCP surfaces hand to users: CSV and parquet tables, a summary
// JSON document, mermaid charts, and a self-contained HTML page.
package report

import (
	"encoding/json"
	"os"

	"hrtriage/internal/incident"
)

// Result bundles everything one analysis run produced. Writers take the
// pieces they need; the CLI decides which files to emit.
type Result struct {
	Incidents []incident.Incident `json:"incidents"`
	Summary   incident.Summary    `json:"summary"`
	Window    ChartWindow         `json:"window"`
}

// WriteSummaryJSON writes the summary document as indented JSON.
func WriteSummaryJSON(path string, s incident.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteResultJSON writes the full result document as indented JSON.
func WriteResultJSON(path string, r Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
