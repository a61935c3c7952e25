package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"hrtriage/internal/incident"
	"hrtriage/internal/ingest"
	"hrtriage/internal/pipeline"
)

// analyzeArgs are the wire arguments shared by analyze_incidents and
// classification_breakdown. Zero values defer to the server defaults.
type analyzeArgs struct {
	InputPath          string  `json:"input_path"`
	WorkoutsPath       string  `json:"workouts_path,omitempty"`
	Threshold          float64 `json:"threshold,omitempty"`
	GapSeconds         float64 `json:"gap_seconds,omitempty"`
	MinDurationSeconds float64 `json:"min_duration_seconds,omitempty"`
	StartDate          string  `json:"start_date,omitempty"`
	EndDate            string  `json:"end_date,omitempty"`
}

type probeArgs struct {
	InputPath string `json:"input_path"`
}

// analyzeResult is the wire shape of analyze_incidents.
type analyzeResult struct {
	Incidents []incident.Incident `json:"incidents"`
	Summary   incident.Summary    `json:"summary"`
	Window    ingest.Window       `json:"window"`
	FromCache bool                `json:"fromCache"`
}

type probeResult struct {
	Files []*ingest.SchemaReport `json:"files"`
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

// analyzeSchema is spelled out by hand rather than inferred from the struct
// so every argument carries a description and a bound the client can see.
func analyzeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"input_path": {
				Type:        "string",
				MinLength:   intp(1),
				Description: "Directory containing heart-rate exports (.csv or .fit), scanned recursively.",
			},
			"workouts_path": {
				Type:        "string",
				Description: "Optional second directory holding workout session logs.",
			},
			"threshold": {
				Type:             "number",
				ExclusiveMinimum: f64(0),
				Description:      "Heart-rate threshold in bpm; only samples strictly above it qualify. Default 140.",
			},
			"gap_seconds": {
				Type:             "number",
				ExclusiveMinimum: f64(0),
				Description:      "Maximum quiet gap in seconds before an incident closes. Default 120.",
			},
			"min_duration_seconds": {
				Type:        "number",
				Minimum:     f64(0),
				Description: "Drop incidents shorter than this many seconds (0 keeps everything).",
			},
			"start_date": {
				Type:        "string",
				Pattern:     `^\d{4}-\d{2}-\d{2}$`,
				Description: "Window start as YYYY-MM-DD (UTC). Overrides the rolling window.",
			},
			"end_date": {
				Type:        "string",
				Pattern:     `^\d{4}-\d{2}-\d{2}$`,
				Description: "Window end as YYYY-MM-DD (UTC), inclusive of the whole day.",
			},
		},
		Required: []string{"input_path"},
	}
}

func probeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"input_path": {
				Type:        "string",
				MinLength:   intp(1),
				Description: "Directory to probe, scanned recursively for .csv and .fit files.",
			},
		},
		Required: []string{"input_path"},
	}
}

func analyzeTool() *sdk.Tool {
	return &sdk.Tool{
		Name: "analyze_incidents",
		Description: "Analyze heart-rate exports for elevated incidents: group above-threshold samples, " +
			"classify each incident against workout logs and activity signals, and return the full " +
			"incident list with a summary.",
		InputSchema: analyzeSchema(),
	}
}

func breakdownTool() *sdk.Tool {
	return &sdk.Tool{
		Name: "classification_breakdown",
		Description: "Run the same analysis as analyze_incidents but return only the summary: counts per " +
			"classification, explained rate, duration percentiles, peak, and weekly cadence.",
		InputSchema: analyzeSchema(),
	}
}

func probeTool() *sdk.Tool {
	return &sdk.Tool{
		Name: "probe_schema",
		Description: "Probe each file under a directory and report what it looks like (samples, workouts, " +
			"signals, records) and which column plays which role, without loading any data.",
		InputSchema: probeSchema(),
	}
}

func (s *Server) handleAnalyze(ctx context.Context, req *sdk.CallToolRequest, args analyzeArgs) (*sdk.CallToolResult, any, error) {
	opts, err := s.options(args)
	if err != nil {
		return nil, nil, err
	}
	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	incidents := res.Incidents
	if incidents == nil {
		incidents = []incident.Incident{}
	}
	return textResult(analyzeResult{
		Incidents: incidents,
		Summary:   res.Summary,
		Window:    res.Window,
		FromCache: res.FromCache,
	})
}

func (s *Server) handleBreakdown(ctx context.Context, req *sdk.CallToolRequest, args analyzeArgs) (*sdk.CallToolResult, any, error) {
	opts, err := s.options(args)
	if err != nil {
		return nil, nil, err
	}
	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return textResult(res.Summary)
}

func (s *Server) handleProbe(ctx context.Context, req *sdk.CallToolRequest, args probeArgs) (*sdk.CallToolResult, any, error) {
	reports, err := ingest.ProbeDir(args.InputPath)
	if err != nil {
		return nil, nil, err
	}
	return textResult(probeResult{Files: reports})
}

// options merges tool arguments over the server defaults.
func (s *Server) options(args analyzeArgs) (pipeline.Options, error) {
	start, end, err := pipeline.DateRange(args.StartDate, args.EndDate)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		InputDir:           args.InputPath,
		WorkoutsDir:        args.WorkoutsPath,
		ThresholdBPM:       s.defaults.ThresholdBPM,
		MaxGapSeconds:      s.defaults.MaxGapSeconds,
		MinDurationSeconds: args.MinDurationSeconds,
		WindowMonths:       s.defaults.WindowMonths,
		StartDate:          start,
		EndDate:            end,
		CachePath:          s.defaults.CachePath,
	}
	if args.Threshold > 0 {
		opts.ThresholdBPM = args.Threshold
	}
	if args.GapSeconds > 0 {
		opts.MaxGapSeconds = args.GapSeconds
	}
	return opts, nil
}

// textResult renders v as indented JSON text content.
func textResult(v any) (*sdk.CallToolResult, any, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(out)}},
	}, nil, nil
}
