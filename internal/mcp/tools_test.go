package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"hrtriage/internal/incident"
	"hrtriage/internal/ingest"
)

const samplesCSV = `timestamp,bpm
2025-03-10T08:00:00Z,150
2025-03-10T08:00:30Z,165
2025-03-10T08:01:00Z,155
2025-03-10T08:30:00Z,150
`

const workoutsCSV = `start,end,type
2025-03-10T07:55:00Z,2025-03-10T08:20:00Z,Running
`

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{"hr.csv": samplesCSV, "workouts.csv": workoutsCSV} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing fixture %s: %v", name, err)
		}
	}
	return dir
}

func newTestServer() *Server {
	return NewServer("test", Defaults{})
}

// resultText extracts the single text content block from a tool result.
func resultText(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("tool result should carry exactly one content block, got %+v", res)
	}
	text, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("content block is %T, want *sdk.TextContent", res.Content[0])
	}
	return text.Text
}

func TestAnalyzeIncidents(t *testing.T) {
	s := newTestServer()
	res, _, err := s.handleAnalyze(context.Background(), nil, analyzeArgs{
		InputPath: fixtureDir(t),
		StartDate: "2025-03-01",
		EndDate:   "2025-03-31",
	})
	if err != nil {
		t.Fatalf("analyze_incidents error: %v", err)
	}

	var got analyzeResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if len(got.Incidents) != 2 {
		t.Fatalf("got %d incidents, want 2", len(got.Incidents))
	}
	if got.Incidents[0].Classification != incident.ClassWorkout {
		t.Errorf("first incident = %s, want workout", got.Incidents[0].Classification)
	}
	if got.Incidents[1].Classification != incident.ClassNonWorkout {
		t.Errorf("second incident = %s, want non_workout", got.Incidents[1].Classification)
	}
	if got.Summary.TotalIncidents != 2 {
		t.Errorf("summary total = %d, want 2", got.Summary.TotalIncidents)
	}
	if got.FromCache {
		t.Errorf("run without a cache path reported fromCache")
	}
	if want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC); !got.Window.Start.Equal(want) {
		t.Errorf("window start = %v, want %v", got.Window.Start, want)
	}
	if want := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond); !got.Window.End.Equal(want) {
		t.Errorf("window end = %v, want %v", got.Window.End, want)
	}
}

func TestAnalyzeThresholdOverride(t *testing.T) {
	s := newTestServer()
	res, _, err := s.handleAnalyze(context.Background(), nil, analyzeArgs{
		InputPath: fixtureDir(t),
		Threshold: 200,
		StartDate: "2025-03-01",
		EndDate:   "2025-03-31",
	})
	if err != nil {
		t.Fatalf("analyze_incidents error: %v", err)
	}

	text := resultText(t, res)
	// An empty run still renders a list, not null.
	if !strings.Contains(text, `"incidents": []`) {
		t.Errorf("empty incident list should render as [], got:\n%s", text)
	}
}

func TestAnalyzeRejectsBadDate(t *testing.T) {
	s := newTestServer()
	_, _, err := s.handleAnalyze(context.Background(), nil, analyzeArgs{
		InputPath: fixtureDir(t),
		StartDate: "03/01/2025",
	})
	if err == nil {
		t.Fatal("analyze_incidents should reject a non-ISO date")
	}
}

func TestAnalyzeMissingDir(t *testing.T) {
	s := newTestServer()
	_, _, err := s.handleAnalyze(context.Background(), nil, analyzeArgs{
		InputPath: filepath.Join(t.TempDir(), "missing"),
	})
	if err == nil {
		t.Fatal("analyze_incidents should fail on a missing input directory")
	}
}

func TestClassificationBreakdown(t *testing.T) {
	s := newTestServer()
	res, _, err := s.handleBreakdown(context.Background(), nil, analyzeArgs{
		InputPath: fixtureDir(t),
		StartDate: "2025-03-01",
		EndDate:   "2025-03-31",
	})
	if err != nil {
		t.Fatalf("classification_breakdown error: %v", err)
	}

	text := resultText(t, res)
	var summary incident.Summary
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if summary.TotalIncidents != 2 || summary.WorkoutCount != 1 || summary.NonWorkoutCount != 1 {
		t.Errorf("summary = %+v, want 2 total, 1 workout, 1 non-workout", summary)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &keys); err != nil {
		t.Fatalf("result is not a JSON object: %v", err)
	}
	if _, ok := keys["incidents"]; ok {
		t.Errorf("breakdown must not include the incident list")
	}
}

func TestProbeSchemaTool(t *testing.T) {
	s := newTestServer()
	res, _, err := s.handleProbe(context.Background(), nil, probeArgs{InputPath: fixtureDir(t)})
	if err != nil {
		t.Fatalf("probe_schema error: %v", err)
	}

	var got probeResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if len(got.Files) != 2 {
		t.Fatalf("probed %d files, want 2", len(got.Files))
	}
	kinds := make(map[string]ingest.FileKind)
	for _, f := range got.Files {
		kinds[filepath.Base(f.Path)] = f.Kind
	}
	if kinds["hr.csv"] != ingest.KindSamples {
		t.Errorf("hr.csv kind = %q, want samples", kinds["hr.csv"])
	}
	if kinds["workouts.csv"] != ingest.KindWorkouts {
		t.Errorf("workouts.csv kind = %q, want workouts", kinds["workouts.csv"])
	}
}

func TestToolDefinitions(t *testing.T) {
	analyze, breakdown, probe := analyzeTool(), breakdownTool(), probeTool()

	if analyze.Name != "analyze_incidents" || breakdown.Name != "classification_breakdown" || probe.Name != "probe_schema" {
		t.Fatalf("unexpected tool names: %s, %s, %s", analyze.Name, breakdown.Name, probe.Name)
	}

	schema := analyze.InputSchema
	if len(schema.Required) != 1 || schema.Required[0] != "input_path" {
		t.Errorf("analyze schema required = %v, want [input_path]", schema.Required)
	}
	for _, prop := range []string{"input_path", "workouts_path", "threshold", "gap_seconds", "min_duration_seconds", "start_date", "end_date"} {
		if _, ok := schema.Properties[prop]; !ok {
			t.Errorf("analyze schema is missing property %q", prop)
		}
	}
	if schema.Properties["threshold"].ExclusiveMinimum == nil {
		t.Errorf("threshold should carry an exclusive minimum")
	}
	if schema.Properties["threshold"].Description == "" {
		t.Errorf("threshold should carry a description")
	}

	if req := probe.InputSchema.Required; len(req) != 1 || req[0] != "input_path" {
		t.Errorf("probe schema required = %v, want [input_path]", req)
	}
}

func TestServerBuild(t *testing.T) {
	// AddTool validates schemas at registration time, so a successful build
	// means every tool declaration is well formed.
	if srv := newTestServer().build(); srv == nil {
		t.Fatal("build() returned nil")
	}
}
