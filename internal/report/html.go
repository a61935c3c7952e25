package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// chartScript draws the cadence and duration charts onto the report's canvas
// elements. It is kept readable here and minified at generation time, so the
// emitted page stays small without a build step or external assets.
const chartScript = `
function drawBars(canvas, labels, values, color) {
  const ctx = canvas.getContext('2d');
  const w = canvas.width, h = canvas.height;
  const pad = 36;
  ctx.clearRect(0, 0, w, h);
  const max = Math.max(1, ...values);
  const slot = (w - pad * 2) / values.length;
  ctx.fillStyle = color;
  ctx.strokeStyle = '#888';
  ctx.font = '10px sans-serif';
  ctx.beginPath();
  ctx.moveTo(pad, pad / 2);
  ctx.lineTo(pad, h - pad);
  ctx.lineTo(w - pad / 2, h - pad);
  ctx.stroke();
  values.forEach((v, i) => {
    const bh = (v / max) * (h - pad * 1.5);
    const x = pad + i * slot + slot * 0.15;
    ctx.fillRect(x, h - pad - bh, slot * 0.7, bh);
  });
  ctx.fillStyle = '#444';
  const step = Math.max(1, Math.ceil(labels.length / 12));
  labels.forEach((label, i) => {
    if (i % step !== 0) return;
    ctx.save();
    ctx.translate(pad + i * slot + slot / 2, h - pad + 12);
    ctx.rotate(-Math.PI / 5);
    ctx.fillText(label, -ctx.measureText(label).width, 0);
    ctx.restore();
  });
  ctx.fillText(String(max), 4, pad / 2 + 8);
}

function drawLine(canvas, values, refs, color) {
  const ctx = canvas.getContext('2d');
  const w = canvas.width, h = canvas.height;
  const pad = 36;
  ctx.clearRect(0, 0, w, h);
  const max = Math.max(1, ...values, ...refs.map(r => r.value));
  const sx = (w - pad * 2) / Math.max(1, values.length - 1);
  const y = v => h - pad - (v / max) * (h - pad * 1.5);
  ctx.strokeStyle = '#888';
  ctx.beginPath();
  ctx.moveTo(pad, pad / 2);
  ctx.lineTo(pad, h - pad);
  ctx.lineTo(w - pad / 2, h - pad);
  ctx.stroke();
  ctx.font = '10px sans-serif';
  refs.forEach(ref => {
    ctx.strokeStyle = ref.color;
    ctx.setLineDash([4, 4]);
    ctx.beginPath();
    ctx.moveTo(pad, y(ref.value));
    ctx.lineTo(w - pad / 2, y(ref.value));
    ctx.stroke();
    ctx.setLineDash([]);
    ctx.fillStyle = ref.color;
    ctx.fillText(ref.label, w - pad / 2 - 60, y(ref.value) - 4);
  });
  ctx.strokeStyle = color;
  ctx.beginPath();
  values.forEach((v, i) => {
    if (i === 0) ctx.moveTo(pad, y(v)); else ctx.lineTo(pad + i * sx, y(v));
  });
  ctx.stroke();
  ctx.fillStyle = '#444';
  ctx.fillText(String(Math.round(max)), 4, pad / 2 + 8);
}

window.addEventListener('load', () => {
  const data = window.REPORT_DATA;
  if (data.cadence.values.length > 0) {
    drawBars(document.getElementById('cadence'), data.cadence.labels, data.cadence.values, '#c0392b');
  }
  if (data.durations.length > 0) {
    drawLine(document.getElementById('durations'), data.durations, [
      { label: 'median', value: data.medianSeconds, color: '#2980b9' },
      { label: 'p85', value: data.p85Seconds, color: '#e67e22' },
    ], '#c0392b');
  }
});
`

var htmlPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Heart Rate Incident Report</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 960px; color: #222; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
td, th { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f4f4f4; }
canvas { display: block; margin-bottom: 1.5em; border: 1px solid #eee; }
h1 { border-bottom: 2px solid #c0392b; padding-bottom: 4px; }
.note { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Heart Rate Incident Report</h1>
<p class="note">{{.WindowLine}}</p>
<h2>Classification</h2>
<table>
<tr><th>Metric</th><th>Value</th></tr>
{{range .SummaryRows}}<tr><td>{{.Name}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
{{if .HasIncidents}}
<h2>Incident Cadence</h2>
<canvas id="cadence" width="900" height="260"></canvas>
<h2>Incident Durations</h2>
<canvas id="durations" width="900" height="260"></canvas>
<h2>Incidents</h2>
<table>
<tr><th>ID</th><th>Start</th><th>Duration (s)</th><th>Max bpm</th><th>Class</th><th>Confidence</th><th>Workout</th><th>Notes</th></tr>
{{range .IncidentRows}}<tr><td>{{.ID}}</td><td>{{.Start}}</td><td>{{.Duration}}</td><td>{{.MaxBPM}}</td><td>{{.Class}}</td><td>{{.Confidence}}</td><td>{{.Workout}}</td><td>{{.Notes}}</td></tr>
{{end}}</table>
{{end}}
<script>window.REPORT_DATA = {{.Data}};</script>
<script>{{.Script}}</script>
</body>
</html>
`))

type htmlSummaryRow struct {
	Name  string
	Value string
}

type htmlIncidentRow struct {
	ID         int
	Start      string
	Duration   string
	MaxBPM     string
	Class      string
	Confidence string
	Workout    string
	Notes      string
}

type htmlChartData struct {
	Cadence struct {
		Labels []string `json:"labels"`
		Values []int    `json:"values"`
	} `json:"cadence"`
	Durations     []float64 `json:"durations"`
	MedianSeconds float64   `json:"medianSeconds"`
	P85Seconds    float64   `json:"p85Seconds"`
}

// RenderHTML produces the self-contained report page. The chart script is
// minified with esbuild on every call so the source above stays the single
// copy to edit.
func RenderHTML(r Result) ([]byte, error) {
	minified := api.Transform(chartScript, api.TransformOptions{
		Loader:            api.LoaderJS,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
	})
	if len(minified.Errors) > 0 {
		return nil, fmt.Errorf("minify chart script: %s", minified.Errors[0].Text)
	}

	data := htmlChartData{
		MedianSeconds: r.Summary.MedianDurationSeconds,
		P85Seconds:    r.Summary.P85DurationSeconds,
	}
	starts := r.Window.Subdivide()
	for i, count := range r.Window.BucketCounts(r.Incidents) {
		data.Cadence.Labels = append(data.Cadence.Labels, r.Window.GenerateLabel(starts[i]))
		data.Cadence.Values = append(data.Cadence.Values, count)
	}
	for _, inc := range r.Incidents {
		data.Durations = append(data.Durations, inc.DurationSeconds)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	page := struct {
		WindowLine   string
		SummaryRows  []htmlSummaryRow
		IncidentRows []htmlIncidentRow
		HasIncidents bool
		Data         template.JS
		Script       template.JS
	}{
		WindowLine:   fmt.Sprintf("Analysis window %s to %s, bucketed by %s.", r.Window.Start.Format("2006-01-02"), r.Window.End.Format("2006-01-02"), r.Window.Bucket),
		SummaryRows:  summaryRows(r),
		HasIncidents: len(r.Incidents) > 0,
		Data:         template.JS(encoded),
		Script:       template.JS(minified.Code),
	}
	for _, inc := range r.Incidents {
		page.IncidentRows = append(page.IncidentRows, htmlIncidentRow{
			ID:         inc.IncidentID,
			Start:      inc.Start.UTC().Format("2006-01-02 15:04:05"),
			Duration:   formatSeconds(inc.DurationSeconds),
			MaxBPM:     formatBPM(inc.MaxBPM),
			Class:      string(inc.Classification),
			Confidence: string(inc.Confidence),
			Workout:    inc.WorkoutType,
			Notes:      inc.Notes,
		})
	}

	var sb strings.Builder
	if err := htmlPage.Execute(&sb, page); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func summaryRows(r Result) []htmlSummaryRow {
	s := r.Summary
	rows := []htmlSummaryRow{
		{"Total incidents", fmt.Sprintf("%d", s.TotalIncidents)},
		{"Workout", fmt.Sprintf("%d", s.WorkoutCount)},
		{"Possible workout", fmt.Sprintf("%d", s.PossibleWorkoutCount)},
		{"Non-workout", fmt.Sprintf("%d", s.NonWorkoutCount)},
		{"Unknown", fmt.Sprintf("%d", s.UnknownCount)},
		{"Explained rate", fmt.Sprintf("%.1f%%", s.ExplainedRate*100)},
	}
	if s.TotalIncidents > 0 {
		rows = append(rows,
			htmlSummaryRow{"Median duration", fmt.Sprintf("%.1fs", s.MedianDurationSeconds)},
			htmlSummaryRow{"P85 duration", fmt.Sprintf("%.1fs", s.P85DurationSeconds)},
			htmlSummaryRow{"Peak", fmt.Sprintf("%.1f bpm", s.PeakBPM)},
		)
	}
	return rows
}

// WriteHTML renders the report page and writes it to path.
func WriteHTML(path string, r Result) error {
	page, err := RenderHTML(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, page, 0o644)
}
