package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hrtriage/internal/pipeline"
	"hrtriage/internal/report"
)

var (
	analyzeInput       string
	analyzeWorkouts    string
	analyzeOutput      string
	analyzeThreshold   float64
	analyzeGap         float64
	analyzeMinDuration float64
	analyzeStartDate   string
	analyzeEndDate     string
	analyzeCSVName     string
	analyzeFormat      string
	analyzeCharts      bool
	analyzeOpen        bool
	analyzeNoCache     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze heart-rate exports and write incident reports",
	Long: `Scans the input directory for .csv and .fit exports, groups above-threshold
samples into incidents, classifies each incident against workout logs and
activity signals, and writes the incident table plus summary reports to the
output directory.`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeInput, "input", "i", "", "input directory (default: DATA_PATH)")
	f.StringVar(&analyzeWorkouts, "workouts-input", "", "separate directory holding workout logs")
	f.StringVarP(&analyzeOutput, "output", "o", "", "report output directory (default: DATA_PATH/reports)")
	f.Float64Var(&analyzeThreshold, "threshold", 0, "heart-rate threshold in bpm (default: THRESHOLD_BPM or 140)")
	f.Float64Var(&analyzeGap, "gap-seconds", 0, "max quiet gap in seconds before an incident closes (default: MAX_GAP_SECONDS or 120)")
	f.Float64Var(&analyzeMinDuration, "min-duration-seconds", 0, "drop incidents shorter than this many seconds")
	f.StringVar(&analyzeStartDate, "start-date", "", "window start as YYYY-MM-DD (overrides the rolling window)")
	f.StringVar(&analyzeEndDate, "end-date", "", "window end as YYYY-MM-DD, inclusive of the whole day")
	f.StringVar(&analyzeCSVName, "csv-name", "incidents.csv", "file name for the incident table")
	f.StringVar(&analyzeFormat, "format", "csv", "incident table format: csv, parquet, or both")
	f.BoolVar(&analyzeCharts, "charts", false, "embed mermaid charts in the markdown summary (default: ENABLE_MERMAID_CHARTS)")
	f.BoolVar(&analyzeOpen, "open", false, "open the HTML report in the browser when done")
	f.BoolVar(&analyzeNoCache, "no-cache", false, "bypass the sample cache and re-ingest every file")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	switch analyzeFormat {
	case "csv", "parquet", "both":
	default:
		return fmt.Errorf("unknown --format %q (want csv, parquet, or both)", analyzeFormat)
	}

	inputDir := analyzeInput
	if inputDir == "" {
		inputDir = cfg.DataPath
	}
	outDir := analyzeOutput
	if outDir == "" {
		outDir = filepath.Join(cfg.DataPath, "reports")
	}

	start, end, err := pipeline.DateRange(analyzeStartDate, analyzeEndDate)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		InputDir:           inputDir,
		WorkoutsDir:        analyzeWorkouts,
		ThresholdBPM:       cfg.Analysis.ThresholdBPM,
		MaxGapSeconds:      cfg.Analysis.MaxGapSeconds,
		MinDurationSeconds: cfg.Analysis.MinDurationSeconds,
		WindowMonths:       cfg.Analysis.WindowMonths,
		StartDate:          start,
		EndDate:            end,
		CachePath:          filepath.Join(cfg.CacheDir, "samples.db"),
	}
	if analyzeThreshold > 0 {
		opts.ThresholdBPM = analyzeThreshold
	}
	if analyzeGap > 0 {
		opts.MaxGapSeconds = analyzeGap
	}
	if cmd.Flags().Changed("min-duration-seconds") {
		opts.MinDurationSeconds = analyzeMinDuration
	}
	if analyzeNoCache {
		opts.CachePath = ""
	}

	res, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", outDir, err)
	}

	charts := cfg.EnableMermaidCharts
	if cmd.Flags().Changed("charts") {
		charts = analyzeCharts
	}

	result := report.Result{
		Incidents: res.Incidents,
		Summary:   res.Summary,
		Window:    report.NewChartWindow(res.Window.Start, res.Window.End, "week"),
	}

	written := make([]string, 0, 6)
	if analyzeFormat == "csv" || analyzeFormat == "both" {
		path := filepath.Join(outDir, analyzeCSVName)
		if err := report.WriteIncidentsCSV(path, res.Incidents); err != nil {
			return fmt.Errorf("writing incident CSV: %w", err)
		}
		written = append(written, path)
	}
	if analyzeFormat == "parquet" || analyzeFormat == "both" {
		name := strings.TrimSuffix(analyzeCSVName, filepath.Ext(analyzeCSVName)) + ".parquet"
		path := filepath.Join(outDir, name)
		if err := report.WriteIncidentsParquet(path, res.Incidents); err != nil {
			return fmt.Errorf("writing incident parquet: %w", err)
		}
		written = append(written, path)
	}

	summaryPath := filepath.Join(outDir, "summary.json")
	if err := report.WriteSummaryJSON(summaryPath, res.Summary); err != nil {
		return fmt.Errorf("writing summary JSON: %w", err)
	}
	written = append(written, summaryPath)

	resultPath := filepath.Join(outDir, "result.json")
	if err := report.WriteResultJSON(resultPath, result); err != nil {
		return fmt.Errorf("writing result JSON: %w", err)
	}
	written = append(written, resultPath)

	markdownPath := filepath.Join(outDir, "summary.md")
	if err := report.WriteSummaryMarkdown(markdownPath, result, charts); err != nil {
		return fmt.Errorf("writing markdown summary: %w", err)
	}
	written = append(written, markdownPath)

	htmlPath := filepath.Join(outDir, "report.html")
	if err := report.WriteHTML(htmlPath, result); err != nil {
		return fmt.Errorf("writing HTML report: %w", err)
	}
	written = append(written, htmlPath)

	log.Info().
		Int("incidents", len(res.Incidents)).
		Strs("files", written).
		Msg("Reports written")

	if analyzeOpen {
		if err := browser.OpenFile(htmlPath); err != nil {
			log.Warn().Err(err).Str("path", htmlPath).Msg("Failed to open report in browser")
		}
	}
	return nil
}
