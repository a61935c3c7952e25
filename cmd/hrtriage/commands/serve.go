package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"hrtriage/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analyzer over MCP on stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout. Clients get three
tools: analyze_incidents, classification_breakdown, and probe_schema. All
logging goes to stderr and the log file; stdout carries only the protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcp.NewServer(Version, mcp.Defaults{
			ThresholdBPM:  cfg.Analysis.ThresholdBPM,
			MaxGapSeconds: cfg.Analysis.MaxGapSeconds,
			WindowMonths:  cfg.Analysis.WindowMonths,
			CachePath:     filepath.Join(cfg.CacheDir, "samples.db"),
		})
		return server.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
