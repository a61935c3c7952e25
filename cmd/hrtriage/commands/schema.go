package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"hrtriage/internal/ingest"
)

var schemaInput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Probe input files and print the inferred schema of each",
	Long: `Reads a preview of every .csv file under the input directory and prints what
the heuristics decided: the file kind, the role of each column, and whether
the values look like plausible heart-rate data. No data is loaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := schemaInput
		if dir == "" {
			dir = cfg.DataPath
		}
		reports, err := ingest.ProbeDir(dir)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaInput, "input", "i", "", "input directory (default: DATA_PATH)")
	rootCmd.AddCommand(schemaCmd)
}
