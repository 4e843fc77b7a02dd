package commands

import (
	"log/slog"

	"blogposter/internal/source"
	"blogposter/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sampleCmd)
}

var sampleCmd = &cobra.Command{
	Use:   "sample [path/to/output.xlsx]",
	Short: "Writes a starter spreadsheet with example titles and bodies.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "blog_data.xlsx"
		if len(args) > 0 {
			path = args[0]
		}
		records := source.SampleRecords()
		err := source.WriteSpreadsheet(path, source.SampleSheet, records)
		if err != nil {
			serviceutil.Fatal("failed to write sample", err)
		}
		slog.Info("sample written", "path", path, "records", len(records))
	},
}
