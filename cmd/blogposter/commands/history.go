package commands

import (
	"fmt"
	"os"
	"time"

	"blogposter/internal/post"
	"blogposter/internal/store"
	"blogposter/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyDb    *string
	historyLimit *int
)

func init() {
	historyDb = historyCmd.Flags().String("db", "", "The history database, overrides database in the config.")
	historyLimit = historyCmd.Flags().Int("limit", 20, "How many runs to list.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id] [--db <history.db>] [--limit <n>]",
	Short: "Lists past runs, or the outcome of every record of one run.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp()
		db := a.mustOpenStore(*historyDb)
		if db == nil {
			serviceutil.Fatal("no history", fmt.Errorf("no database is configured"))
		}
		defer db.Close()
		s := store.NewStore(db)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)

		if len(args) == 0 {
			runs, err := s.Runs(cmd.Context(), *historyLimit)
			if err != nil {
				serviceutil.Fatal("failed to list runs", err)
			}
			t.AppendHeader(table.Row{"Run", "Started", "Finished", "Total", "Posted", "Failed", "Skipped", "Error"})
			for _, r := range runs {
				finished := "-"
				if r.Finished() {
					finished = r.FinishedAt.In(a.clock.Location()).Format(time.DateTime)
				}
				t.AppendRow(table.Row{
					r.ID,
					r.StartedAt.In(a.clock.Location()).Format(time.DateTime),
					finished,
					r.Total, r.Succeeded, r.Failed, r.Skipped,
					r.Error,
				})
			}
			t.Render()
			return
		}

		rows, err := s.Outcomes(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to read run", err)
		}
		t.AppendHeader(table.Row{"#", "Title", "Status", "Failed stage", "Attempts", "Post / error", "Screenshot"})
		for _, o := range rows {
			stage := ""
			if o.FailedStage != post.StageNone {
				stage = o.FailedStage.String()
			}
			detail := o.PostURL
			if o.Error != "" {
				detail = o.Error
			}
			t.AppendRow(table.Row{o.Index + 1, o.Title, o.Status.String(), stage, o.Attempts, detail, o.Diagnostic})
		}
		t.Render()
	},
}
