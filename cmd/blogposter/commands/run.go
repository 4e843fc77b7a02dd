package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"blogposter/internal/batch"
	"blogposter/internal/browser"
	"blogposter/internal/components/chrono"
	"blogposter/internal/generator"
	"blogposter/internal/notify"
	"blogposter/internal/post"
	"blogposter/internal/store"
	"blogposter/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	runSource *string
	runSheet  *string
	runDb     *string
	runCron   *string
)

func init() {
	runSource = runCmd.Flags().String("source", "", "The kind of input, xlsx or form. Decided by the file extension when empty.")
	runSheet = runCmd.Flags().String("sheet", "", "The sheet to read, the first one when empty.")
	runDb = runCmd.Flags().String("db", "", "The history database, overrides database in the config.")
	runCron = runCmd.Flags().String("cron", "", "Run the batch on this cron schedule instead of once.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <input.xlsx|form.json> [--source xlsx|form] [--sheet <name>] [--db <history.db>] [--cron <schedule>]",
	Short: "Logs in once and publishes every record of the input.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp()
		ctx := cmd.Context()

		records, formCreds, err := readRecords(args[0], *runSource, *runSheet)
		if err != nil {
			serviceutil.Fatal("failed to read records", err)
		}
		creds := a.cfg.PostCredentials()
		if formCreds != nil {
			creds = *formCreds
		}
		slog.Info("records loaded", "count", len(records), "account", creds.String())

		orchestrator := a.orchestrator()
		db := a.mustOpenStore(*runDb)
		if db != nil {
			defer db.Close()
			orchestrator = orchestrator.WithRecorder(store.NewStore(db))
		}
		job := batchJob{
			orchestrator: orchestrator,
			records:      records,
			creds:        creds,
			launcher:     a.launcher(),
			gen:          a.textGenerator(),
			notifier:     a.notifier(),
			clock:        a.clock,
		}

		if *runCron == "" {
			err := job.run(ctx)
			if err != nil {
				serviceutil.Fatal("batch did not complete", err)
			}
			return
		}

		cron := chrono.NewStandardCron(a.tel, a.clock)
		err = cron.Cron(*runCron, func() {
			err := job.run(ctx)
			if err != nil {
				slog.Error("scheduled batch did not complete", "err", err)
			}
		})
		if err != nil {
			serviceutil.Fatal("invalid cron schedule", err)
		}
		slog.Info("waiting for schedule", "cron", *runCron)
		<-ctx.Done()
		cron.Stop()
	},
}

type batchJob struct {
	orchestrator batch.Orchestrator
	records      []post.Record
	creds        post.Credentials
	launcher     browser.Launcher
	gen          generator.TextGenerator
	notifier     notify.Notifier
	clock        chrono.API
}

func (j batchJob) run(ctx context.Context) error {
	runID := j.orchestrator.NewRunID()
	outcomes, err := j.orchestrator.RunAs(ctx, runID, j.records, j.creds, j.launcher, j.gen)
	var authErr *post.AuthError
	if errors.As(err, &authErr) {
		return err
	}
	printOutcomes(outcomes)

	notifyErr := j.notifier.Send(context.WithoutCancel(ctx), notify.Summary{
		RunID:    runID,
		Finished: j.clock.Now(),
		Outcomes: outcomes,
		Err:      err,
	})
	if notifyErr != nil {
		slog.Warn("failed to send report", "err", notifyErr)
	}
	return err
}

func printOutcomes(outcomes []post.Outcome) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Title", "Status", "Failed stage", "Attempts", "Post / error", "Screenshot"})
	for i, o := range outcomes {
		stage := ""
		if o.FailedStage != post.StageNone {
			stage = o.FailedStage.String()
		}
		detail := o.PostURL
		if o.Err != nil {
			detail = o.Err.Error()
		}
		t.AppendRow(table.Row{i + 1, o.Record.Title, o.Status.String(), stage, o.Attempts, detail, o.Diagnostic})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
