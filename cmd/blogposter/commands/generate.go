package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"blogposter/internal/config"
	"blogposter/internal/generator"
	"blogposter/internal/source"
	"blogposter/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var (
	generateSheet *string
	generateOut   *string
)

func init() {
	generateSheet = generateCmd.Flags().String("sheet", "", "The sheet to read, the first one when empty.")
	generateOut = generateCmd.Flags().String("out", "", "The directory the result is written to, next to the input when empty.")
	rootCmd.AddCommand(generateCmd)
}

// failedBody marks a record whose body could not be generated, run skips it.
var failedBody = generator.ErrorMarker + " 콘텐츠 생성 실패"

var generateCmd = &cobra.Command{
	Use:   "generate <input.xlsx> [--sheet <name>] [--out <dir>]",
	Short: "Writes the missing bodies of a spreadsheet to a new result_<time>.xlsx without posting anything.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp()
		ctx := cmd.Context()

		records, err := source.ReadSpreadsheet(args[0], *generateSheet)
		if err != nil {
			serviceutil.Fatal("failed to read spreadsheet", err)
		}
		gen := a.textGenerator()
		if gen == nil {
			serviceutil.Fatal("cannot generate", fmt.Errorf("%s is not set", config.EnvGeminiKey))
		}
		prompter := a.prompter()

		generated, failed := 0, 0
		for i, record := range records {
			if record.HasBody() {
				continue
			}
			if ctx.Err() != nil {
				serviceutil.Fatal("interrupted", ctx.Err())
			}

			prompt, err := prompter.Prompt(ctx, record)
			if err == nil {
				var text string
				text, err = gen.Generate(ctx, prompt)
				text, err = generator.Validate(record.Title, text, err)
				if err == nil {
					records[i] = record.WithBody(text)
					generated++
					slog.Info("generated", "title", record.Title, "chars", len([]rune(text)))
					continue
				}
			}
			slog.Warn("generation failed", "title", record.Title, "err", err)
			records[i] = record.WithBody(failedBody)
			failed++
		}

		dir := *generateOut
		if dir == "" {
			dir = filepath.Dir(args[0])
		}
		out := source.ResultPath(dir, a.clock.Now())
		err = source.WriteSpreadsheet(out, source.SampleSheet, records)
		if err != nil {
			serviceutil.Fatal("failed to write result", err)
		}
		slog.Info("result written", "path", out, "generated", generated, "failed", failed)
	},
}
