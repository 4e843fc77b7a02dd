package commands

import (
	"database/sql"
	"fmt"
	"log/slog"

	"blogposter/internal/auth"
	"blogposter/internal/batch"
	"blogposter/internal/browser"
	"blogposter/internal/browser/rodbrowser"
	"blogposter/internal/components/chrono"
	"blogposter/internal/components/telemetry"
	"blogposter/internal/config"
	"blogposter/internal/generator"
	"blogposter/internal/notify"
	"blogposter/internal/platform"
	"blogposter/internal/scraper"
	"blogposter/internal/store"
	"blogposter/internal/workflow"
	"blogposter/pkg/serviceutil"
)

// app is everything a command needs, built from the config file.
type app struct {
	cfg   config.Config
	site  platform.Site
	clock chrono.StandardImpl
	tel   telemetry.API
}

func loadApp() app {
	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	site, err := cfg.Site()
	if err != nil {
		serviceutil.Fatal("invalid platform config", err)
	}
	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("invalid timezone", err)
	}
	return app{
		cfg:   cfg,
		site:  site,
		clock: clock,
		tel:   telemetry.SlogAPI{},
	}
}

func (a app) launcher() browser.Launcher {
	opts, err := a.cfg.BrowserOptions()
	if err != nil {
		serviceutil.Fatal("invalid browser config", err)
	}
	return rodbrowser.NewLauncher(opts, a.tel, a.clock)
}

func (a app) authenticator() auth.Authenticator {
	opts, err := a.cfg.AuthOptions()
	if err != nil {
		serviceutil.Fatal("invalid auth config", err)
	}
	return auth.NewAuthenticator(a.site, opts, a.clock, a.tel)
}

func (a app) submitter() workflow.Submitter {
	opts, err := a.cfg.WorkflowOptions()
	if err != nil {
		serviceutil.Fatal("invalid workflow config", err)
	}
	return workflow.NewSubmitter(a.site, opts, a.clock, a.tel)
}

func (a app) prompter() generator.Prompter {
	mode, err := a.cfg.GenerationMode()
	if err != nil {
		serviceutil.Fatal("invalid gemini config", err)
	}
	opts, err := a.cfg.ScraperOptions()
	if err != nil {
		serviceutil.Fatal("invalid scraper config", err)
	}
	return generator.NewPrompter(mode, scraper.NewClient(opts, a.tel))
}

// textGenerator is nil when no API key is configured, records without a body
// are then skipped.
func (a app) textGenerator() generator.TextGenerator {
	if a.cfg.Gemini.APIKey == "" {
		slog.Warn("no gemini api key configured, records without a body will be skipped", "env", config.EnvGeminiKey)
		return nil
	}
	opts, err := a.cfg.GeminiOptions()
	if err != nil {
		serviceutil.Fatal("invalid gemini config", err)
	}
	gen, err := generator.NewGemini(opts, a.tel)
	if err != nil {
		serviceutil.Fatal("failed to create text generator", err)
	}
	return gen
}

func (a app) orchestrator() batch.Orchestrator {
	opts, err := a.cfg.BatchOptions()
	if err != nil {
		serviceutil.Fatal("invalid batch config", err)
	}
	return batch.NewOrchestrator(a.authenticator(), a.submitter(), a.prompter(), opts, a.clock, a.tel)
}

func (a app) notifier() notify.Notifier {
	return notify.NewNotifier(a.cfg.Smtp, a.cfg.ReportTo, a.tel)
}

// openStore returns nil when no database is configured.
func (a app) openStore(override string) (*sql.DB, error) {
	dbConfig := a.cfg.Database
	if override != "" {
		dbConfig = store.Config{File: override}
	}
	if dbConfig.File == "" && dbConfig.URL == "" {
		return nil, nil
	}
	db, err := dbConfig.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return db, nil
}

func (a app) mustOpenStore(override string) *sql.DB {
	db, err := a.openStore(override)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	return db
}
