package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"blogposter/internal/browser"
	"blogposter/internal/generator"
	"blogposter/internal/workflow"

	"github.com/stretchr/testify/require"
)

const sample = `{
	// comments are allowed
	credentials: { identifier: "file-user", secret: "file-secret" },
	workflow: {
		input_mode: "type",
		image_policy: "best-effort",
		bold_title: true,
		confirm_timeout: "45s",
		snapshot_dir: "shots",
	},
	batch: { post_interval: "30s", submit_attempts: 2 },
	gemini: { mode: "promo", model: "gemini-1.5-pro", timeout: "90s" },
	database: { file: "history.db" },
	report_to: ["me@example.com"],
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvIdentifier, "")
	t.Setenv(EnvSecret, "env-secret")
	t.Setenv(EnvGeminiKey, "key")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	creds := cfg.PostCredentials()
	require.Equal(t, "file-user", creds.Identifier)
	require.Equal(t, "env-secret", creds.Secret)
	require.Equal(t, "key", cfg.Gemini.APIKey)
	require.Equal(t, "history.db", cfg.Database.File)
	require.Equal(t, []string{"me@example.com"}, cfg.ReportTo)

	wf, err := cfg.WorkflowOptions()
	require.NoError(t, err)
	require.Equal(t, browser.InputType, wf.InputMode)
	require.Equal(t, workflow.BestEffort, wf.ImagePolicy)
	require.Equal(t, 45*time.Second, wf.ConfirmTimeout)
	require.Equal(t, "shots", wf.SnapshotDir)

	b, err := cfg.BatchOptions()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, b.PostInterval)
	require.Equal(t, 2, b.SubmitAttempts)
	require.True(t, b.DecorateTitle)

	g, err := cfg.GeminiOptions()
	require.NoError(t, err)
	require.True(t, g.TrimQuotes)
	require.Equal(t, generator.PromoDefaults().MaxOutputTokens, g.MaxOutputTokens)
	require.Equal(t, "gemini-1.5-pro", g.Model)
	require.Equal(t, 90*time.Second, g.Timeout)
	require.Equal(t, "key", g.APIKey)
}

func TestLoadLocalOverride(t *testing.T) {
	path := writeConfig(t, sample)
	local := filepath.Join(filepath.Dir(path), "config.local.json5")
	require.NoError(t, os.WriteFile(local, []byte(`{ credentials: { identifier: "local-user" } }`), 0644))
	t.Setenv(EnvIdentifier, "")
	t.Setenv(EnvSecret, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "local-user", cfg.Credentials.Identifier)
	require.Equal(t, "file-secret", cfg.Credentials.Secret)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvIdentifier, "env-user")
	t.Setenv(EnvSecret, "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "env-user", cfg.Credentials.Identifier)

	site, err := cfg.Site()
	require.NoError(t, err)
	require.NotEmpty(t, site.EditorURL)

	wf, err := cfg.WorkflowOptions()
	require.NoError(t, err)
	require.Equal(t, browser.InputPaste, wf.InputMode)
	require.Equal(t, workflow.AtLeastOne, wf.ImagePolicy)

	g, err := cfg.GeminiOptions()
	require.NoError(t, err)
	require.False(t, g.TrimQuotes)
	require.Equal(t, generator.ArticleDefaults().MaxOutputTokens, g.MaxOutputTokens)
}

func TestInvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
		call func(Config) error
	}{
		{
			name: "duration",
			cfg:  Config{Batch: BatchConfig{PostInterval: "soon"}},
			call: func(c Config) error { _, err := c.BatchOptions(); return err },
		},
		{
			name: "image policy",
			cfg:  Config{Workflow: WorkflowConfig{ImagePolicy: "some"}},
			call: func(c Config) error { _, err := c.WorkflowOptions(); return err },
		},
		{
			name: "input mode",
			cfg:  Config{Workflow: WorkflowConfig{InputMode: "telepathy"}},
			call: func(c Config) error { _, err := c.AuthOptions(); return err },
		},
		{
			name: "generation mode",
			cfg:  Config{Gemini: GeminiConfig{Mode: "poem"}},
			call: func(c Config) error { _, err := c.GeminiOptions(); return err },
		},
		{
			name: "browser delay",
			cfg:  Config{Browser: BrowserConfig{TypeDelay: "5"}},
			call: func(c Config) error { _, err := c.BrowserOptions(); return err },
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, tc.call(tc.cfg))
		})
	}
}
