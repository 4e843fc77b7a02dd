package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name     string            `json:"name"`
	Interval int               `json:"interval"`
	Tags     map[string]string `json:"tags"`
}

func TestReadConfigMergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are allowed
		name: "default",
		interval: 20,
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{name: "local"}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
	require.Equal(t, 20, cfg.Interval)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestOverrideFromEnv(t *testing.T) {
	value := "from-file"
	t.Setenv("BLOGPOSTER_TEST_VALUE", "")
	OverrideFromEnv(&value, "BLOGPOSTER_TEST_VALUE")
	require.Equal(t, "from-file", value)

	t.Setenv("BLOGPOSTER_TEST_VALUE", "from-env")
	OverrideFromEnv(&value, "BLOGPOSTER_TEST_VALUE")
	require.Equal(t, "from-env", value)
}
