package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfviewer/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "none.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Listen, cfg.Listen)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
}

func TestLoad_YAMLThenEnvFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
listen: 0.0.0.0:9000
remote_url: http://yaml.example/api/rectangles
scale: 1.5
mode: continuous
database:
  driver: postgres
  dsn: host=db user=viewer
`), 0644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"PDFVIEWER_REMOTE_URL=http://dotenv.example/api/rectangles\nPDFVIEWER_SCALE=2\n"), 0644))

	t.Setenv("PDFVIEWER_SCALE", "0.5")
	t.Setenv("PDFVIEWER_LOCAL_STORAGE", "false")

	cfg, err := config.Load(yamlPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "http://dotenv.example/api/rectangles", cfg.RemoteURL)
	assert.Equal(t, 0.5, cfg.Scale)
	assert.Equal(t, "continuous", cfg.Mode)
	assert.False(t, cfg.LocalStorage)
	assert.Equal(t, config.DriverPostgres, cfg.Database.Driver)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0644))
	_, err := config.Load(path, "")
	assert.Error(t, err)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("PDFVIEWER_RATE_BURST", "lots")
	_, err := config.Load("", "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown driver":   func(c *config.Config) { c.Database.Driver = "oracle" },
		"mysql no dsn":     func(c *config.Config) { c.Database.Driver = config.DriverMySQL },
		"mongo no dsn":     func(c *config.Config) { c.Database.Driver = config.DriverMongo },
		"zero scale":       func(c *config.Config) { c.Scale = 0 },
		"bad mode":         func(c *config.Config) { c.Mode = "spread" },
		"bad cron":         func(c *config.Config) { c.RetrySchedule = "every now and then" },
		"negative rate":    func(c *config.Config) { c.RateLimit = -1 },
		"zero thumb width": func(c *config.Config) { c.ThumbnailWidth = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, config.ParseLogLevel("DEBUG"))
	assert.Equal(t, logrus.InfoLevel, config.ParseLogLevel(" info "))
	assert.Equal(t, logrus.WarnLevel, config.ParseLogLevel(""))
	assert.Equal(t, logrus.WarnLevel, config.ParseLogLevel("nonsense"))
}
