package configuration

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
api:
  base_url: https://api.clockify.me/api/v1/
  rate_limit_delay: 0.25
  max_retries: 5
workspace:
  fallback_manager_email: " Boss@Example.com "
  fallback_group_name: " Unassigned "
field_mapping:
  Department: Department
  Cost Center: Cost Centre
  Site: Location
log:
  level: debug
journal:
  format: xlsx
`

func TestLoadEnv_LoadsExistingFilesOnly(t *testing.T) {
	tmp := t.TempDir()
	chdir(t, tmp)

	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "CLOCKIFY_SYNC_TEST_ENV_LOAD=ok\n")
	_ = os.Unsetenv("CLOCKIFY_SYNC_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("CLOCKIFY_SYNC_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("CLOCKIFY_SYNC_TEST_ENV_LOAD"))
}

func TestLoad_MissingEnvFilesStayOffStdlibLog(t *testing.T) {
	tmp := t.TempDir()
	chdir(t, tmp)
	path := filepath.Join(tmp, "config.yaml")
	requireWriteFile(t, path, "workspace:\n  fallback_group_name: Unassigned\nlog:\n  level: silent\n")

	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, logrus.PanicLevel, cfg.LogrusLogLevel())
	require.Empty(t, buf.String())
}

func TestLoad_YAMLWithDefaults(t *testing.T) {
	tmp := t.TempDir()
	chdir(t, tmp)
	path := filepath.Join(tmp, "config.yaml")
	requireWriteFile(t, path, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://api.clockify.me/api/v1", cfg.API.BaseURL)
	require.Equal(t, 250*time.Millisecond, cfg.API.Delay())
	require.Equal(t, 5, cfg.API.MaxRetries)
	require.Equal(t, 30*time.Second, cfg.API.Timeout)
	require.Equal(t, "boss@example.com", cfg.Workspace.FallbackManagerEmail)
	require.Equal(t, "Unassigned", cfg.Workspace.FallbackGroupName)
	require.Equal(t, FieldMapping{
		{Column: "Department", Field: "Department"},
		{Column: "Cost Center", Field: "Cost Centre"},
		{Column: "Site", Field: "Location"},
	}, cfg.FieldMapping)
	require.Equal(t, "xlsx", cfg.Journal.Format)
	require.Equal(t, ".", cfg.Journal.Dir)
	require.Equal(t, logrus.DebugLevel, cfg.LogrusLogLevel())
	require.NotNil(t, cfg.Logger())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmp := t.TempDir()
	chdir(t, tmp)
	path := filepath.Join(tmp, "config.yaml")
	requireWriteFile(t, path, sampleConfig)

	t.Setenv("CLOCKIFY_MAX_RETRIES", "7")
	t.Setenv("CLOCKIFY_API_KEY", "secret")
	t.Setenv("CLOCKIFY_WORKSPACE_ID", "ws-1")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.API.MaxRetries)
	require.InDelta(t, 0.25, cfg.API.RateLimitDelay, 1e-9)
	require.Equal(t, "secret", cfg.Credentials.APIKey)
	require.Equal(t, "ws-1", cfg.Credentials.WorkspaceID)
	require.NoError(t, cfg.Credentials.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(c *Configuration)
	}{
		{name: "missing fallback group", mutate: func(c *Configuration) { c.Workspace.FallbackGroupName = "" }},
		{name: "bad base url", mutate: func(c *Configuration) { c.API.BaseURL = "not a url" }},
		{name: "zero retries", mutate: func(c *Configuration) { c.API.MaxRetries = 0 }},
		{name: "negative delay", mutate: func(c *Configuration) { c.API.RateLimitDelay = -1 }},
		{name: "bad journal format", mutate: func(c *Configuration) { c.Journal.Format = "parquet" }},
		{name: "bad fallback email", mutate: func(c *Configuration) { c.Workspace.FallbackManagerEmail = "nobody" }},
		{name: "empty mapped field", mutate: func(c *Configuration) {
			c.FieldMapping = FieldMapping{{Column: "Department", Field: ""}}
		}},
		{name: "tracing without endpoint", mutate: func(c *Configuration) {
			c.Tracing.Enabled = true
			c.Tracing.Endpoint = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := Default()
			c.Workspace.FallbackGroupName = "Unassigned"
			require.NoError(t, c.Validate())

			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestCredentialsValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Credentials{}.Validate())
	require.Error(t, Credentials{APIKey: "k"}.Validate())
	require.Error(t, Credentials{WorkspaceID: "w"}.Validate())
	require.NoError(t, Credentials{APIKey: "k", WorkspaceID: "w"}.Validate())
}

func TestFieldMappingFields_Deduplicates(t *testing.T) {
	t.Parallel()

	m := FieldMapping{
		{Column: "Dept", Field: "Department"},
		{Column: "Department", Field: "Department"},
		{Column: "Site", Field: "Location"},
	}
	require.Equal(t, []string{"Department", "Location"}, m.Fields())
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(dir))
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
