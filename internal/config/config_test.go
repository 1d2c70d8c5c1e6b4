package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"

	"shipconf/internal/config"
)

func clearSecretEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SHIPCONF_API_USER", "SHIPCONF_API_PASSWORD", "SHIPCONF_BASE_URL"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultConfigUsesEnvSecretsAndExpandsPaths(t *testing.T) {
	clearSecretEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())
	t.Setenv("SHIPCONF_API_USER", "admin")
	t.Setenv("SHIPCONF_API_PASSWORD", "secret")
	t.Setenv("SHIPCONF_BASE_URL", "https://erp.example.com/entity")

	_, _, _, err := config.Load("")
	if err == nil || !strings.Contains(err.Error(), "shipment.input_dir") {
		t.Fatalf("expected folder validation error without a config file, got %v", err)
	}

	path := writeConfig(t, t.TempDir(), `
[shipment]
input_dir = "~/scans/in"
output_dir = "~/scans/out"
problem_dir = "~/scans/problem"
`)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path || !exists {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.API.User != "admin" || cfg.API.Password != "secret" {
		t.Fatalf("expected credentials from env, got %q/%q", cfg.API.User, cfg.API.Password)
	}
	if cfg.API.BaseURL != "https://erp.example.com/entity/" {
		t.Fatalf("expected trailing slash on base url, got %q", cfg.API.BaseURL)
	}
	if cfg.Shipment.InputDir != filepath.Join(tempHome, "scans", "in") {
		t.Fatalf("unexpected input dir: %q", cfg.Shipment.InputDir)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "shipconf") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Decode.Density != 300 {
		t.Fatalf("expected default density 300, got %d", cfg.Decode.Density)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.LockPath() != filepath.Join(cfg.Paths.StateDir, "shipconf.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
}

func TestFileValuesWinOverEnvironment(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("SHIPCONF_API_USER", "env-user")
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[api]
user = "file-user"
password = "file-pass"
base_url = "http://localhost:8080/entity/"

[shipment]
url = "/Default/20.200.001/Shipment"
input_dir = "`+filepath.Join(dir, "in")+`"
output_dir = "`+filepath.Join(dir, "out")+`"
problem_dir = "`+filepath.Join(dir, "problem")+`"

[decode]
barcode_extensions = ["PDF", "tiff", ".pdf"]
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.User != "file-user" {
		t.Fatalf("expected file value to win, got %q", cfg.API.User)
	}
	if cfg.Shipment.URL != "Default/20.200.001/Shipment/" {
		t.Fatalf("unexpected shipment url %q", cfg.Shipment.URL)
	}
	if got := strings.Join(cfg.Decode.BarcodeExtensions, ","); got != ".pdf,.tiff" {
		t.Fatalf("unexpected barcode extensions %q", got)
	}
	if !cfg.IsBarcodeDocument(".PDF") || !cfg.IsBarcodeDocument(".tiff") {
		t.Fatal("expected case-insensitive barcode extension match")
	}
	if cfg.IsBarcodeDocument(".jpg") {
		t.Fatal("expected .jpg to use file name resolution")
	}
}

func TestSecretsFileIsLoaded(t *testing.T) {
	clearSecretEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SHIPCONF_API_USER=dotenv-user\nSHIPCONF_API_PASSWORD=dotenv-pass\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	path := writeConfig(t, dir, `
[api]
base_url = "http://localhost/entity/"

[shipment]
input_dir = "`+filepath.Join(dir, "in")+`"
output_dir = "`+filepath.Join(dir, "out")+`"
problem_dir = "`+filepath.Join(dir, "problem")+`"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.User != "dotenv-user" || cfg.API.Password != "dotenv-pass" {
		t.Fatalf("expected credentials from .env, got %q/%q", cfg.API.User, cfg.API.Password)
	}
}

func TestSecretsTemplateIsPickedUpButIncomplete(t *testing.T) {
	clearSecretEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[api]
base_url = "http://localhost/entity/"
`)
	secrets := config.SecretsPath(path)
	if secrets != filepath.Join(dir, ".env") {
		t.Fatalf("unexpected secrets path %s", secrets)
	}
	if err := os.WriteFile(secrets, []byte("OLD=1\n"), 0o644); err != nil {
		t.Fatalf("seed secrets: %v", err)
	}
	if err := config.CreateSecretsTemplate(secrets); err != nil {
		t.Fatalf("CreateSecretsTemplate: %v", err)
	}
	info, err := os.Stat(secrets)
	if err != nil {
		t.Fatalf("stat secrets: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("secrets mode = %v, want 0600", info.Mode().Perm())
	}
	values, err := godotenv.Read(secrets)
	if err != nil {
		t.Fatalf("read secrets: %v", err)
	}
	if _, ok := values["OLD"]; ok || len(values) != 2 {
		t.Fatalf("expected only the credential keys, got %v", values)
	}

	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "api.user is required") {
		t.Fatalf("expected empty template credentials to fail validation, got %v", err)
	}
}

func TestMissingExplicitSecretsFileFails(t *testing.T) {
	clearSecretEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[paths]
secrets_file = "`+filepath.Join(dir, "missing.env")+`"
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "secrets file") {
		t.Fatalf("expected secrets file error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	clearSecretEnv(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	for _, section := range []string{"[api]", "[shipment]", "[decode]", "[tools]", "[paths]", "[notifications]"} {
		if !strings.Contains(string(data), section) {
			t.Fatalf("sample config missing %s", section)
		}
	}

	t.Setenv("HOME", dir)
	t.Setenv("SHIPCONF_API_USER", "u")
	t.Setenv("SHIPCONF_API_PASSWORD", "p")
	t.Setenv("SHIPCONF_BASE_URL", "https://erp.example.com/entity/")
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config should load once secrets are present: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.API.User = "u"
		cfg.API.Password = "p"
		cfg.API.BaseURL = "https://erp.example.com/entity/"
		cfg.Shipment.InputDir = "/in"
		cfg.Shipment.OutputDir = "/out"
		cfg.Shipment.ProblemDir = "/problem"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing base url", func(c *config.Config) { c.API.BaseURL = "" }, "api.base_url"},
		{"non http base url", func(c *config.Config) { c.API.BaseURL = "ftp://x/" }, "http(s)"},
		{"missing user", func(c *config.Config) { c.API.User = "" }, "api.user"},
		{"missing password", func(c *config.Config) { c.API.Password = "" }, "api.password"},
		{"bad timeout", func(c *config.Config) { c.API.TimeoutSeconds = -1 }, "timeout_seconds"},
		{"missing problem dir", func(c *config.Config) { c.Shipment.ProblemDir = "" }, "problem_dir"},
		{"shared folders", func(c *config.Config) { c.Shipment.OutputDir = "/in" }, "different folders"},
		{"bad density", func(c *config.Config) { c.Decode.Density = 0 }, "density"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bare ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "shipconf" }, "ntfy_topic"},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("expected baseline config to be valid: %v", err)
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestToolEnvPrependsGhostscriptDir(t *testing.T) {
	cfg := config.Default()
	if env := cfg.ToolEnv(); env != nil {
		t.Fatalf("expected no overrides by default, got %v", env)
	}
	cfg.Tools.GhostscriptDir = "/opt/gs/bin"
	env := cfg.ToolEnv()
	if len(env) != 1 || !strings.HasPrefix(env[0], "PATH=/opt/gs/bin"+string(os.PathListSeparator)) {
		t.Fatalf("unexpected tool env %v", env)
	}
}
