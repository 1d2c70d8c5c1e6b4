package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shipconf/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The input, output and problem folders exist; the API points at an
// unroutable placeholder until WithBaseURL is applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.API.User = "admin"
	cfgVal.API.Password = "secret"
	cfgVal.API.BaseURL = "http://127.0.0.1:9/entity/"
	cfgVal.API.TimeoutSeconds = 5
	cfgVal.Shipment.URL = "Default/20.200.001/Shipment/"
	cfgVal.Shipment.InputDir = filepath.Join(base, "input")
	cfgVal.Shipment.OutputDir = filepath.Join(base, "output")
	cfgVal.Shipment.ProblemDir = filepath.Join(base, "problem")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	for _, dir := range []string{cfgVal.Shipment.InputDir, cfgVal.Shipment.OutputDir, cfgVal.Shipment.ProblemDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBaseURL points the API at url, typically an httptest server plus a path.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		b.cfg.API.BaseURL = url
	}
}

// WithCredentials overrides the API user and password.
func WithCredentials(user, password string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.User = user
		b.cfg.API.Password = password
	}
}

// WithHistoryDisabled turns the run ledger off.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithMetricsTextfile enables the metrics textfile under the base dir.
func WithMetricsTextfile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.TextfilePath = filepath.Join(b.baseDir, "metrics", "shipconf.prom")
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH. If names is empty, the imaging tools are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"magick", "zbarimg"}
		}
		for _, name := range names {
			writeBinary(b, name, "exit 0\n")
		}
	}
}

// WithScriptedBinary installs a /bin/sh script body under name on PATH.
func WithScriptedBinary(name, body string) ConfigOption {
	return func(b *configBuilder) {
		writeBinary(b, name, body)
	}
}

func writeBinary(b *configBuilder, name, body string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}
	path := os.Getenv("PATH")
	if !strings.HasPrefix(path, binDir+string(os.PathListSeparator)) {
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+path)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Shipment.InputDir)
}
