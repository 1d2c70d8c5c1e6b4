package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shipconf/internal/config"
	"shipconf/internal/testsupport"
)

type fakeService struct {
	mu        sync.Mutex
	calls     []string
	loginCode int
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := strings.TrimPrefix(r.URL.Path, "/entity/")
	f.calls = append(f.calls, r.Method+" "+path)
	switch {
	case path == "auth/login/":
		if f.loginCode != 0 {
			w.WriteHeader(f.loginCode)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: ".ASPXAUTH", Value: "cli", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	case path == "auth/logout/":
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPut:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type cliTestEnv struct {
	cfg        *config.Config
	service    *fakeService
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	service := &fakeService{}
	srv := httptest.NewServer(service)
	t.Cleanup(srv.Close)

	for _, key := range []string{"SHIPCONF_API_USER", "SHIPCONF_API_PASSWORD", "SHIPCONF_BASE_URL"} {
		t.Setenv(key, "")
	}

	opts = append([]testsupport.ConfigOption{
		testsupport.WithBaseURL(srv.URL + "/entity/"),
		testsupport.WithStubbedBinaries(),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))

	configPath := filepath.Join(testsupport.BaseDir(cfg), "shipconf.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, service: service, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
