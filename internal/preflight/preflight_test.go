package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shipconf/internal/deps"
	"shipconf/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail for missing dir, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func authServer(t *testing.T, loginStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/entity/auth/login/":
			w.WriteHeader(loginStatus)
			if loginStatus >= 400 {
				_, _ = w.Write([]byte("Invalid credentials"))
			}
		case "/entity/auth/logout/":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckRemote_OK(t *testing.T) {
	srv := authServer(t, http.StatusNoContent)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(srv.URL+"/entity"))

	result := CheckRemote(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckRemote_BadCredentials(t *testing.T) {
	srv := authServer(t, http.StatusUnauthorized)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(srv.URL+"/entity"))

	result := CheckRemote(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for rejected login")
	}
	if !strings.Contains(result.Detail, "Invalid credentials") {
		t.Fatalf("expected response body in detail, got %q", result.Detail)
	}
}

func TestRunAllSkipRemote(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg, Options{SkipRemote: true})
	if len(results) != 3 {
		t.Fatalf("expected three folder checks, got %d", len(results))
	}
	if Failed(results, nil) {
		t.Fatalf("expected all folder checks to pass: %+v", results)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("magick"))
	cfg.Tools.Zbarimg = "clearly-not-present-zbarimg"
	cfg.Tools.GhostscriptDir = t.TempDir()
	gs := filepath.Join(cfg.Tools.GhostscriptDir, "gs")
	if err := os.WriteFile(gs, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write gs stub: %v", err)
	}

	statuses := CheckSystemDeps(cfg)
	byName := map[string]deps.Status{}
	for _, s := range statuses {
		byName[s.Name] = s
	}
	if !byName["ImageMagick"].Available {
		t.Fatalf("expected stubbed magick to be found: %+v", byName["ImageMagick"])
	}
	if byName["zbarimg"].Available {
		t.Fatal("expected zbarimg to be missing")
	}
	if got := byName["Ghostscript"]; !got.Available || got.Path != gs || !got.Optional {
		t.Fatalf("expected gs from ghostscript_dir, got %+v", got)
	}
	if !Failed(nil, statuses) {
		t.Fatal("missing required binary should fail the check")
	}
}
