package main

import (
	"strings"
	"testing"

	"shipconf/internal/testsupport"
)

func TestLogsCommandShowsRunEntries(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteInput(t, env.cfg, "-scan.jpg", "bad")
	if _, _, err := runCLI(t, []string{"run"}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--level", "warn"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "document moved to problem folder")
	if strings.Contains(out, "run started") {
		t.Fatalf("info entries should be filtered out:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--run", "no-such-run"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --run: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected no entries, got:\n%s", out)
	}
}
