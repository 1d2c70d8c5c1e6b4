package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shipconf/internal/logs"
)

const sampleLog = `{"ts":"2026-10-16T14:30:05Z","level":"info","msg":"run started","component":"importer","run_id":"aaaa1111-run","dry_run":false}
{"ts":"2026-10-16T14:30:06Z","level":"warn","msg":"document moved to problem folder","component":"importer","run_id":"aaaa1111-run","file":"C.pdf","stage":"archive","error_kind":"resolution"}
not json
{"ts":"2026-10-16T14:31:00Z","level":"info","msg":"run started","component":"importer","run_id":"bbbb2222-run"}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shipconf.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func collect(t *testing.T, path string, opts logs.TailOptions) []logs.Entry {
	t.Helper()
	var got []logs.Entry
	if err := logs.Tail(context.Background(), path, opts, func(e logs.Entry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	return got
}

func TestTailLastEntries(t *testing.T) {
	path := writeLog(t, sampleLog)

	got := collect(t, path, logs.TailOptions{Limit: 2})
	if len(got) != 2 || got[0].Level != "warn" || got[1].RunID != "bbbb2222-run" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestTailFiltersByRunAndLevel(t *testing.T) {
	path := writeLog(t, sampleLog)

	got := collect(t, path, logs.TailOptions{Limit: 10, Filter: logs.Filter{RunID: "aaaa"}})
	if len(got) != 2 {
		t.Fatalf("expected both entries of run aaaa, got %+v", got)
	}
	got = collect(t, path, logs.TailOptions{Limit: 10, Filter: logs.Filter{MinLevel: "warn"}})
	if len(got) != 1 || got[0].File != "C.pdf" || got[0].Fields["error_kind"] != "resolution" {
		t.Fatalf("unexpected warn entries: %+v", got)
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	got := collect(t, filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Limit: 5})
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %+v", got)
	}
}

func TestTailFollowPicksUpAppendedEntries(t *testing.T) {
	path := writeLog(t, sampleLog)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		_, _ = f.WriteString(`{"ts":"2026-10-16T14:32:00Z","level":"info","msg":"session closed","run_id":"cccc3333"}` + "\n")
	}()

	var got []logs.Entry
	stop := errors.New("stop")
	err := logs.Tail(ctx, path, logs.TailOptions{Follow: true, Poll: 10 * time.Millisecond}, func(e logs.Entry) error {
		got = append(got, e)
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected follow to deliver the appended entry, got %v", err)
	}
	if len(got) != 1 || got[0].Message != "session closed" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestFormatMatchesConsoleLayout(t *testing.T) {
	entry, ok := logs.ParseEntry(strings.Split(sampleLog, "\n")[1])
	if !ok {
		t.Fatal("expected sample line to parse")
	}
	want := "2026-10-16T14:30:06Z WARN [importer] Run aaaa1111 · C.pdf (archive) – document moved to problem folder\n    - error_kind: resolution"
	if got := logs.Format(entry); got != want {
		t.Fatalf("unexpected format:\n got %q\nwant %q", got, want)
	}
	if _, ok := logs.ParseEntry("not json"); ok {
		t.Fatal("plain text should not parse")
	}
}
