package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"shipconf/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "identify", "rasterize", "magick failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"identify", "rasterize", "magick failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(services.ErrResolution, "", "", "", nil)
	if got := err.Error(); got != "resolution error: service failure" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrResolution, "identify", "", "no barcode", nil), "resolution"},
		{fmt.Errorf("upload: %w", services.ErrTransport), "transport"},
		{services.Wrap(services.ErrAuth, "login", "", "", nil), "auth"},
		{services.Wrap(services.ErrArchival, "archive", "move", "", nil), "archival"},
		{errors.New("plain"), "unknown"},
	}
	for _, tc := range tests {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestChainWalksWrappedAndJoined(t *testing.T) {
	inner := errors.New("connection refused")
	err := services.Wrap(services.ErrTransport, "upload", "PUT", "", inner)
	joined := errors.Join(err, errors.New("second"))

	chain := services.Chain(joined)
	if len(chain) < 4 {
		t.Fatalf("expected joined chain to include nested errors, got %v", chain)
	}
	if chain[len(chain)-1] != "second" {
		t.Fatalf("expected last entry to be second joined error, got %v", chain)
	}
	found := false
	for _, msg := range chain {
		if msg == "connection refused" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected innermost cause in chain, got %v", chain)
	}
}
