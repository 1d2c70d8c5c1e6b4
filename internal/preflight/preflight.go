package preflight

import (
	"context"

	"shipconf/internal/config"
	"shipconf/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects which checks RunAll performs.
type Options struct {
	// SkipRemote omits the login/logout round trip.
	SkipRemote bool
}

// RunAll executes the folder and remote checks for cfg. Binary checks are
// reported separately through CheckSystemDeps.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Input folder", cfg.Shipment.InputDir),
		CheckDirectoryAccess("Output folder", cfg.Shipment.OutputDir),
		CheckDirectoryAccess("Problem folder", cfg.Shipment.ProblemDir),
	}
	if !opts.SkipRemote {
		results = append(results, CheckRemote(ctx, cfg))
	}
	return results
}

// Failed reports whether any result or required dependency failed.
func Failed(results []Result, statuses []deps.Status) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			return true
		}
	}
	return false
}
