package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Requirement is an external binary invoked while resolving documents.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the lookup result for one Requirement. Path is the resolved
// executable when Available is set.
type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

// CheckBinaries resolves each requirement against the search path carried by
// env, the same overrides handed to the imaging tools (see config.ToolEnv).
// Without a PATH override the process PATH is searched.
func CheckBinaries(requirements []Requirement, env []string) []Status {
	dirs := filepath.SplitList(searchPath(env))
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		status := Status{Requirement: req}
		if req.Command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := lookPath(req.Command, dirs)
		if err != nil {
			status.Detail = err.Error()
		} else {
			status.Path = path
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

func searchPath(env []string) string {
	path := os.Getenv("PATH")
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, "PATH="); ok {
			path = v
		}
	}
	return path
}

func lookPath(command string, dirs []string) (string, error) {
	if strings.ContainsRune(command, filepath.Separator) {
		if !executable(command) {
			return "", fmt.Errorf("%q is not an executable file", command)
		}
		return command, nil
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, command)
		if executable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("binary %q not found", command)
}

func executable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
