package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shipconf/internal/config"
	"shipconf/internal/document"
	"shipconf/internal/fileutil"
	"shipconf/internal/services"
)

// collisionLayout is month, day, year, hour, minute, second.
const collisionLayout = "01022006150405"

// ErrorFileSuffix is appended to an archived failure's path for its diagnostic.
const ErrorFileSuffix = "-error.txt"

// Outcome tags how a document left the pipeline.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
)

func (o Outcome) String() string {
	if o == Failed {
		return "failed"
	}
	return "succeeded"
}

// Archiver moves processed documents out of the input folder.
type Archiver struct {
	OutputDir  string
	ProblemDir string
	MoveFunc   func(src, dst string) error
	Now        func() time.Time
}

// New constructs an archiver for the given folders.
func New(outputDir, problemDir string) *Archiver {
	return &Archiver{
		OutputDir:  outputDir,
		ProblemDir: problemDir,
		MoveFunc:   fileutil.MoveFile,
		Now:        time.Now,
	}
}

// NewFromConfig uses the configured output and problem folders.
func NewFromConfig(cfg *config.Config) *Archiver {
	return New(cfg.Shipment.OutputDir, cfg.Shipment.ProblemDir)
}

// Succeeded moves doc into the output folder and returns its new path.
func (a *Archiver) Succeeded(doc document.Document) (string, error) {
	dest, err := a.destination(a.OutputDir, doc.Name, false)
	if err != nil {
		return "", err
	}
	if err := a.move(doc, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Failed moves doc into the problem folder and writes the diagnostic next to
// it as <dest>-error.txt. Neither file ever replaces an existing one.
func (a *Archiver) Failed(doc document.Document, diag Diagnostic) (string, error) {
	dest, err := a.destination(a.ProblemDir, doc.Name, true)
	if err != nil {
		return "", err
	}
	if err := a.move(doc, dest); err != nil {
		return "", err
	}
	if diag.Time.IsZero() {
		diag.Time = a.now()
	}
	if diag.File == "" {
		diag.File = doc.Name
	}
	if diag.Source == "" {
		diag.Source = doc.Path
	}
	if err := writeExclusive(dest+ErrorFileSuffix, diag.Render()); err != nil {
		return dest, services.Wrap(services.ErrArchival, "archive", "diagnostic", doc.Name, err)
	}
	return dest, nil
}

func (a *Archiver) move(doc document.Document, dest string) error {
	move := a.MoveFunc
	if move == nil {
		move = fileutil.MoveFile
	}
	if err := move(doc.Path, dest); err != nil {
		return services.Wrap(services.ErrArchival, "archive", "move", fmt.Sprintf("%s -> %s", doc.Name, dest), err)
	}
	return nil
}

// destination picks a free path for name inside dir. A taken name gets the
// current timestamp inserted before the extension, then a counter if that is
// taken as well. For failures the diagnostic path must be free too.
func (a *Archiver) destination(dir, name string, withDiagnostic bool) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", services.Wrap(services.ErrArchival, "archive", "destination", "folder not configured", nil)
	}
	candidate := filepath.Join(dir, name)
	free, err := pathsFree(candidate, withDiagnostic)
	if err != nil {
		return "", err
	}
	if free {
		return candidate, nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext) + "-" + a.now().Format(collisionLayout)
	for counter := 1; ; counter++ {
		suffix := ""
		if counter > 1 {
			suffix = "-" + strconv.Itoa(counter)
		}
		candidate = filepath.Join(dir, stem+suffix+ext)
		free, err := pathsFree(candidate, withDiagnostic)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
}

func (a *Archiver) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func pathsFree(path string, withDiagnostic bool) (bool, error) {
	paths := []string{path}
	if withDiagnostic {
		paths = append(paths, path+ErrorFileSuffix)
	}
	for _, p := range paths {
		_, err := os.Lstat(p)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, services.Wrap(services.ErrArchival, "archive", "destination", "stat "+p, err)
		}
	}
	return true, nil
}

func writeExclusive(path string, content []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
