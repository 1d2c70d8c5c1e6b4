package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Document is one file discovered in the input folder. Content is read from
// disk only when requested.
type Document struct {
	Path string
	Name string
	Ext  string
}

// New describes the file at path.
func New(path string) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, fmt.Errorf("resolve document path %q: %w", path, err)
	}
	name := filepath.Base(abs)
	return Document{
		Path: abs,
		Name: name,
		Ext:  strings.ToLower(filepath.Ext(name)),
	}, nil
}

// Content loads the file bytes.
func (d Document) Content() ([]byte, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.Name, err)
	}
	return data, nil
}

// Exists reports whether the document is still at its input path.
func (d Document) Exists() bool {
	_, err := os.Stat(d.Path)
	return err == nil
}

// Snapshot lists the regular files directly inside dir, sorted by name.
// Subdirectories are not descended into. Files created after Snapshot returns
// are not part of the batch.
func Snapshot(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list input folder: %w", err)
	}
	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		doc, err := New(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}
