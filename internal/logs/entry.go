package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"shipconf/internal/logging"
)

// Entry is one record of the JSON log file.
type Entry struct {
	Time      string
	Level     string
	Message   string
	Component string
	RunID     string
	File      string
	Stage     string
	Fields    map[string]any
}

var reservedKeys = map[string]struct{}{
	"ts":                   {},
	"level":                {},
	"msg":                  {},
	"source":               {},
	logging.FieldComponent: {},
	logging.FieldRunID:     {},
	logging.FieldFile:      {},
	logging.FieldStage:     {},
}

// ParseEntry decodes one JSON log line. Lines that are not JSON objects are
// reported as not ok.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '{' {
		return Entry{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	e := Entry{
		Time:      stringField(raw, "ts"),
		Level:     strings.ToLower(stringField(raw, "level")),
		Message:   stringField(raw, "msg"),
		Component: stringField(raw, logging.FieldComponent),
		RunID:     stringField(raw, logging.FieldRunID),
		File:      stringField(raw, logging.FieldFile),
		Stage:     stringField(raw, logging.FieldStage),
	}
	for key, value := range raw {
		if _, skip := reservedKeys[key]; skip {
			continue
		}
		if e.Fields == nil {
			e.Fields = make(map[string]any)
		}
		e.Fields[key] = value
	}
	return e, true
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

// Filter selects entries by run and minimum level.
type Filter struct {
	// RunID matches entries whose run id starts with this prefix.
	RunID    string
	MinLevel string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.RunID != "" && !strings.HasPrefix(e.RunID, f.RunID) {
		return false
	}
	return levelRank(e.Level) >= levelRank(f.MinLevel)
}

func levelRank(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return 0
	case "warn", "warning":
		return 2
	case "error":
		return 3
	default:
		return 1
	}
}

// Format renders e the way the console logger prints records.
func Format(e Entry) string {
	var b strings.Builder
	b.WriteString(e.Time)
	b.WriteString(" ")
	b.WriteString(strings.ToUpper(e.Level))
	if e.Component != "" {
		b.WriteString(" [")
		b.WriteString(e.Component)
		b.WriteString("]")
	}
	if subject := logging.FormatSubject(e.RunID, e.File, e.Stage); subject != "" {
		b.WriteString(" ")
		b.WriteString(subject)
	}
	b.WriteString(" – ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "\n    - %s: %v", key, e.Fields[key])
	}
	return b.String()
}
