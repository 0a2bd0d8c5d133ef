// Package export persists execution reports. Reports are written as
// indented JSON so they can be diffed between runs and consumed by
// downstream tooling.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Roska-x/Ninjutsu/pkg/engine"
)

// Write renders the report as indented JSON onto w.
func Write(w io.Writer, report *engine.ExecutionReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// WriteFile writes the report under dir and returns the path. The file name
// is derived from the scope and run id so consecutive runs never clobber
// each other.
func WriteFile(dir string, report *engine.ExecutionReport) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("dorkrun_%s_%s.json",
		sanitizeForFilesystem(report.Scope),
		report.RunID)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, report); err != nil {
		return "", err
	}

	log.WithFields(log.Fields{
		"path":     path,
		"findings": len(report.Findings),
	}).Info("Report written")
	return path, nil
}

// sanitizeForFilesystem replaces characters that are unsafe in file names.
func sanitizeForFilesystem(name string) string {
	if name == "" {
		return "all"
	}
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return replacer.Replace(name)
}
