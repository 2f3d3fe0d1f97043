// Package report turns test results into a document that can be saved and compared
// across runs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/celestia-astro/astroprobe/framework"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Report struct {
	Target      string    `json:"target" yaml:"target"`
	GeneratedAt time.Time `json:"generatedAt" yaml:"generatedAt"`
	Summary     Summary   `json:"summary" yaml:"summary"`
	Tests       []Test    `json:"tests" yaml:"tests"`
}

type Summary struct {
	Total       int    `json:"total" yaml:"total"`
	Passed      int    `json:"passed" yaml:"passed"`
	Failed      int    `json:"failed" yaml:"failed"`
	Skipped     int    `json:"skipped" yaml:"skipped"`
	SuccessRate string `json:"successRate" yaml:"successRate"`
}

type Test struct {
	Name      string    `json:"name" yaml:"name"`
	Status    string    `json:"status" yaml:"status"`
	Success   bool      `json:"success" yaml:"success"`
	Details   string    `json:"details,omitempty" yaml:"details,omitempty"`
	Errors    []string  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Duration  string    `json:"duration" yaml:"duration"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// FromResults builds a report from the leaf tests of a run. Skipped tests are listed but
// do not count toward the success rate.
func FromResults(target string, results framework.Results) Report {
	passed, failed, skipped := results.Counts()
	r := Report{
		Target:      target,
		GeneratedAt: time.Now().UTC(),
		Summary: Summary{
			Total:       passed + failed + skipped,
			Passed:      passed,
			Failed:      failed,
			Skipped:     skipped,
			SuccessRate: fmt.Sprintf("%.1f%%", results.SuccessRate()),
		},
	}
	for _, t := range results.Leaves() {
		entry := Test{
			Name:      t.TestID.String(),
			Details:   t.Detail,
			Duration:  t.Duration.Round(time.Millisecond).String(),
			Timestamp: t.StartTime.UTC(),
		}
		switch {
		case t.Skipped:
			entry.Status = StatusSkip
			entry.Success = true
			if entry.Details == "" {
				entry.Details = t.SkipReason
			}
		case t.Failed():
			entry.Status = StatusFail
		default:
			entry.Status = StatusPass
			entry.Success = true
		}
		for _, e := range t.Errors {
			entry.Errors = append(entry.Errors, e.Error())
		}
		r.Tests = append(r.Tests, entry)
	}
	return r
}

// Write encodes the report in the format implied by name: YAML for .yaml or .yml, and
// JSON otherwise. A trailing .zst adds zstd compression.
func Write(w io.Writer, name string, r Report) error {
	base := strings.ToLower(name)
	if strings.HasSuffix(base, ".zst") {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
		if err := Write(zw, strings.TrimSuffix(base, ".zst"), r); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	}
	switch filepath.Ext(base) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return nil
	}
}

// WriteFile writes the report to path, creating or truncating it.
func WriteFile(path string, r Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, filepath.Base(path), r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a report written by Write.
func Read(rd io.Reader, name string) (Report, error) {
	var r Report
	base := strings.ToLower(name)
	if strings.HasSuffix(base, ".zst") {
		zr, err := zstd.NewReader(rd)
		if err != nil {
			return r, fmt.Errorf("create zstd reader: %w", err)
		}
		defer zr.Close()
		return Read(zr, strings.TrimSuffix(base, ".zst"))
	}
	switch filepath.Ext(base) {
	case ".yaml", ".yml":
		err := yaml.NewDecoder(rd).Decode(&r)
		return r, err
	default:
		err := json.NewDecoder(rd).Decode(&r)
		return r, err
	}
}
