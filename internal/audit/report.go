package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Render produces the human-readable Markdown report.
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString("# Provenance Audit Report\n\n")
	fmt.Fprintf(&b, "Generated: %s UTC\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("## Checks\n\n")

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "### %s\n\n", s.Title)
		for _, c := range s.Checks {
			status := "PASS"
			if !c.Pass {
				status = "FAIL"
			}
			if c.Detail != "" {
				fmt.Fprintf(&b, "- %s: %s (%s)\n", c.Name, status, c.Detail)
			} else {
				fmt.Fprintf(&b, "- %s: %s\n", c.Name, status)
			}
		}
		if len(s.Notes) > 0 {
			if len(s.Checks) > 0 {
				b.WriteString("\n")
			}
			b.WriteString("Notes:\n")
			for _, n := range s.Notes {
				fmt.Fprintf(&b, "- %s\n", n)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommendations\n\n")
	if r.Scan != nil && len(r.Scan.Misplaced) > 0 {
		b.WriteString("- Move legacy raw artifacts into the canonical raw root (the tidy command does this safely).\n")
	} else {
		b.WriteString("- Raw artifacts are centralized under the canonical raw root.\n")
	}
	if r.Scan != nil && len(r.Scan.Duplicates) > 0 {
		b.WriteString("- Consolidate the duplicate raw files listed above to keep provenance unambiguous.\n")
	}
	b.WriteString("- Keep analysis and charts reading only the derived metric documents, never raw artifacts directly.\n")

	b.WriteString("\n## Status\n\n")
	if r.OK() {
		b.WriteString("Overall: PASS\n")
	} else {
		b.WriteString("Overall: FAIL\n")
	}

	return b.String()
}

// Write persists the rendered report. The previous report survives any
// mid-write failure.
func (r *Report) Write(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "audit: create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".audit-*")
	if err != nil {
		return eris.Wrap(err, "audit: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(r.Render()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "audit: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "audit: close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "audit: finalize %s", path)
	}

	zap.L().Info("audit report written", zap.String("path", path), zap.Bool("ok", r.OK()))
	return nil
}
