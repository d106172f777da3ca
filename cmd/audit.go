package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verify derived documents against their raw artifacts",
	Long: `Verify the provenance chain end to end: documents parse, every
referenced raw artifact exists, filename timestamps agree with recorded
provenance, and stored metrics re-derive from the raw values within tolerance.
All checks are read-only; findings land in the report, never in the data.

Exits non-zero when any non-advisory check fails.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		report := audit.New(audit.Options{
			Root:          ".",
			BaselinePath:  cfg.Data.BaselineDocPath(),
			IncomePath:    cfg.Data.IncomeDocPath(),
			CanonicalRaw:  cfg.Data.RawDir(),
			LegacyRaw:     cfg.Data.LegacyRawDirs,
			Affordability: affordabilityOptions(),
		}).Run()

		if err := report.Write(cfg.Data.AuditReportPath()); err != nil {
			return err
		}
		fmt.Print(report.Render())

		var pass, fail int
		for _, s := range report.Sections {
			for _, c := range s.Checks {
				if c.Pass {
					pass++
				} else {
					fail++
				}
			}
		}
		zap.L().Info("audit complete",
			zap.Int("pass", pass),
			zap.Int("fail", fail),
			zap.Bool("ok", report.OK()),
		)

		if !report.OK() {
			return eris.Errorf("audit: %d check(s) failed, see %s", fail, cfg.Data.AuditReportPath())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
