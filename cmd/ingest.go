package main

import "github.com/spf13/cobra"

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse saved third-party releases into typed documents",
	Long: `Parse locally saved third-party source files into typed documents
under the processed directory. Sources are saved manually and verbatim;
ingestion never fetches.`,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
