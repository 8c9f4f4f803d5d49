// Package cli provides output helpers for the antispoof command-line tool.
//
// Results can be written as YAML (default), JSON, raw bytes, or a styled
// terminal table:
//
//	cli.Output(report, cli.OutputOptions{
//	    Format: cli.FormatTable,
//	    File:   outputPath,
//	})
//
// Values that implement Tabler control their own table layout; cells
// holding a REAL or FAKE label are colored by the Theme.
package cli
