package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sapauth/internal/cli"
	"sapauth/pkg/export"
)

var exportFlags struct {
	out    string
	format string
	kinds  []string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write derived tables to XLSX or CSV",
	Long: `Write derived tables to XLSX or CSV.

XLSX workbooks get one sheet per kind. CSV takes exactly one kind and may be
written to stdout with --out -.`,
	Example: `  # Unused roles workbook, as offered by the dashboard
  sapauth export --kind unused --out unused_roles.xlsx

  # Roles as CSV for the last quarter
  sapauth export --kind roles --preset last-3-months --out - --format csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := make([]export.Kind, 0, len(exportFlags.kinds))
		for _, k := range exportFlags.kinds {
			kind, err := export.ParseKind(strings.ToLower(k))
			if err != nil {
				return cli.UsageError("invalid --kind", err)
			}
			kinds = append(kinds, kind)
		}

		format := exportFlags.format
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(exportFlags.out)), ".")
		}
		switch format {
		case "xlsx":
			if exportFlags.out == "-" {
				return cli.UsageError("invalid --out", fmt.Errorf("xlsx cannot be written to stdout"))
			}
		case "csv":
			if len(kinds) != 1 {
				return cli.UsageError("invalid --kind", fmt.Errorf("csv export takes exactly one kind, got %d", len(kinds)))
			}
		default:
			return cli.UsageError("invalid --format", fmt.Errorf("unknown export format %q (want xlsx or csv)", format))
		}

		snap, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}

		return writeOutput(cmd, exportFlags.out, func(w io.Writer) error {
			if format == "csv" {
				return export.WriteCSV(w, snap, kinds[0])
			}
			return export.WriteXLSX(w, snap, kinds...)
		})
	},
}

// writeOutput writes to path, or to stdout when path is "-". Files are only
// left behind when write succeeds.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	logger.Info("export written", "path", path)
	return nil
}

func init() {
	addWindowFlags(exportCmd)
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "", "output file, or - for stdout")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", "", "xlsx or csv (default: from the --out extension)")
	exportCmd.Flags().StringSliceVar(&exportFlags.kinds, "kind", nil, "tables to export: users, roles, tcodes, unused (default: all)")
	_ = exportCmd.MarkFlagRequired("out")
}
