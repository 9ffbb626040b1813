package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"sapauth/internal/cli"
	"sapauth/pkg/report"
)

// listFlags are shared by the table commands.
var listFlags struct {
	search string
	sort   string
	desc   bool
	top    int
}

func addListFlags(cmd *cobra.Command, sortHelp string) {
	cmd.Flags().StringVar(&listFlags.search, "search", "", "case-insensitive substring filter over the text columns")
	cmd.Flags().StringVar(&listFlags.sort, "sort", "", "sort column: "+sortHelp)
	cmd.Flags().BoolVar(&listFlags.desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&listFlags.top, "top", 0, "show at most this many rows (0 for all)")
}

// listRows filters, sorts and prints rows through a report table.
func listRows[T any](cmd *cobra.Command, table report.Table[T], rows []T) error {
	out, err := table.Apply(rows, report.Query{
		Search:  listFlags.search,
		SortKey: listFlags.sort,
		Desc:    listFlags.desc,
	})
	if err != nil {
		return cli.UsageError("invalid --sort", err)
	}
	if listFlags.top > 0 && len(out) > listFlags.top {
		out = out[:listFlags.top]
	}
	return render(cmd.OutOrStdout(), outputFormat, table.Records(out), func(w io.Writer) error {
		return writeTable(w, table.Headers(), table.Rows(out))
	})
}

func columnKeys[T any](table report.Table[T]) string {
	keys := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		keys[i] = c.Key
	}
	return strings.Join(keys, ", ")
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users with derived status",
	Example: `  # Dormant users of the FI team
  sapauth users --search FI_ | grep Dormant`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		return listRows(cmd, report.UserTable, snap.Users)
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List roles with utilization and tags",
	Example: `  # Least used roles first
  sapauth roles --sort utilization

  # Critical roles as JSON
  sapauth roles --search "Critical Access" -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		return listRows(cmd, report.RoleTable, snap.Roles)
	},
}

var tcodesCmd = &cobra.Command{
	Use:   "tcodes",
	Short: "List granted transaction codes with execution counts",
	Long: `List granted transaction codes with execution counts.

With a date window only codes executed inside the window are listed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		return listRows(cmd, report.TCodeTable, report.WindowedTCodes(snap))
	},
}

var unusedCmd = &cobra.Command{
	Use:   "unused",
	Short: "List roles with no executed transaction code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		return listRows(cmd, report.UnusedRoleTable, report.Unused(snap.Roles))
	},
}

func init() {
	addWindowFlags(usersCmd)
	addListFlags(usersCmd, columnKeys(report.UserTable))

	addWindowFlags(rolesCmd)
	addListFlags(rolesCmd, columnKeys(report.RoleTable))

	addWindowFlags(tcodesCmd)
	addListFlags(tcodesCmd, columnKeys(report.TCodeTable))

	addWindowFlags(unusedCmd)
	addListFlags(unusedCmd, columnKeys(report.UnusedRoleTable))
}

