package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sapauth/internal/cli"
)

var roleCmd = &cobra.Command{
	Use:     "role NAME",
	Short:   "Show one role with its transaction codes and users",
	Example: `  sapauth role Z_FI_POSTING --preset this-year`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}

		detail, ok := snap.RoleDetail(args[0])
		if !ok {
			msg := fmt.Sprintf("role %q not found", args[0])
			if suggestions := snap.SuggestRoles(args[0], 3); len(suggestions) > 0 {
				msg += "; did you mean " + strings.Join(suggestions, ", ") + "?"
			}
			return cli.NotFoundError(msg)
		}

		return render(cmd.OutOrStdout(), outputFormat, detail, func(w io.Writer) error {
			r := detail.Role
			header := [][]string{
				{"Role", r.RoleName},
				{"Tags", r.Tags},
				{"Users", strconv.Itoa(r.UsersAssigned)},
				{"TCodes", fmt.Sprintf("%d (%d unused)", r.TCodes, r.Unused)},
				{"Utilization", fmt.Sprintf("%d%%", detail.Utilization)},
			}
			if err := writeTable(w, []string{"Field", "Value"}, header); err != nil {
				return err
			}

			if err := section(w, "Transaction codes", func() error {
				rows := make([][]string, len(detail.TCodes))
				for i, tc := range detail.TCodes {
					rows[i] = []string{tc.TCode, tc.Description, strconv.Itoa(tc.Executions), strconv.Itoa(tc.Users)}
				}
				return writeTable(w, []string{"TCode", "Description", "Executions", "Users"}, rows)
			}); err != nil {
				return err
			}

			return section(w, "Users", func() error {
				rows := make([][]string, len(detail.Users))
				for i, u := range detail.Users {
					rows[i] = []string{u.UserID, u.Group, string(u.Status), u.LastLogon, u.ValidTo}
				}
				return writeTable(w, []string{"User ID", "Group", "Status", "Last Logon", "Valid To"}, rows)
			})
		})
	},
}

func init() {
	addWindowFlags(roleCmd)
}
