package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sapauth/pkg/engine"
)

var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Cross-check the sheets of an export",
	Long: `Cross-check the sheets of an export.

Reports role assignments naming unknown users, executed codes no role grants,
users without roles, and duplicate user rows that disagree. Findings are
informational; they never change the derived figures.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		rep := engine.CheckIntegrity(snap)

		return render(cmd.OutOrStdout(), outputFormat, rep, func(w io.Writer) error {
			rows := make([][]string, len(rep.Findings))
			for i, f := range rep.Findings {
				rows[i] = []string{string(f.Kind), f.Subject, f.Message, f.Suggestion}
			}
			if err := writeTable(w, []string{"Kind", "Subject", "Message", "Suggestion"}, rows); err != nil {
				return err
			}
			st := rep.Stats
			_, err := fmt.Fprintf(w, "\n%d unknown users, %d ungranted tcodes, %d users without role, %d user conflicts\n",
				st.UnknownUsers, st.UngrantedTCodes, st.UsersWithoutRole, st.UserConflicts)
			return err
		})
	},
}

func init() {
	addWindowFlags(integrityCmd)
}
