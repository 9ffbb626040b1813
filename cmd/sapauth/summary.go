package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"sapauth/pkg/engine"
	"sapauth/pkg/report"
)

var summaryTop int

// dashboard is everything the summary command reports.
type dashboard struct {
	Window             *engine.Window           `json:"window,omitempty"`
	Summary            report.Summary           `json:"summary"`
	UsersByStatus      []report.Bucket          `json:"usersByStatus"`
	UsersByGroup       []report.Bucket          `json:"usersByGroup"`
	RolesByTag         []report.Bucket          `json:"rolesByTag"`
	RoleUtilization    []report.RoleUtilization `json:"roleUtilization"`
	RoleUnused         []report.RoleUnused      `json:"roleUnused"`
	TopTCodes          []report.TCodeShare      `json:"topTCodes"`
	ExecutionsByGroup  []report.Bucket          `json:"executionsByGroup"`
	UniqueCodesByGroup []report.Bucket          `json:"uniqueCodesByGroup"`
	Heatmap            []report.HeatmapRow      `json:"heatmap"`
}

func buildDashboard(s *engine.Snapshot, top int) dashboard {
	return dashboard{
		Window:             s.Window,
		Summary:            report.Summarize(s),
		UsersByStatus:      report.UsersByStatus(s.Users),
		UsersByGroup:       report.SortBuckets(report.UsersByGroup(s.Users)),
		RolesByTag:         report.RolesByTag(s.Roles),
		RoleUtilization:    report.TopN(report.RoleUtilizations(s.Roles), top, func(r report.RoleUtilization) int { return r.Utilization }),
		RoleUnused:         report.TopN(report.RoleUnusedShares(s.Roles), top, func(r report.RoleUnused) int { return r.UnusedPct }),
		TopTCodes:          report.TopTCodes(s, top),
		ExecutionsByGroup:  report.ExecutionsByGroup(s),
		UniqueCodesByGroup: report.UniqueCodesByGroup(s),
		Heatmap:            report.ExecutionHeatmap(s),
	}
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Headline figures and rollups",
	Example: `  # Dashboard for the whole export
  sapauth summary -s Logs_for_Analysis.xlsx

  # Only count executions from last month
  sapauth summary --preset last-month -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		d := buildDashboard(snap, summaryTop)
		return render(cmd.OutOrStdout(), outputFormat, d, func(w io.Writer) error {
			return printDashboard(w, d)
		})
	},
}

func init() {
	addWindowFlags(summaryCmd)
	summaryCmd.Flags().IntVar(&summaryTop, "top", 10, "entries per ranking (0 for all)")
}

func printDashboard(w io.Writer, d dashboard) error {
	s := d.Summary
	window := "all time"
	if d.Window != nil {
		window = d.Window.Key()
	}
	headline := [][]string{
		{"Window", window},
		{"Users", fmt.Sprintf("%d (active %d, dormant %d, inactive %d)", s.TotalUsers, s.ActiveUsers, s.DormantUsers, s.InactiveUsers)},
		{"Roles", fmt.Sprintf("%d (critical %d, unused %d)", s.TotalRoles, s.CriticalRoles, s.UnusedRoles)},
		{"TCodes", fmt.Sprintf("%d (%d executed)", s.TotalTCodes, s.ExecutedTCodes)},
		{"Executions", strconv.Itoa(s.TotalExecutions)},
		{"Avg utilization", fmt.Sprintf("%d%%", s.AvgUtilization)},
	}
	if s.UndatedLogs > 0 {
		headline = append(headline, []string{"Undated log rows", strconv.Itoa(s.UndatedLogs)})
	}
	if err := writeTable(w, []string{"Metric", "Value"}, headline); err != nil {
		return err
	}

	if err := section(w, "Users by status", func() error { return writeBuckets(w, "Status", d.UsersByStatus) }); err != nil {
		return err
	}
	if err := section(w, "Roles by tag", func() error { return writeBuckets(w, "Tag", d.RolesByTag) }); err != nil {
		return err
	}
	if err := section(w, "Top transaction codes", func() error {
		rows := make([][]string, len(d.TopTCodes))
		for i, tc := range d.TopTCodes {
			rows[i] = []string{tc.TCode.TCode, tc.Description, strconv.Itoa(tc.Executions), tc.Share}
		}
		return writeTable(w, []string{"TCode", "Description", "Executions", "Share"}, rows)
	}); err != nil {
		return err
	}
	if err := section(w, "Executions by group", func() error { return writeBuckets(w, "Group", d.ExecutionsByGroup) }); err != nil {
		return err
	}
	return section(w, "Execution heatmap", func() error {
		rows := make([][]string, len(d.Heatmap))
		for i, h := range d.Heatmap {
			rows[i] = []string{h.Group, strconv.Itoa(h.High), strconv.Itoa(h.Medium), strconv.Itoa(h.Low), strconv.Itoa(h.None)}
		}
		return writeTable(w, []string{"Group", report.VolumeHigh, report.VolumeMedium, report.VolumeLow, report.VolumeNone}, rows)
	})
}

func writeBuckets(w io.Writer, label string, buckets []report.Bucket) error {
	rows := make([][]string, len(buckets))
	for i, b := range buckets {
		rows[i] = []string{b.Name, strconv.Itoa(b.Value)}
	}
	return writeTable(w, []string{label, "Count"}, rows)
}
