package main

import (
	"github.com/spf13/cobra"

	"sapauth/internal/cli"
	"sapauth/pkg/engine"
	"sapauth/pkg/source"
)

// windowFlags are shared by every command that reads log evidence.
var windowFlags struct {
	preset string
	from   string
	to     string
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&windowFlags.preset, "preset", "", "date preset: all, this-week, this-month, last-month, last-3-months, 6-months, this-year")
	cmd.Flags().StringVar(&windowFlags.from, "from", "", "count executions on or after this date")
	cmd.Flags().StringVar(&windowFlags.to, "to", "", "count executions on or before this date")
}

// loadDataset fetches and parses the configured export.
func loadDataset(cmd *cobra.Command) (*source.Dataset, error) {
	location := resolveString(sourceFlag, cfg.Source)
	if location == "" {
		return nil, cli.UsageError("no export given", errNoSource)
	}

	retries := cfg.Fetch.Retries
	if retries == 0 {
		retries = -1
	}
	src := source.New(location, source.FetchOptions{
		Timeout:       cfg.Fetch.Timeout,
		Retries:       retries,
		RetryInterval: cfg.Fetch.RetryInterval,
		Logger:        logger,
	})

	ds, err := source.Open(cmd.Context(), src, source.Options{
		Rules:     cfg.Rules,
		CacheSize: cfg.Cache.Size,
		Logger:    logger,
	})
	if err != nil {
		return nil, cli.LoadError("loading "+location, err)
	}
	for _, w := range ds.Result.Warnings {
		logger.Warn("parse warning", "sheet", w.Sheet, "row", w.Row, "message", w.Message)
	}
	return ds, nil
}

// loadSnapshot loads the export and derives the snapshot for the window flags.
func loadSnapshot(cmd *cobra.Command) (*engine.Snapshot, error) {
	ds, err := loadDataset(cmd)
	if err != nil {
		return nil, err
	}
	spec := engine.WindowSpec{
		Preset: engine.Preset(windowFlags.preset),
		From:   windowFlags.from,
		To:     windowFlags.to,
	}
	w, err := spec.Resolve(ds.Base().Now)
	if err != nil {
		return nil, cli.UsageError("invalid date window", err)
	}
	if !w.IsAllTime() {
		logger.Debug("applying date window", "window", w.Key())
	}
	return ds.Snapshot(w), nil
}
