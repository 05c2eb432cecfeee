package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parkpulse/parkpulse/config"
	"github.com/parkpulse/parkpulse/core/statelog"
	"github.com/parkpulse/parkpulse/pkg/export"
)

var (
	exportFormat string
	exportLot    string
	exportSpot   string
	exportSince  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the transition audit log",
	Long:  "Reads the configured statelog store directly and writes matching records to stdout.",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or csv")
	exportCmd.Flags().StringVar(&exportLot, "lot", "", "filter by lot id")
	exportCmd.Flags().StringVar(&exportSpot, "spot", "", "filter by spot id")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only records at or after this RFC3339 time")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var store statelog.Store
	switch cfg.StateLog.Backend {
	case "sqlite":
		store, err = statelog.NewSQLiteStore(cfg.StateLog.Path)
	default:
		store, err = statelog.NewJSONLStore(cfg.StateLog.Path)
	}
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	q := statelog.Query{LotID: exportLot, SpotID: exportSpot}
	if exportSince != "" {
		start, err := time.Parse(time.RFC3339, exportSince)
		if err != nil {
			return fmt.Errorf("parse --since: %w", err)
		}
		q.Start = start
	}
	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	switch exportFormat {
	case "json":
		return export.WriteJSON(os.Stdout, records)
	case "csv":
		return export.WriteCSV(os.Stdout, records)
	default:
		return fmt.Errorf("unknown format %s", exportFormat)
	}
}
