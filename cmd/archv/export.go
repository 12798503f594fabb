package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/internal/service"
)

var exportCmd = &cobra.Command{
	Use:   "export <channel>",
	Short: "Render a channel transcript as CSV or PDF",
	Long: `Write the stored messages of one channel, oldest first, to EXPORT_DIR.
The channel is given by id or by name ("general" or "#general").

Examples:
  archv export general
  archv export C024BE91L --format pdf --since 2024-01-01 --until 2024-02-01
  archv export general --prune 168h   # also delete exports older than a week`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("format", string(models.ExportFormatCSV), "csv or pdf")
	exportCmd.Flags().String("since", "", "first day or RFC 3339 time to include")
	exportCmd.Flags().String("until", "", "first day or RFC 3339 time to exclude")
	exportCmd.Flags().Duration("prune", 0, "delete exports older than this before writing")
}

func runExport(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	format, _ := flags.GetString("format")
	sinceRaw, _ := flags.GetString("since")
	untilRaw, _ := flags.GetString("until")
	prune, _ := flags.GetDuration("prune")

	since, err := parseDay(sinceRaw)
	if err != nil {
		return fmt.Errorf("invalid --since: %w", err)
	}
	until, err := parseDay(untilRaw)
	if err != nil {
		return fmt.Errorf("invalid --until: %w", err)
	}

	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	exporter, store, err := a.exporter()
	if err != nil {
		return err
	}
	if prune > 0 {
		removed, err := exporter.Cleanup(prune)
		if err != nil {
			return err
		}
		for _, name := range removed {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "removed %s\n", name)
		}
	}

	result, err := exporter.Generate(cmd.Context(), service.ExportRequest{
		Channel: args[0],
		Format:  models.ExportFormat(strings.ToLower(format)),
		Since:   since,
		Until:   until,
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d messages)\n", store.Path(result.RelativePath), result.Messages)
	return nil
}

func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
