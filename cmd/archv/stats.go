package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/slack-archv/internal/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the archive contains",
	Long: `Print the archived workspace id, schema version, user, emoji and file counts
and the number of messages stored per channel. Counts are computed on demand.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.schema.Ensure(ctx); err != nil {
		return err
	}
	stats, err := a.browser().Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	printStats(out, stats)
	return nil
}

func printStats(w io.Writer, stats *models.ArchiveStats) {
	workspace := stats.WorkspaceID
	if workspace == "" {
		workspace = "(not archived yet)"
	}
	_, _ = fmt.Fprintf(w, "Workspace: %s\nSchema:    %s\nUsers:     %d\nEmoji:     %d\nFiles:     %d\n\n",
		workspace, stats.Version, stats.Users, stats.Emoji, stats.Files)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CHANNEL\tID\tMESSAGES\tARCHIVED")
	total := 0
	for _, ch := range stats.Channels {
		_, _ = fmt.Fprintf(tw, "#%s\t%s\t%d\t%t\n", ch.Name, ch.ID, ch.MessageCount, ch.Archived)
		total += ch.MessageCount
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(w, "\n%d channels, %d messages\n", len(stats.Channels), total)
}
