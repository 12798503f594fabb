package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/slack-archv/internal/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Archive new and edited messages",
	Long: `Authenticate, refresh users, channels and emoji, then archive every channel:
messages newer than the newest stored one are appended and stored messages whose
edit marker changed are overwritten in place.

The first run against an empty database records the workspace id. Later runs
refuse to write when the token belongs to another workspace unless
--allow-workspace-override is given.

Exit status: 0 on success, 2 when the token is rejected, 3 when the archive
belongs to another workspace, 1 on any other failure.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	addSyncFlags(syncCmd)
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("allow-workspace-override", false, "archive into a database recorded for another workspace")
	cmd.Flags().Bool("stars", false, "also archive starred items of every human user")
	cmd.Flags().Bool("file-comments", false, "also refresh comments of every stored file")
	cmd.Flags().String("metrics-textfile", "", "write run metrics in Prometheus text format to this path")
	cmd.Flags().Bool("json", false, "print the run report as JSON")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	if flags.Changed("allow-workspace-override") {
		a.cfg.Sync.AllowWorkspaceOverride, _ = flags.GetBool("allow-workspace-override")
	}
	if flags.Changed("stars") {
		a.cfg.Sync.Stars, _ = flags.GetBool("stars")
	}
	if flags.Changed("file-comments") {
		a.cfg.Sync.FileComments, _ = flags.GetBool("file-comments")
	}
	if flags.Changed("metrics-textfile") {
		a.cfg.Metrics.Textfile, _ = flags.GetString("metrics-textfile")
	}
	jsonOutput, _ := flags.GetBool("json")

	archiver, err := a.archiver()
	if err != nil {
		return err
	}

	report, runErr := archiver.Run(cmd.Context())
	if report != nil {
		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			printRunReport(out, report)
		}
	}
	return runErr
}

func printRunReport(w io.Writer, report *models.RunReport) {
	_, _ = fmt.Fprintf(w, "Workspace %s (%s)\n\n", report.Team, report.WorkspaceID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "COLLECTION\tFETCHED\tSTORED\tSKIPPED\tREMOVED")
	for _, c := range report.Collections {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", c.Name, c.Fetched, c.Stored, c.Skipped, c.Removed)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CHANNEL\tLEN\tADDED\tMODIFIED\tSKIPPED\tNOTE")
	for _, ch := range report.Channels {
		note := ""
		if ch.DiffTruncated {
			note = "edit check truncated"
		}
		_, _ = fmt.Fprintf(tw, "#%s\t%d\t+%d\t~%d\t%d\t%s\n",
			ch.Name, ch.Existing+ch.Added, ch.Added, ch.Modified, ch.Skipped, note)
	}
	for _, f := range report.Failures {
		_, _ = fmt.Fprintf(tw, "#%s\t-\t-\t-\t-\tfailed: %s\n", f.Name, f.Error)
	}
	_ = tw.Flush()

	added, modified, skipped := report.Totals()
	var elapsed time.Duration
	if !report.FinishedAt.IsZero() {
		elapsed = report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
	}
	_, _ = fmt.Fprintf(w, "\n%d channels, +%d added, ~%d modified, %d skipped in %s\n",
		len(report.Channels), added, modified, skipped, elapsed)
}
