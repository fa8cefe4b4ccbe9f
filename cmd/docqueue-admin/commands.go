package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ageagekun/docqueue/internal/domain/model"
)

const timeLayout = "2006-01-02 15:04"

func newOverviewCommand(ctx *commandContext, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show item counts per status for the last 24 hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withBackend(cmd.Context(), true, func(c context.Context, b backend) error {
				ov, err := b.Overview(c)
				if err != nil {
					return err
				}
				if out.json {
					return writeJSON(cmd, ov)
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(ov.Counts)+1)
				for _, st := range model.AllQueueStatuses() {
					rows = append(rows, []string{statusText(st, colorize), strconv.Itoa(ov.Counts[st])})
				}
				rows = append(rows, []string{"total", strconv.Itoa(ov.Total)})
				fmt.Fprintf(cmd.OutOrStdout(), "Since %s\n", ov.Since.Local().Format(timeLayout))
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newPendingCommand(ctx *commandContext, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List items that are still moving through the upload pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withBackend(cmd.Context(), true, func(c context.Context, b backend) error {
				items, err := b.Pending(c)
				if err != nil {
					return err
				}
				if out.json {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending items.")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(items))
				for _, it := range items {
					rows = append(rows, []string{
						strconv.FormatInt(it.ID, 10),
						strconv.FormatInt(it.FileID, 10),
						it.Payload.PatientName,
						it.Payload.FileName,
						it.Payload.Category,
						statusText(it.Status, colorize),
						it.UpdatedAt.Local().Format(timeLayout),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "File", "Patient", "Name", "Category", "Status", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newCancelAllCommand(ctx *commandContext, out *outputFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "cancel-all",
		Short: "Cancel every pending item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("cancel-all changes every pending item; rerun with --yes to confirm")
			}
			return ctx.withBackend(cmd.Context(), true, func(c context.Context, b backend) error {
				res, err := b.CancelAll(c)
				if err != nil {
					return err
				}
				ctx.log().InfoContext(c, "canceled pending items", "count", res.Count)
				if out.json {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Canceled %d pending item(s).\n", res.Count)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm canceling all pending items")
	return cmd
}

func newHistoryCommand(ctx *commandContext, out *outputFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List batch print artifacts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withBackend(cmd.Context(), true, func(c context.Context, b backend) error {
				hist, err := b.History(c, limit)
				if err != nil {
					return err
				}
				if out.json {
					return writeJSON(cmd, hist)
				}
				if len(hist.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No batch prints.")
					return nil
				}
				rows := make([][]string, 0, len(hist.Items))
				for _, e := range hist.Items {
					stale := ""
					if e.IsStale {
						stale = "stale"
					}
					rows = append(rows, []string{
						strconv.FormatInt(e.ID, 10),
						e.FileName,
						fmt.Sprintf("%d/%d", len(e.SuccessIDs), e.DocumentCount),
						strconv.Itoa(e.PageCount),
						formatBytes(e.FileSize),
						e.CreatedAt.Local().Format(timeLayout),
						stale,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "File", "Merged", "Pages", "Size", "Created", ""},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
				))
				if hist.Warning != "" {
					fmt.Fprintln(cmd.OutOrStdout(), hist.Warning)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of artifacts to list")
	return cmd
}

func newDeleteArtifactCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-artifact <batch-id>",
		Short: "Delete a batch print file and its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid batch id %q", args[0])
			}
			return ctx.withBackend(cmd.Context(), true, func(c context.Context, b backend) error {
				if err := b.DeleteArtifact(c, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted batch print %d.\n", id)
				return nil
			})
		},
	}
}

const defaultMigrationTimeout = 5 * time.Minute

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withBackend(cmd.Context(), false, func(c context.Context, b backend) error {
				c, cancel := context.WithTimeout(c, defaultMigrationTimeout)
				defer cancel()
				if err := b.Migrate(c); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
				return nil
			})
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
