package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func cleanupCmd(opts *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete notes older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = cfg.Scheduler.RetentionDays
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.notebook.CleanupOldNotes(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("cleanup notes: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d note(s) older than %d day(s)\n", removed, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (defaults to scheduler.retention_days)")
	return cmd
}
