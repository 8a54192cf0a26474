package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"habitbot/pkg/mq"
	"habitbot/pkg/outbox"
)

func outboxCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay queued notifications",
	}
	cmd.AddCommand(outboxFailedCmd(opts), outboxReplayCmd(opts))
	return cmd
}

func outboxFailedCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List events that exhausted their retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := outbox.NewRepository(a.pool).GetFailedEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No failed events")
				return nil
			}
			for _, e := range events {
				fmt.Fprintf(out, "%d\t%s\tretries=%d\t%s\n", e.ID, e.RoutingKey, e.RetryCount, e.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of events to list")
	return cmd
}

func outboxReplayCmd(opts *rootOptions) *cobra.Command {
	var (
		id    int64
		all   bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Republish one event (--id) or every failed event (--failed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (id == 0) == !all {
				return errors.New("specify exactly one of --id or --failed")
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			publisher, err := mq.NewPublisher(cfg.MQ.URL)
			if err != nil {
				return fmt.Errorf("init mq publisher: %w", err)
			}
			defer publisher.Close()

			replay := outbox.NewReplayService(outbox.NewRepository(a.pool), publisher, a.logger)
			out := cmd.OutOrStdout()
			if all {
				n, err := replay.ReplayFailedEvents(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Replayed %d event(s)\n", n)
				return nil
			}

			if err := replay.ReplayEvent(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Replayed event %d\n", id)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "event id to replay")
	cmd.Flags().BoolVar(&all, "failed", false, "replay all failed events")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of failed events to replay")
	return cmd
}
