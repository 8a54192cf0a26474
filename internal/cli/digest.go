package cli

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"habitbot/internal/delivery"
	"habitbot/internal/jobs"
	"habitbot/internal/notify"
)

func digestCmd(opts *rootOptions) *cobra.Command {
	var send bool

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print today's digest, or send it with --send",
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

			var sink notify.Sink
			if send {
				botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
				if err != nil {
					return fmt.Errorf("connect to telegram: %w", err)
				}
				sink = delivery.NewTelegramSink(botAPI, cfg.Bot.ChatID, a.logger)
			}
			j := jobs.New(a.tracker, a.planner, a.notebook, sink, cfg.Scheduler.RetentionDays, a.logger)

			if send {
				if err := j.MorningDigest(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Digest sent")
				return nil
			}

			msg, err := j.BuildDigest(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg.Text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "deliver the digest to the configured chat")
	return cmd
}
