package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/example/musclecards/internal/bot"
	"github.com/example/musclecards/internal/scheduler"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBotCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and due card reminders until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			return runBot(ctx, a)
		},
	}
}

func runBot(ctx context.Context, a *app) error {
	api, err := bot.NewBotAPI(a.cfg.Telegram.Token, a.cfg.Telegram.Debug)
	if err != nil {
		return err
	}
	a.logger.Info("authorized on account", zap.String("username", api.Self.UserName))

	botCfg := bot.DefaultConfig()
	botCfg.OwnerChatID = a.cfg.Telegram.OwnerChatID
	botCfg.ShareBaseURL = a.cfg.Share.BaseURL
	botCfg.UpdateTimeout = a.cfg.Telegram.Timeout
	botCfg.Debug = a.cfg.Telegram.Debug
	if botCfg.OwnerChatID == 0 {
		a.logger.Warn("owner_chat_id is not set, every chat will be refused")
	}

	b := bot.New(api, a.session, a.gateway, a.reviews, botCfg, a.logger)

	if a.cfg.Reminder.Enabled {
		s := scheduler.New(b, a.session, scheduler.Config{
			Interval:  a.cfg.Reminder.Interval,
			StartHour: a.cfg.Reminder.StartHour,
			EndHour:   a.cfg.Reminder.EndHour,
			MaxCards:  a.cfg.Reminder.MaxCards,
		}, a.logger)
		if err := s.Start(ctx); err != nil {
			return err
		}
		defer s.Stop()
		a.logger.Info("reminder scheduler started", zap.Duration("interval", a.cfg.Reminder.Interval))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = botCfg.UpdateTimeout
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	return b.Run(ctx, updates)
}
