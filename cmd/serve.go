package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"leafscan/internal/api/telegram"
	"leafscan/internal/api/web"
)

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web page and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := setup(*envFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					log.WithError(err).Warn("close model")
				}
			}()

			gin.SetMode(c.Config.GinMode)

			// Модель грузится заранее, ошибка показывается на странице
			if err := c.InspectionService.Ready(); err != nil {
				log.WithError(err).Error("model is not available")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server, err := web.NewServer(c.InspectionService, log.WithField("component", "web"), c.Config.MaxUploadBytes)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Run(ctx, c.Config.HTTPAddr)
			})

			if c.Config.TelegramToken != "" {
				bot, err := telegram.NewBot(c.Config.TelegramToken, c.UserService, c.InspectionService, log.WithField("component", "telegram"))
				if err != nil {
					stop()
					_ = g.Wait()
					return err
				}
				g.Go(func() error {
					return bot.Run(ctx)
				})
			} else {
				log.Info("TELEGRAM_TOKEN is not set, bot disabled")
			}

			return g.Wait()
		},
	}
}
