package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/moneymind/internal/api"
	"github.com/ajitpratap0/moneymind/internal/config"
	"github.com/ajitpratap0/moneymind/internal/messaging"
	"github.com/ajitpratap0/moneymind/internal/metrics"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot and the metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, st.cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if !cfg.API.Enabled && !cfg.Telegram.Enabled {
		return errNoChannels
	}

	a, err := newApp(ctx, cfg, appOptions{withEvents: true})
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Monitoring.EnableMetrics {
		ms := metrics.NewServer(cfg.Monitoring.PrometheusPort, log.Logger)
		if err := ms.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return ms.Shutdown(sctx)
		})
	}

	if cfg.API.Enabled {
		srv := api.NewServer(apiConfig(cfg, a))
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Stop(sctx)
		})
	}

	if cfg.Telegram.Enabled {
		tg, err := messaging.NewTelegramAPI(cfg.Telegram.Token, cfg.Telegram.Debug)
		if err != nil {
			return err
		}
		bot := messaging.NewBot(tg, a.router, messaging.BotConfig{
			PollingTimeout: cfg.Telegram.PollingTimeout,
			TurnTimeout:    cfg.App.GetTurnTimeout(),
		})
		bot.RegisterHandler("profile", func(ctx context.Context, m *tgbotapi.Message) string {
			return a.router.Route(ctx, messaging.UserID(m.From, m.Chat.ID), "show my profile")
		})
		g.Go(func() error { return bot.Run(gctx) })
	}

	log.Info().
		Bool("api", cfg.API.Enabled).
		Bool("telegram", cfg.Telegram.Enabled).
		Bool("metrics", cfg.Monitoring.EnableMetrics).
		Msg("MoneyMind serving")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("MoneyMind stopped gracefully")
	return nil
}

// apiConfig mounts the news routes only when a search key is configured
func apiConfig(cfg *config.Config, a *app) api.Config {
	var news api.NewsFeed
	if cfg.Search.APIKey != "" {
		news = a.search
	}
	return api.Config{
		Host:           cfg.API.Host,
		Port:           cfg.API.Port,
		Version:        config.GetVersion(),
		AppLink:        cfg.API.AppLink,
		AllowedOrigins: cfg.API.AllowedOrigins,
		Auth: &api.AuthConfig{
			Enabled:    cfg.API.Auth.Enabled,
			HeaderName: cfg.API.Auth.HeaderName,
			KeyHashes:  cfg.API.Auth.KeyHashes,
		},
		Router:      a.router,
		Store:       a.store,
		Sender:      whatsAppSender(cfg),
		News:        news,
		Investments: a.assistant,
		Checks:      a.checks,
		TurnTimeout: cfg.App.GetTurnTimeout(),
	}
}

// whatsAppSender returns nil when Twilio is off so the webhook logs and drops replies
func whatsAppSender(cfg *config.Config) messaging.Sender {
	if !cfg.Twilio.Enabled {
		return nil
	}
	return messaging.NewTwilioSender(messaging.TwilioConfig{
		BaseURL:    cfg.Twilio.BaseURL,
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.From,
		Timeout:    cfg.Twilio.GetTimeout(),
	})
}
