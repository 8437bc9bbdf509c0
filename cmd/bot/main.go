package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"volbot/internal/app"
	"volbot/internal/config"
	"volbot/internal/server"
	"volbot/internal/telegram"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("config: load failed")
	}
	app.SetupLogging(cfg)
	if err := cfg.ValidateBot(); err != nil {
		log.Fatal().Err(err).Msg("config: invalid")
	}
	defaults, _ := cfg.Params()

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app: init failed")
	}
	defer a.Close()

	var history telegram.History
	if a.Store != nil {
		history = a.Store
	}
	tg, err := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.WebhookURL, a.Service, history, defaults)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram: init failed")
	}
	log.Info().Str("webhook", cfg.Telegram.WebhookURL).Msg("telegram: bot initialized")

	mux := server.NewHTTPMux(tg.WebhookHandler, a.Service, defaults) // registers /telegram/webhook
	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("http: listening")
	if err := server.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("server error")
		a.Close()
		os.Exit(1)
	}
}
