package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"volbot/internal/report"
	"volbot/internal/volatility"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
}

func NewBot(token, webhookURL string, runner Runner, history History, defaults volatility.Params) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	// set webhook
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	log.Info().Str("url", webhookURL).Msg("telegram: webhook set")

	return &Bot{api: api, h: NewHandlers(api, runner, history, defaults)}, nil
}

// Webhook HTTP handler (registered at /telegram/webhook)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message != nil {
		log.Info().Int64("chat_id", update.Message.Chat.ID).Str("text", update.Message.Text).Msg("webhook: message")
		go b.h.HandleMessage(update.Message)
	} else {
		log.Debug().Msg("webhook: non-message update received")
	}
	w.WriteHeader(http.StatusOK)
}

// Publisher pushes reports to a fixed chat without running a webhook.
type Publisher struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewPublisher(token string, chatID int64) (*Publisher, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Publisher{api: api, chatID: chatID}, nil
}

func (p *Publisher) Publish(rep *report.Report) error {
	return SendReport(p.api, p.chatID, rep)
}
