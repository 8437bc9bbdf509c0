package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"volbot/internal/report"
	"volbot/internal/storage"
	"volbot/internal/volatility"
)

var (
	// /volcmp [UNDERLYING] [VOLINDEX] [window] [lag]
	reVolCmp = regexp.MustCompile(`^/volcmp(?:@[\w_]+)?(?:\s+([A-Za-z0-9\.^_=+-]+))?(?:\s+([A-Za-z0-9\.^_=+-]+))?(?:\s+(\d+))?(?:\s+(\d+))?$`)
	// /history [n]
	reHistory = regexp.MustCompile(`^/history(?:@[\w_]+)?(?:\s+(\d+))?$`)
	// /help
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// Sender is the part of *tgbotapi.BotAPI the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Runner produces a report for a set of parameters.
type Runner interface {
	Run(ctx context.Context, p volatility.Params) (*report.Report, error)
}

// History lists recorded runs.
type History interface {
	RecentRuns(ctx context.Context, limit int) ([]storage.Run, error)
}

type Handlers struct {
	api      Sender
	runner   Runner
	history  History
	defaults volatility.Params
	timeout  time.Duration
}

func NewHandlers(api Sender, runner Runner, history History, defaults volatility.Params) *Handlers {
	return &Handlers{
		api:      api,
		runner:   runner,
		history:  history,
		defaults: defaults,
		timeout:  2 * time.Minute,
	}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	switch {
	case reVolCmp.MatchString(txt):
		p, err := parseVolCmp(txt, h.defaults)
		if err != nil {
			h.reply(m.Chat.ID, err.Error())
			return
		}
		h.handleVolCmp(m.Chat.ID, p)

	case reHistory.MatchString(txt):
		limit := 5
		if g := reHistory.FindStringSubmatch(txt); len(g) == 2 && g[1] != "" {
			limit, _ = strconv.Atoi(g[1])
			limit = min(max(limit, 1), 20)
		}
		h.handleHistory(m.Chat.ID, limit)

	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)
	}
}

// parseVolCmp fills the command's optional arguments over the defaults.
func parseVolCmp(txt string, defaults volatility.Params) (volatility.Params, error) {
	g := reVolCmp.FindStringSubmatch(strings.TrimSpace(txt))
	if g == nil {
		return volatility.Params{}, errors.New("usage: /volcmp [UNDERLYING] [VOLINDEX] [window] [lag]")
	}
	p := defaults
	if g[1] != "" {
		p.Underlying = strings.ToUpper(g[1])
	}
	if g[2] != "" {
		p.VolIndex = strings.ToUpper(g[2])
	}
	if g[3] != "" {
		p.RollingWindow, _ = strconv.Atoi(g[3])
	}
	if g[4] != "" {
		p.Lag, _ = strconv.Atoi(g[4])
	}
	if err := p.Validate(); err != nil {
		return volatility.Params{}, err
	}
	return p, nil
}

func (h *Handlers) handleVolCmp(chatID int64, p volatility.Params) {
	h.reply(chatID, fmt.Sprintf("Comparing %s with %s realized vol (%dd window, lag %d)…", p.VolIndex, p.Underlying, p.RollingWindow, p.Lag))
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	rep, err := h.runner.Run(ctx, p)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram: volcmp failed")
		h.reply(chatID, "Comparison failed: "+err.Error())
		return
	}
	if err := SendReport(h.api, chatID, rep); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram: send report failed")
	}
}

func (h *Handlers) handleHistory(chatID int64, limit int) {
	if h.history == nil {
		h.reply(chatID, "History is not enabled.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	runs, err := h.history.RecentRuns(ctx, limit)
	if err != nil {
		h.reply(chatID, "History failed: "+err.Error())
		return
	}
	h.reply(chatID, report.FormatHistory(runs))
}

func (h *Handlers) handleHelp(chatID int64) {
	d := h.defaults
	help := "Commands\n\n" +
		fmt.Sprintf("- /volcmp [UNDERLYING] [VOLINDEX] [window] [lag] - Implied vs realized volatility chart (default: %s %s %d %d)\n",
			d.Underlying, d.VolIndex, d.RollingWindow, d.Lag) +
		"- /history [n] - Last n comparisons (default: 5, max: 20)\n" +
		"\nRealized vol is the annualized std dev of daily log returns over the window, shifted back by lag days."
	h.reply(chatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram: reply failed")
	}
}

// SendReport posts the chart with its caption, then the commentary if any.
func SendReport(api Sender, chatID int64, rep *report.Report) error {
	p := rep.Comparison.Params
	name := strings.NewReplacer("^", "", "/", "_").Replace(p.Underlying + "_" + p.VolIndex)
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name + "_volcmp.png", Bytes: rep.Chart})
	photo.Caption = rep.Caption
	if _, err := api.Send(photo); err != nil {
		return fmt.Errorf("send chart: %w", err)
	}
	if rep.Commentary != "" {
		if _, err := api.Send(tgbotapi.NewMessage(chatID, rep.Commentary)); err != nil {
			return fmt.Errorf("send commentary: %w", err)
		}
	}
	return nil
}
