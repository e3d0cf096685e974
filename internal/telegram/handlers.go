package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"varRiskBot/internal/finance"
	"varRiskBot/internal/service"
)

var (
	// /var S1 [S2 ...] [lookback] [key=value ...]
	reVar = regexp.MustCompile(`^/var(?:@[\w_]+)?(?:\s+(.*))?$`)
	// /varport [qty] S1 A1 [S2 A2 ...] [lookback] [key=value ...]
	reVarPort = regexp.MustCompile(`^/varport(?:@[\w_]+)?(?:\s+(.*))?$`)
	// /history
	reHistory = regexp.MustCompile(`^/history(?:@[\w_]+)?$`)
	// /help
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

const calcTimeout = 60 * time.Second

// Sender is the part of the Bot API the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Narrator explains a result in plain language.
type Narrator interface {
	Explain(ctx context.Context, summary string) (string, error)
}

type Deps struct {
	Service  *service.Service
	Charts   *finance.Charts
	History  *finance.HistoryView
	Narrator Narrator // optional
}

type Handlers struct {
	api  Sender
	deps Deps
	log  zerolog.Logger
	now  func() time.Time
}

func NewHandlers(api Sender, deps Deps, log zerolog.Logger) *Handlers {
	return &Handlers{api: api, deps: deps, log: log, now: time.Now}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	switch {
	case reVar.MatchString(txt):
		g := reVar.FindStringSubmatch(txt)
		opts, err := parseVar(g[1], h.now())
		if err != nil {
			h.reply(m.Chat.ID, err.Error())
			return
		}
		h.handleCalc(m.Chat.ID, opts)

	case reVarPort.MatchString(txt):
		g := reVarPort.FindStringSubmatch(txt)
		opts, err := parseVarPort(g[1], h.now())
		if err != nil {
			h.reply(m.Chat.ID, err.Error()+"\nExample: /varport SPY 0.6 TLT 0.4 1y")
			return
		}
		h.handleCalc(m.Chat.ID, opts)

	case reHistory.MatchString(txt):
		h.handleHistory(m.Chat.ID)

	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)
	}
}

func (h *Handlers) handleCalc(chatID int64, opts calcOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), calcTimeout)
	defer cancel()

	req := h.deps.Service.WithDefaults(opts.req)
	out, err := h.deps.Service.Calculate(ctx, "telegram", req)
	if err != nil {
		h.reply(chatID, service.Describe(err))
		return
	}

	summary := service.Summary(out)
	h.reply(chatID, summary)

	key := finance.ChartKey(out.Request)
	if img, err := h.deps.Charts.RollingVaR(key, out.Result); err == nil {
		h.photo(chatID, "rolling_var.png", img, "Rolling VaR: historical vs parametric")
	} else {
		h.log.Debug().Err(err).Msg("rolling chart skipped")
	}
	if img, err := h.deps.Charts.ReturnHistogram(key, out.Result); err == nil {
		h.photo(chatID, "returns.png", img, "Return distribution")
	} else {
		h.log.Debug().Err(err).Msg("histogram skipped")
	}

	if opts.explain {
		if h.deps.Narrator == nil {
			h.reply(chatID, "Commentary is not configured on this bot.")
			return
		}
		text, err := h.deps.Narrator.Explain(ctx, summary)
		if err != nil {
			h.log.Warn().Err(err).Msg("commentary failed")
			h.reply(chatID, "Commentary failed: "+err.Error())
			return
		}
		h.reply(chatID, text)
	}
}

func (h *Handlers) handleHistory(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := h.deps.Service.History(ctx)
	if err != nil {
		h.reply(chatID, "History failed: "+err.Error())
		return
	}
	msg := tgbotapi.NewMessage(chatID, h.deps.History.Text(records))
	msg.ParseMode = "Markdown"
	h.send(msg)
	if len(records) == 0 {
		return
	}
	if img, err := h.deps.History.Chart(records); err == nil {
		h.photo(chatID, "history.png", img, fmt.Sprintf("Last %d calculations", len(records)))
	}
}

func (h *Handlers) handleHelp(chatID int64) {
	d := h.deps.Service.Defaults()
	help := "Commands\n\n" +
		"- /var S1 [S2 ...] [lookback] [options] - VaR of one symbol or an equal-weight basket\n" +
		"- /varport [qty] S1 A1 [S2 A2 ...] [lookback] [options] - VaR of a weighted portfolio, or quantities with qty\n" +
		"- /history - Last calculations\n" +
		"\nLookback: 30d, 6w, 3m, 1y (default " + finance.DefaultLookback + ")\n" +
		"Options: conf=95 win=30 value=100000 from=2024-01-02 to=2024-06-28 mc sims=10000 seed=7 explain\n" +
		fmt.Sprintf("Defaults: window %d, confidence %g, value %.0f, %d simulations\n",
			d.Window, d.Confidence, d.PortfolioValue, d.Simulations) +
		"\nVaR is the one-day loss not exceeded at the given confidence, reported as a positive amount."
	h.reply(chatID, help)
}

func (h *Handlers) photo(chatID int64, name string, img []byte, caption string) {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	p.Caption = caption
	h.send(p)
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		h.log.Warn().Err(err).Msg("telegram send failed")
	}
}
