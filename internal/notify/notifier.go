package notify

import (
	"context"
	"fmt"
	"strings"

	"coinpilot/pkg/logger"

	"github.com/bytedance/sonic"
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Payload is one per-user tick summary.
type Payload struct {
	Trades  int      `json:"trades"`
	Symbols []string `json:"symbols,omitempty"`
}

func (p Payload) Text() string {
	if len(p.Symbols) == 0 {
		return fmt.Sprintf("✅ executed %d trade(s)", p.Trades)
	}
	return fmt.Sprintf("✅ executed %d trade(s): %s", p.Trades, strings.Join(p.Symbols, ", "))
}

// Notifier delivers best-effort. A false return means the recipient was
// unreachable; callers must never treat that as an error.
type Notifier interface {
	Send(ctx context.Context, userID int64, p Payload) bool
}

// Telegram sends the summary to the user's chat (chat ID == user ID).
type Telegram struct {
	bot *tgbot.BotAPI
}

func NewTelegram(token string) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b}, nil
}

func (t *Telegram) Send(_ context.Context, userID int64, p Payload) bool {
	if t == nil || t.bot == nil {
		return false
	}
	if _, err := t.bot.Send(tgbot.NewMessage(userID, p.Text())); err != nil {
		raw, _ := sonic.Marshal(p)
		logger.Info("notify: user %d unreachable: %v (payload %s)", userID, err, raw)
		return false
	}
	return true
}

// Stdout logs instead of sending; used when no telegram token is configured.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Send(_ context.Context, userID int64, p Payload) bool {
	raw, _ := sonic.Marshal(p)
	logger.Info("notify user %d: %s", userID, raw)
	return true
}
