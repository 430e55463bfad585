package bot

import (
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
)

// New создаёт Bot API клиента и регистрирует обработчики
func New(token string, log *slog.Logger, h *Handlers) (*tgbot.Bot, error) {
	b, err := tgbot.New(token,
		tgbot.WithMiddlewares(LogMiddleware(log)),
		tgbot.WithDefaultHandler(h.Lookup),
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b.RegisterHandler(tgbot.HandlerTypeMessageText, "start", tgbot.MatchTypeCommandStartOnly, h.Start)
	return b, nil
}
