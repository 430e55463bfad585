package bot

import (
	"context"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// LogMiddleware логирует каждое обновление и время его обработки
func LogMiddleware(log *slog.Logger) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			start := time.Now()
			entry := log.With("update_id", update.ID)

			if msg := update.Message; msg != nil {
				entry = entry.With(
					"chat_id", msg.Chat.ID,
					"message_id", msg.ID,
					"forwarded", msg.ForwardOrigin != nil,
					"text_preview", truncate(msg.Text, 50),
				)
				if msg.From != nil {
					entry = entry.With("user_id", msg.From.ID)
				}
			}

			entry.DebugContext(ctx, "Processing update")
			next(ctx, b, update)
			entry.InfoContext(ctx, "Update processed", "duration", time.Since(start))
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
