// Package bot принимает запросы через Bot API и отвечает отчётами.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/larriantoniy/dateregbot/internal/domain"
	"github.com/larriantoniy/dateregbot/internal/metrics"
	"github.com/larriantoniy/dateregbot/internal/ports"
)

// Estimator строит отчёт по идентификатору
type Estimator interface {
	Estimate(ctx context.Context, identifier string) (*domain.Report, error)
}

// MessageSender часть *tgbot.Bot, которая нужна обработчикам
type MessageSender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

type Handlers struct {
	log       *slog.Logger
	estimator Estimator
	cooldown  ports.ReportCache
	interval  time.Duration
}

func NewHandlers(log *slog.Logger, estimator Estimator, cooldown ports.ReportCache, interval time.Duration) *Handlers {
	return &Handlers{
		log:       log.With("component", "bot_handlers"),
		estimator: estimator,
		cooldown:  cooldown,
		interval:  interval,
	}
}

// Start обработчик /start
func (h *Handlers) Start(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	h.handleStart(ctx, b, update.Message)
}

// Lookup обработчик по умолчанию: любое сообщение - запрос на проверку
func (h *Handlers) Lookup(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	h.handleLookup(ctx, b, update.Message)
}

func (h *Handlers) handleStart(ctx context.Context, s MessageSender, msg *models.Message) {
	if msg == nil {
		return
	}
	h.reply(ctx, s, msg, msgStart)
}

func (h *Handlers) handleLookup(ctx context.Context, s MessageSender, msg *models.Message) {
	if msg == nil {
		return
	}
	log := h.log.With("chat_id", msg.Chat.ID, "message_id", msg.ID)

	identifier, hidden := ExtractIdentifier(msg)
	if identifier == "" {
		metrics.Lookups.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		if hidden {
			h.reply(ctx, s, msg, msgHidden)
			return
		}
		h.reply(ctx, s, msg, msgUsage)
		return
	}

	requester := msg.Chat.ID
	if msg.From != nil {
		requester = msg.From.ID
	}
	ok, err := h.cooldown.Acquire(ctx, requester, h.interval)
	if err != nil {
		// redis недоступен - не блокируем пользователя
		log.Warn("cooldown check failed", "error", err)
		ok = true
	}
	if !ok {
		metrics.Lookups.WithLabelValues(metrics.OutcomeThrottled).Inc()
		h.reply(ctx, s, msg, msgCooldown)
		return
	}

	h.reply(ctx, s, msg, msgCollecting)

	report, err := h.estimator.Estimate(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			log.Error("estimate failed", "identifier", identifier, "error", err)
		}
		h.reply(ctx, s, msg, FormatResolveError(identifier, err))
		return
	}

	h.reply(ctx, s, msg, FormatReport(report))
}

func (h *Handlers) reply(ctx context.Context, s MessageSender, msg *models.Message, text string) {
	_, err := s.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ParseMode:       models.ParseModeHTML,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		h.log.ErrorContext(ctx, "SendMessage failed", "chat_id", msg.Chat.ID, "error", err)
	}
}
