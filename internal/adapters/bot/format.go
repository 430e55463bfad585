package bot

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/larriantoniy/dateregbot/internal/domain"
)

const dateLayout = "2006-01-02 15:04:05 UTC"

const (
	msgStart = "Привет! Это MTProto-backed dateregbot-like service.\n" +
		"Отправь @username, numeric user_id или пересланное сообщение, и я постараюсь определить DC и дату регистрации.\n\n" +
		"🔐 Требуется MTProto-сессия (создаётся автоматически)."
	msgUsage      = "Пожалуйста, пришлите @username или numeric user_id или пересланное сообщение."
	msgHidden     = "Автор пересланного сообщения скрыл профиль. Пришлите его @username или numeric user_id."
	msgCollecting = "🔎 Иду собирать данные... это может занять несколько секунд (обычно &lt;10s)."
	msgCooldown   = "⏳ Слишком часто. Подождите несколько секунд и попробуйте снова."
	msgNoData     = "⚠️ Не удалось получить достаточных данных для оценки."
	msgPartial    = "⚠️ Аккаунт недоступен через MTProto, оценка только по id."
	msgCached     = "♻️ Результат из кэша."
)

// FormatResolveError ответ, если идентификатор не удалось разрешить
func FormatResolveError(identifier string, err error) string {
	return fmt.Sprintf("❌ Не удалось разрешить идентификатор: %s\nОшибка: %s",
		html.EscapeString(identifier), html.EscapeString(err.Error()))
}

// FormatReport HTML-отчёт для parse_mode=HTML
func FormatReport(r *domain.Report) string {
	var b strings.Builder

	ent := r.Entity
	fmt.Fprintf(&b, "🔍 Результат проверки для <b>%s</b>", html.EscapeString(ent.DisplayName()))
	// без имени DisplayName уже показывает @username
	if ent.Username != "" && ent.Name != "" {
		fmt.Fprintf(&b, " <code>@%s</code>", html.EscapeString(ent.Username))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "ID: <code>%d</code>\n", ent.ID)
	fmt.Fprintf(&b, "DC (detected): <b>%d</b>\n\n", r.DC)

	for _, info := range domain.Priority {
		ts, ok := r.Signals[info.Source]
		if !ok || ts.IsZero() {
			continue
		}
		fmt.Fprintf(&b, "• %s: <b>%s</b> (%s)\n", info.Label, ts.UTC().Format(dateLayout), info.Level)
	}
	b.WriteString("\n")

	if r.Final.Found() {
		fmt.Fprintf(&b, "✅ <b>Final estimate:</b> <code>%s</code>\n", r.Final.Time.UTC().Format(dateLayout))
		fmt.Fprintf(&b, "ℹ️ Reason: %s\n", html.EscapeString(r.Final.Explanation))
		fmt.Fprintf(&b, "🔒 Confidence: %d%%", int(math.Round(r.Final.Confidence*100)))
	} else {
		b.WriteString(msgNoData)
	}

	if !ent.Resolved {
		b.WriteString("\n" + msgPartial)
	}
	if r.Cached {
		b.WriteString("\n" + msgCached)
	}
	return b.String()
}
