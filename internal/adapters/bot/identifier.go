package bot

import (
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
)

// ExtractIdentifier что проверять: пересланный пользователь, пересланный чат/канал
// или первое слово текста. hidden == true, если отправитель скрыл профиль.
func ExtractIdentifier(msg *models.Message) (identifier string, hidden bool) {
	if msg == nil {
		return "", false
	}

	if origin := msg.ForwardOrigin; origin != nil {
		switch {
		case origin.MessageOriginUser != nil && origin.MessageOriginUser.SenderUser.ID != 0:
			return strconv.FormatInt(origin.MessageOriginUser.SenderUser.ID, 10), false
		case origin.MessageOriginChannel != nil:
			return chatIdentifier(origin.MessageOriginChannel.Chat), false
		case origin.MessageOriginChat != nil:
			return chatIdentifier(origin.MessageOriginChat.SenderChat), false
		case origin.MessageOriginHiddenUser != nil:
			return "", true
		}
	}

	if fields := strings.Fields(msg.Text); len(fields) > 0 {
		return fields[0], false
	}
	return "", false
}

func chatIdentifier(chat models.Chat) string {
	if chat.Username != "" {
		return chat.Username
	}
	if chat.ID == 0 {
		return ""
	}
	return strconv.FormatInt(chat.ID, 10)
}
