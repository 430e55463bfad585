package ports

import (
	"context"
	"errors"
	"time"

	"github.com/larriantoniy/dateregbot/internal/domain"
)

// ErrNotFound идентификатор не удалось разрешить в сущность Telegram
var ErrNotFound = errors.New("entity not found")

// ProfilePhoto фото профиля: содержимое самого большого размера и дата загрузки
type ProfilePhoto struct {
	Data      []byte
	AddedDate time.Time
}

// TelegramClient определяет MTProto-операции, нужные для оценки даты регистрации.
// Реализуется адаптером TDLib.
type TelegramClient interface {
	// Resolve разрешает @username, username или числовой id в сущность
	Resolve(ctx context.Context, identifier string) (domain.Entity, error)
	// ProfilePhotos скачивает до limit фото профиля
	ProfilePhotos(ctx context.Context, ent domain.Entity, limit int) ([]ProfilePhoto, error)
	// EarliestMessage самое раннее сообщение среди последних limit сообщений диалога
	EarliestMessage(ctx context.Context, ent domain.Entity, limit int) (time.Time, error)
	Close()
}
