package domain

// EntityKind тип сущности Telegram, для которой ищем дату регистрации
type EntityKind string

const (
	KindUser    EntityKind = "user"
	KindGroup   EntityKind = "group"
	KindChannel EntityKind = "channel"
)

// Entity описывает разрешённую цель проверки
type Entity struct {
	ID       int64 // "сырой" MTProto id (user_id / supergroup_id)
	ChatID   int64 // id чата в TDLib, 0 если чат неизвестен
	Kind     EntityKind
	Username string
	Name     string

	// Resolved == false, если есть только числовой id без доступа к сущности
	Resolved bool
}

// DisplayName возвращает имя для отчёта
func (e Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	if e.Username != "" {
		return "@" + e.Username
	}
	return "unknown"
}
