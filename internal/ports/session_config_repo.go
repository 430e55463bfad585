package ports

import (
	"context"
)

type ProxyConfig struct {
	Enabled  bool
	Server   string
	Port     int32
	Username string
	Password string
}

// SessionConfig параметры MTProto-сессии (устройство, язык, прокси)
type SessionConfig struct {
	SessionName        string
	Phone              string
	DeviceModel        string
	SystemVersion      string
	ApplicationVersion string
	LangCode           string
	Proxy              *ProxyConfig
}

type SessionConfigRepo interface {
	// Загружает конфиг для конкретной сессии
	GetSessionConfig(ctx context.Context, sessionName string) (*SessionConfig, error)
}
