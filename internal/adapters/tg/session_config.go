package tg

import (
	"fmt"

	"github.com/larriantoniy/dateregbot/internal/ports"
	"github.com/zelenin/go-tdlib/client"
)

// RawSessionConfig необязательный config.json в каталоге сессии
type RawSessionConfig struct {
	SessionFile string `json:"session_file"`
	Phone       string `json:"phone"`

	SDK        string `json:"sdk"`         // SystemVersion
	AppVersion string `json:"app_version"` // ApplicationVersion
	Device     string `json:"device"`      // DeviceModel
	LangCode   string `json:"lang_code"`   // SystemLanguageCode

	Proxy []any `json:"proxy"` // [type, host, port, useAuth, user, pass]
}

func (c *RawSessionConfig) ToProxyConfig() (*ports.ProxyConfig, error) {
	if len(c.Proxy) == 0 {
		return nil, nil
	}
	if len(c.Proxy) < 6 {
		return nil, fmt.Errorf("invalid proxy length: %d", len(c.Proxy))
	}

	host, _ := c.Proxy[1].(string)

	// port может прийти как float64 из json.Unmarshal
	var port int32
	switch v := c.Proxy[2].(type) {
	case float64:
		port = int32(v)
	case int:
		port = int32(v)
	default:
		return nil, fmt.Errorf("invalid proxy port type %T", c.Proxy[2])
	}

	if host == "" || port == 0 {
		return nil, nil
	}

	p := &ports.ProxyConfig{
		Enabled: true,
		Server:  host,
		Port:    port,
	}
	if useAuth, _ := c.Proxy[3].(bool); useAuth {
		p.Username, _ = c.Proxy[4].(string)
		p.Password, _ = c.Proxy[5].(string)
	}
	return p, nil
}

// ToSessionConfig применяет значения по умолчанию и разбирает прокси
func (c *RawSessionConfig) ToSessionConfig() (*ports.SessionConfig, error) {
	proxyCfg, err := c.ToProxyConfig()
	if err != nil {
		return nil, fmt.Errorf("proxy parse: %w", err)
	}

	return &ports.SessionConfig{
		SessionName:        c.SessionFile,
		Phone:              c.Phone,
		DeviceModel:        orDefault(c.Device, "Desktop"),
		SystemVersion:      orDefault(c.SDK, "Linux"),
		ApplicationVersion: orDefault(c.AppVersion, "1.0"),
		LangCode:           orDefault(c.LangCode, "en"),
		Proxy:              proxyCfg,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func TdParams(sc *ports.SessionConfig, apiID int32, apiHash string, dbDir, filesDir string) *client.SetTdlibParametersRequest {
	return &client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   dbDir,
		FilesDirectory:      filesDir,
		UseFileDatabase:     true,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               apiID,
		ApiHash:             apiHash,
		SystemLanguageCode:  sc.LangCode,
		DeviceModel:         sc.DeviceModel,
		SystemVersion:       sc.SystemVersion,
		ApplicationVersion:  sc.ApplicationVersion,
	}
}
