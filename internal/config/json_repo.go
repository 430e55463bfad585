package config

import (
	"context"

	"github.com/larriantoniy/dateregbot/internal/adapters/tg"
	"github.com/larriantoniy/dateregbot/internal/ports"
)

// JSONSessionConfigRepo читает <baseDir>/<session>/config.json
type JSONSessionConfigRepo struct {
	baseDir string // "./sessions"
}

func NewJSONSessionConfigRepo(baseDir string) *JSONSessionConfigRepo {
	return &JSONSessionConfigRepo{baseDir: baseDir}
}

func (r *JSONSessionConfigRepo) GetSessionConfig(ctx context.Context, sessionName string) (*ports.SessionConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := tg.LoadRawSessionConfig(r.baseDir, sessionName)
	if err != nil {
		return nil, err
	}
	return raw.ToSessionConfig()
}
