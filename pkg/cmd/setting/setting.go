package setting

import (
	"context"
	"fmt"

	"github.com/joeljuvel/yuegen/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Key   string
	Value string
}

// Run stores a default used by later generation runs.
func Run(ctx context.Context, cfg *Config) error {
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("setting: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("setting: couldn't start orm store: %w", err)
	}

	if cfg.Value == "" {
		return fmt.Errorf("setting: value is empty")
	}

	switch cfg.Key {
	case "genre", "system-prompt", "length":
	default:
		return fmt.Errorf("setting: unknown key: %s", cfg.Key)
	}

	id := fmt.Sprintf("defaults/%s", cfg.Key)
	s := storage.Setting{
		ID:    id,
		Value: cfg.Value,
	}
	if err := store.SetSetting(ctx, &s); err != nil {
		return fmt.Errorf("setting: couldn't save setting: %w", err)
	}
	return nil
}
