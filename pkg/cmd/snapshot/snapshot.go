package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/joeljuvel/yuegen/pkg/song"
	"github.com/joeljuvel/yuegen/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	// ID selects the stored snapshot to export. Import creates a new one.
	ID     string
	Export string
	Import string
}

// Run exports a stored snapshot to a YAML file or imports one back.
func Run(ctx context.Context, cfg *Config) error {
	if (cfg.Export == "") == (cfg.Import == "") {
		return fmt.Errorf("snapshot: exactly one of export or import is required")
	}

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("snapshot: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("snapshot: couldn't start orm store: %w", err)
	}

	if cfg.Export != "" {
		return export(ctx, store, cfg)
	}
	return importFile(ctx, store, cfg)
}

func export(ctx context.Context, store *storage.Store, cfg *Config) error {
	if cfg.ID == "" {
		return fmt.Errorf("snapshot: id is empty")
	}
	record, err := store.GetSnapshot(ctx, cfg.ID)
	if err != nil {
		return fmt.Errorf("snapshot: couldn't get snapshot %s: %w", cfg.ID, err)
	}
	var snapshot song.Snapshot
	if record.Tracks != "" {
		if err := json.Unmarshal([]byte(record.Tracks), &snapshot.Tracks); err != nil {
			return fmt.Errorf("snapshot: couldn't unmarshal tracks: %w", err)
		}
	}
	if record.Segments != "" {
		if err := json.Unmarshal([]byte(record.Segments), &snapshot.Segments); err != nil {
			return fmt.Errorf("snapshot: couldn't unmarshal segments: %w", err)
		}
	}
	out, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("snapshot: couldn't marshal snapshot: %w", err)
	}
	if err := os.WriteFile(cfg.Export, out, 0644); err != nil {
		return fmt.Errorf("snapshot: couldn't write file: %w", err)
	}
	log.Printf("snapshot: exported %s to %s\n", cfg.ID, cfg.Export)
	return nil
}

func importFile(ctx context.Context, store *storage.Store, cfg *Config) error {
	b, err := os.ReadFile(cfg.Import)
	if err != nil {
		return fmt.Errorf("snapshot: couldn't read file: %w", err)
	}
	var snapshot song.Snapshot
	if err := yaml.Unmarshal(b, &snapshot); err != nil {
		return fmt.Errorf("snapshot: couldn't unmarshal file: %w", err)
	}
	tracks, err := json.Marshal(snapshot.Tracks)
	if err != nil {
		return fmt.Errorf("snapshot: couldn't marshal tracks: %w", err)
	}
	segments, err := json.Marshal(snapshot.Segments)
	if err != nil {
		return fmt.Errorf("snapshot: couldn't marshal segments: %w", err)
	}
	id := cfg.ID
	if id == "" {
		id = ulid.Make().String()
	}
	var frames int
	if n := len(snapshot.Segments); n > 0 {
		frames = snapshot.Segments[n-1].End
	}
	if err := store.SetSnapshot(ctx, &storage.Snapshot{
		ID:       id,
		Tracks:   string(tracks),
		Segments: string(segments),
		Frames:   frames,
	}); err != nil {
		return fmt.Errorf("snapshot: couldn't save snapshot: %w", err)
	}
	log.Printf("snapshot: imported %s as %s\n", cfg.Import, id)
	return nil
}
