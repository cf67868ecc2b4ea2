package yuegen

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joeljuvel/yuegen/pkg/session"
	"github.com/joeljuvel/yuegen/pkg/song"
)

type Config struct {
	Debug  bool
	Seed   int64
	Genre  string
	Rewind time.Duration
}

// GenerateSong runs one offline generation session over a lyric script and
// writes the resulting cache snapshot as YAML.
func GenerateSong(ctx context.Context, cfg *Config, lyrics, output string) error {
	s := song.New()
	s.SetGenre(cfg.Genre)
	s.SetLyrics(lyrics)
	if s.Len() == 0 {
		return fmt.Errorf("no segments found in lyrics")
	}
	log.Printf("parsed %d segments, %.1f seconds\n", s.Len(), s.LengthSeconds())

	sess := session.New(s, session.NewSimulator(cfg.Seed), cfg.Debug)
	if cfg.Rewind > 0 {
		sess.Rewind(cfg.Rewind)
	}
	if err := sess.Run(ctx); err != nil {
		return fmt.Errorf("couldn't generate song: %w", err)
	}

	out, err := yaml.Marshal(sess.Cache().Save())
	if err != nil {
		return fmt.Errorf("couldn't marshal snapshot: %w", err)
	}
	if err := os.WriteFile(output, out, 0644); err != nil {
		return fmt.Errorf("couldn't write snapshot: %w", err)
	}
	return nil
}
