package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joeljuvel/yuegen/pkg/session"
	"github.com/joeljuvel/yuegen/pkg/song"
	"github.com/joeljuvel/yuegen/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	// Song resumes a stored song by id. Input starts a fresh one from a
	// lyric script file.
	Song  string
	Input string
	Name  string
	Genre string

	Seed          int64
	Rewind        time.Duration
	DefaultLength int
}

// Run launches a generation session against the offline simulator and
// persists the resulting snapshot.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("generate: process started")
	defer log.Println("generate: process ended")

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("generate: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("generate: couldn't start orm store: %w", err)
	}

	record, err := loadOrCreate(ctx, store, cfg)
	if err != nil {
		return err
	}

	s := song.New()
	if record.DefaultTrackLength > 0 {
		s.SetDefaultTrackLength(record.DefaultTrackLength)
	}
	if prompt, err := store.SettingValue(ctx, "defaults/system-prompt", ""); err == nil && prompt != "" {
		s.SetSystemPrompt(prompt)
	}
	s.SetGenre(record.Genre)
	s.SetLyrics(record.Lyrics)

	sess := session.New(s, session.NewSimulator(cfg.Seed), cfg.Debug)
	if record.Snapshot != nil {
		snapshot, err := decodeSnapshot(record.Snapshot)
		if err != nil {
			return err
		}
		sess.Cache().Load(snapshot)
		sess.Cache().TransferToSong(s)
	}
	if cfg.Rewind > 0 {
		dropped := sess.Rewind(cfg.Rewind)
		log.Printf("generate: rewound %s (%d tokens)\n", cfg.Rewind, dropped)
	}

	start := time.Now()
	if err := sess.Run(ctx); err != nil {
		return err
	}
	log.Printf("generate: generated %d frames in %s\n", s.Length(), time.Since(start))

	snapshot, err := encodeSnapshot(sess.Cache(), &record.ID, cfg.Seed)
	if err != nil {
		return err
	}
	if err := store.SetSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("generate: couldn't save snapshot: %w", err)
	}
	record.SnapshotID = &snapshot.ID
	record.Snapshot = nil
	if err := store.SetSong(ctx, record); err != nil {
		return fmt.Errorf("generate: couldn't save song: %w", err)
	}
	log.Printf("generate: song %s snapshot %s\n", record.ID, snapshot.ID)
	return nil
}

func loadOrCreate(ctx context.Context, store *storage.Store, cfg *Config) (*storage.Song, error) {
	if cfg.Song != "" {
		record, err := store.GetSong(ctx, cfg.Song)
		if err != nil {
			return nil, fmt.Errorf("generate: couldn't get song %s: %w", cfg.Song, err)
		}
		return record, nil
	}
	if cfg.Input == "" {
		return nil, fmt.Errorf("generate: song id and input are both empty")
	}
	b, err := os.ReadFile(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't read script: %w", err)
	}
	genre := cfg.Genre
	if genre == "" {
		genre, err = store.SettingValue(ctx, "defaults/genre", "")
		if err != nil {
			return nil, fmt.Errorf("generate: couldn't get default genre: %w", err)
		}
	}
	return &storage.Song{
		ID:                 ulid.Make().String(),
		Name:               cfg.Name,
		Lyrics:             string(b),
		Genre:              genre,
		DefaultTrackLength: cfg.DefaultLength,
	}, nil
}

func decodeSnapshot(record *storage.Snapshot) (song.Snapshot, error) {
	var snapshot song.Snapshot
	if record.Tracks != "" {
		if err := json.Unmarshal([]byte(record.Tracks), &snapshot.Tracks); err != nil {
			return song.Snapshot{}, fmt.Errorf("generate: couldn't unmarshal tracks: %w", err)
		}
	}
	if record.Segments != "" {
		if err := json.Unmarshal([]byte(record.Segments), &snapshot.Segments); err != nil {
			return song.Snapshot{}, fmt.Errorf("generate: couldn't unmarshal segments: %w", err)
		}
	}
	return snapshot, nil
}

func encodeSnapshot(cache *song.Cache, songID *string, seed int64) (*storage.Snapshot, error) {
	snapshot := cache.Save()
	tracks, err := json.Marshal(snapshot.Tracks)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't marshal tracks: %w", err)
	}
	segments, err := json.Marshal(snapshot.Segments)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't marshal segments: %w", err)
	}
	var frames int
	if n := len(snapshot.Segments); n > 0 {
		frames = snapshot.Segments[n-1].End
	}
	return &storage.Snapshot{
		ID:       ulid.Make().String(),
		SongID:   songID,
		Tracks:   string(tracks),
		Segments: string(segments),
		Frames:   frames,
		Seed:     seed,
	}, nil
}
