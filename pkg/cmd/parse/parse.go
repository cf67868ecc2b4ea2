package parse

import (
	"context"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joeljuvel/yuegen/pkg/song"
)

type Config struct {
	Input  string
	Output string
}

type segmentReport struct {
	Name   string            `yaml:"name"`
	Tags   map[string]string `yaml:"tags,omitempty"`
	Frames int               `yaml:"frames"`
	Lyrics string            `yaml:"lyrics"`
}

type report struct {
	Segments []segmentReport `yaml:"segments"`
	Frames   int             `yaml:"frames"`
	Seconds  float64         `yaml:"seconds"`
}

// Run parses a lyric script and prints the segment structure as YAML.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Input == "" {
		return fmt.Errorf("parse: input is empty")
	}
	b, err := os.ReadFile(cfg.Input)
	if err != nil {
		return fmt.Errorf("parse: couldn't read script: %w", err)
	}
	s := song.New()
	s.SetLyrics(string(b))

	r := report{
		Frames:  s.Length(),
		Seconds: s.LengthSeconds(),
	}
	for _, segment := range s.Segments() {
		frames, ok := segment.TrackLength()
		if !ok {
			frames = s.DefaultTrackLength()
		}
		var tags map[string]string
		if len(segment.Tags) > 0 {
			tags = make(map[string]string, len(segment.Tags))
			for name, tag := range segment.Tags {
				tags[name] = tag.String()
			}
		}
		r.Segments = append(r.Segments, segmentReport{
			Name:   segment.Name,
			Tags:   tags,
			Frames: frames,
			Lyrics: segment.Lyrics,
		})
	}

	out, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("parse: couldn't marshal report: %w", err)
	}
	if cfg.Output == "" {
		fmt.Print(string(out))
	} else {
		if err := os.WriteFile(cfg.Output, out, 0644); err != nil {
			return fmt.Errorf("parse: couldn't write report: %w", err)
		}
	}
	log.Printf("parse: %d segments, %d frames (%.1fs)\n", s.Len(), r.Frames, r.Seconds)
	return nil
}
