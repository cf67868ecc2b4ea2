package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joeljuvel/yuegen/pkg/song"
)

// Stage0Request asks a generator to extend the coarse token stream of every
// track by a number of new tokens.
type Stage0Request struct {
	SystemPrompt string
	Genre        string
	Lyrics       string
	AudioPrompt  []int
	// Prefix holds the per-track stage-0 tokens generated so far. The
	// generator appends to it, never rewrites it.
	Prefix [][]int
	// Tokens is the number of new tokens wanted per track.
	Tokens int
}

// Stage1Request asks a generator to refine a span of stage-0 tokens into
// codec sub-tokens, 8 per stage-0 token.
type Stage1Request struct {
	// Prefix holds the per-track stage-1 tokens generated so far.
	Prefix [][]int
	// Stage0 holds the per-track stage-0 tokens of the span to refine.
	Stage0 [][]int
}

// Generator is the external model the session feeds. Both methods return
// the extended per-track buffers: the request prefix plus the newly
// generated tokens.
type Generator interface {
	GenerateStage0(ctx context.Context, req *Stage0Request) ([][]int, error)
	GenerateStage1(ctx context.Context, req *Stage1Request) ([][]int, error)
}

// Session drives one generate, rewind, transfer-back cycle over a song.
// It is not safe for concurrent use.
type Session struct {
	song      *song.Song
	generator Generator
	cache     *song.Cache
	debug     bool
}

// New creates a session for a song and a generator.
func New(s *song.Song, g Generator, debug bool) *Session {
	return &Session{
		song:      s,
		generator: g,
		debug:     debug,
	}
}

// Cache returns the session's current cache, building it from the song on
// first use.
func (s *Session) Cache() *song.Cache {
	if s.cache == nil {
		s.cache = song.NewCacheFromSong(s.song)
	}
	return s.cache
}

// Rewind discards the trailing duration from the cache so the next Run
// regenerates it. Returns the number of stage-0 tokens given up.
func (s *Session) Rewind(d time.Duration) int {
	return s.Cache().Rewind(int(d.Milliseconds()))
}

// Run generates tokens for every segment that hasn't reached its planned
// length yet, then splits the results back into the song. After a rewind
// the trailing boundary is partial and generation resumes from its end,
// overwriting whatever the flat buffers still hold past that point.
func (s *Session) Run(ctx context.Context) error {
	cache := s.Cache()
	bounds := append([]song.Boundary{}, cache.Segments()...)
	// A short boundary can only be extended in place when it is the
	// trailing one. A mid-list boundary under its target (a segment whose
	// length was raised after a previous run) would have to grow inside
	// the flat stream, so it and everything after it are regenerated from
	// scratch instead.
	for i := 0; i < len(bounds)-1 && i < s.song.Len(); i++ {
		target, ok := s.song.Segment(i).TrackLength()
		if !ok {
			target = s.song.DefaultTrackLength()
		}
		if bounds[i].End-bounds[i].Start < target {
			bounds = bounds[:i]
			break
		}
	}
	var cursor int
	if len(bounds) > 0 {
		cursor = bounds[len(bounds)-1].End
	}
	st0 := clipTracks(cache, 0, cursor)
	st1 := clipTracks(cache, 1, cursor*song.Stage1ElemSize)

	for i := 0; i < s.song.Len(); i++ {
		segment := s.song.Segment(i)
		target, ok := segment.TrackLength()
		if !ok {
			target = s.song.DefaultTrackLength()
		}
		var have int
		if i < len(bounds) {
			have = bounds[i].End - bounds[i].Start
		}
		if have >= target {
			continue
		}
		need := target - have
		if s.debug {
			log.Printf("session: segment %s: %d of %d tokens cached, generating %d\n", segment.Name, have, target, need)
		}

		out0, err := s.generator.GenerateStage0(ctx, &Stage0Request{
			SystemPrompt: s.song.SystemPrompt(),
			Genre:        s.song.Genre(),
			Lyrics:       segment.Lyrics,
			AudioPrompt:  s.song.AudioPrompt(),
			Prefix:       st0,
			Tokens:       need,
		})
		if err != nil {
			return fmt.Errorf("session: stage 0 failed on segment %s: %w", segment.Name, err)
		}
		span := make([][]int, len(out0))
		for track := range out0 {
			if len(out0[track]) != len(st0[track])+need {
				return fmt.Errorf("session: stage 0 returned %d tokens on track %d; want %d", len(out0[track]), track, len(st0[track])+need)
			}
			span[track] = out0[track][len(st0[track]):]
		}
		st0 = out0

		out1, err := s.generator.GenerateStage1(ctx, &Stage1Request{
			Prefix: st1,
			Stage0: span,
		})
		if err != nil {
			return fmt.Errorf("session: stage 1 failed on segment %s: %w", segment.Name, err)
		}
		for track := range out1 {
			if len(out1[track]) != len(st1[track])+need*song.Stage1ElemSize {
				return fmt.Errorf("session: stage 1 returned %d tokens on track %d; want %d", len(out1[track]), track, len(st1[track])+need*song.Stage1ElemSize)
			}
		}
		st1 = out1

		// Only the trailing boundary can be partial, everything before it
		// was either complete or dropped by the rewind.
		if i < len(bounds) {
			bounds[i].End += need
		} else {
			var start int
			if len(bounds) > 0 {
				start = bounds[len(bounds)-1].End
			}
			bounds = append(bounds, song.Boundary{Name: segment.Name, Start: start, End: start + target})
		}
	}

	next := song.NewCache(song.NrStages)
	next.AddTracks(0, st0)
	next.AddTracks(1, st1)
	for _, b := range bounds {
		next.AddSegment(b.Name, b.Start, b.End)
	}
	s.cache = next

	for _, note := range next.TransferToSong(s.song) {
		log.Printf("session: transfer %s stage %d track %d: %s\n", note.Segment, note.Stage, note.Track, note.Reason)
	}
	return nil
}

// clipTracks copies a stage's flat buffers truncated to the resume point.
func clipTracks(c *song.Cache, stage, limit int) [][]int {
	tracks := make([][]int, song.NrTracks)
	for track := 0; track < song.NrTracks; track++ {
		flat := c.Track(stage, track)
		if limit < len(flat) {
			flat = flat[:limit]
		}
		dst := make([]int, len(flat))
		copy(dst, flat)
		tracks[track] = dst
	}
	return tracks
}
