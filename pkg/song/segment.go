package song

import (
	"fmt"
)

const (
	// NrStages is the number of generation passes. Stage 0 produces coarse
	// semantic tokens, stage 1 refines them into codec sub-tokens.
	NrStages = 2
	// NrTracks is the number of parallel channels per stage (vocal and
	// instrumental in the reference configuration).
	NrTracks = 2
	// FramesPerSecond is the stage-0 token rate.
	FramesPerSecond = 50
	// TokenMilliseconds is the duration of one stage-0 token.
	TokenMilliseconds = 1000 / FramesPerSecond
	// Stage1ElemSize is the number of stage-1 sub-tokens per stage-0 token.
	Stage1ElemSize = 8
)

// Segment is a named section of the lyric script together with its tags and
// the token buffers cached for it so far. A track that hasn't been generated
// yet is an empty slice.
type Segment struct {
	Name   string
	Tags   map[string]Tag
	Lyrics string

	tracks [NrStages][NrTracks][]int
}

// NewSegment creates a segment with empty token buffers.
func NewSegment(name string, tags map[string]Tag, lyrics string) *Segment {
	if tags == nil {
		tags = map[string]Tag{}
	}
	return &Segment{
		Name:   name,
		Tags:   tags,
		Lyrics: lyrics,
	}
}

// String renders the segment back into script form.
func (s *Segment) String() string {
	return fmt.Sprintf("[%s]\n%s\n\n", s.Name, s.Lyrics)
}

// TrackLength returns the frame count from the "length" tag. The second
// return value is false when the tag is absent and the caller should fall
// back to the song default.
func (s *Segment) TrackLength() (int, bool) {
	tag, ok := s.Tags["length"]
	if !ok {
		return 0, false
	}
	return tag.Int()
}

// CachedLength returns the number of cached tokens for a stage and track.
func (s *Segment) CachedLength(stage, track int) int {
	return len(s.tracks[stage][track])
}

// Track returns the cached token buffer for a stage and track.
func (s *Segment) Track(stage, track int) []int {
	return s.tracks[stage][track]
}

// SetTrack replaces the cached token buffer for a stage and track.
func (s *Segment) SetTrack(stage, track int, tokens []int) {
	s.tracks[stage][track] = tokens
}

// Merge adopts a deep copy of the other segment's cached token buffers.
// Name, tags and lyrics are kept as they are.
func (s *Segment) Merge(other *Segment) {
	s.tracks = other.cloneTracks()
}

// Equal reports whether name, tags and lyrics match. Token buffers are not
// compared.
func (s *Segment) Equal(other *Segment) bool {
	if s.Name != other.Name || s.Lyrics != other.Lyrics {
		return false
	}
	if len(s.Tags) != len(other.Tags) {
		return false
	}
	for k, v := range s.Tags {
		o, ok := other.Tags[k]
		if !ok || v != o {
			return false
		}
	}
	return true
}

// InterleavedTracks reorders the segment's stage-0 buffers from track-major
// to time-major layout: [V V V] [I I I] becomes [V I V I V I]. All tracks
// must have the same length.
func (s *Segment) InterleavedTracks() ([]int, error) {
	n := len(s.tracks[0][0])
	for track := 1; track < NrTracks; track++ {
		if len(s.tracks[0][track]) != n {
			return nil, fmt.Errorf("song: track length mismatch: track 0 has %d tokens, track %d has %d", n, track, len(s.tracks[0][track]))
		}
	}
	out := make([]int, 0, n*NrTracks)
	for i := 0; i < n; i++ {
		for track := 0; track < NrTracks; track++ {
			out = append(out, s.tracks[0][track][i])
		}
	}
	return out, nil
}

func (s *Segment) clone() *Segment {
	tags := make(map[string]Tag, len(s.Tags))
	for k, v := range s.Tags {
		tags[k] = v
	}
	c := NewSegment(s.Name, tags, s.Lyrics)
	c.tracks = s.cloneTracks()
	return c
}

func (s *Segment) cloneTracks() [NrStages][NrTracks][]int {
	var tracks [NrStages][NrTracks][]int
	for stage := 0; stage < NrStages; stage++ {
		for track := 0; track < NrTracks; track++ {
			src := s.tracks[stage][track]
			if len(src) == 0 {
				continue
			}
			dst := make([]int, len(src))
			copy(dst, src)
			tracks[stage][track] = dst
		}
	}
	return tracks
}
