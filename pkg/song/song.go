package song

import (
	"log"
	"strings"
)

const (
	// DefaultTrackLength is the fallback segment duration in frames used
	// when a segment carries no "length" tag.
	DefaultTrackLength = 1500
	// DefaultSystemPrompt seeds the generation model.
	DefaultSystemPrompt = "Generate music from the given lyrics segment by segment."
)

// Song owns an ordered sequence of segments plus the global generation
// parameters. Re-parsing lyrics keeps cached tokens for segments that
// survive the re-parse at the same position.
type Song struct {
	segments           []*Segment
	audioPrompt        []int
	defaultTrackLength int
	systemPrompt       string
	rawLyrics          string
	lyrics             string
	genre              string
}

// New creates an empty song with default generation parameters.
func New() *Song {
	return &Song{
		defaultTrackLength: DefaultTrackLength,
		systemPrompt:       DefaultSystemPrompt,
	}
}

// String returns the structured lyrics, the concatenation of every segment's
// script form.
func (s *Song) String() string {
	return s.lyrics
}

// Lyrics returns the structured lyrics.
func (s *Song) Lyrics() string {
	return s.lyrics
}

// RawLyrics returns the lyric text as last set by the caller.
func (s *Song) RawLyrics() string {
	return s.rawLyrics
}

// Len returns the number of segments.
func (s *Song) Len() int {
	return len(s.segments)
}

// Segment returns the segment at the given position.
func (s *Song) Segment(i int) *Segment {
	return s.segments[i]
}

// Segments returns the ordered segment list.
func (s *Song) Segments() []*Segment {
	return s.segments
}

// SetLyrics replaces the lyric script and re-parses it into segments.
// Cached token buffers are carried forward by position: the new segment at
// index i adopts the old segment's buffers for every i present in both
// lists. The merge doesn't match by name or content, so inserting or
// removing a section in the middle misattributes the cache for every
// following segment. Sections tagged with a stable "#id" opt out of that
// hazard: they adopt the buffers of the old segment carrying the same id,
// wherever it sat.
func (s *Song) SetLyrics(text string) {
	s.rawLyrics = text
	s.prepareLyrics()
}

func (s *Song) prepareLyrics() {
	segments := ParseLyrics(strings.TrimSpace(s.rawLyrics))

	byID := map[string]*Segment{}
	for _, old := range s.segments {
		tag, ok := old.Tags["id"]
		if !ok {
			continue
		}
		if _, dup := byID[tag.String()]; dup {
			log.Printf("song: duplicate segment id %q, keeping first\n", tag.String())
			continue
		}
		byID[tag.String()] = old
	}

	for i, segment := range segments {
		if tag, ok := segment.Tags["id"]; ok {
			// Identity merge: an unmatched id is a new section, it
			// starts with fresh buffers.
			if old, ok := byID[tag.String()]; ok {
				segment.Merge(old)
			}
			continue
		}
		if i < len(s.segments) {
			segment.Merge(s.segments[i])
		}
	}
	s.segments = segments

	var sb strings.Builder
	for _, segment := range s.segments {
		sb.WriteString(segment.String())
	}
	s.lyrics = sb.String()
}

// DefaultTrackLength returns the fallback segment duration in frames.
func (s *Song) DefaultTrackLength() int {
	return s.defaultTrackLength
}

// SetDefaultTrackLength sets the fallback segment duration in frames.
func (s *Song) SetDefaultTrackLength(frames int) {
	s.defaultTrackLength = frames
}

// SystemPrompt returns the generation system prompt.
func (s *Song) SystemPrompt() string {
	return s.systemPrompt
}

// SetSystemPrompt sets the generation system prompt.
func (s *Song) SetSystemPrompt(prompt string) {
	s.systemPrompt = prompt
}

// AudioPrompt returns the audio prompt token sequence.
func (s *Song) AudioPrompt() []int {
	return s.audioPrompt
}

// SetAudioPrompt sets the audio prompt token sequence.
func (s *Song) SetAudioPrompt(tokens []int) {
	s.audioPrompt = tokens
}

// Genre returns the genre text.
func (s *Song) Genre() string {
	return s.genre
}

// SetGenre sets the genre text.
func (s *Song) SetGenre(genre string) {
	s.genre = genre
}

// Length returns the planned song duration in frames: the sum of every
// segment's "length" tag, falling back to the default track length.
func (s *Song) Length() int {
	var length int
	for _, segment := range s.segments {
		if frames, ok := segment.TrackLength(); ok {
			length += frames
		} else {
			length += s.defaultTrackLength
		}
	}
	return length
}

// LengthSeconds returns the planned song duration in seconds.
func (s *Song) LengthSeconds() float64 {
	return float64(s.Length()) / FramesPerSecond
}

// ClearCache discards every segment's cached tokens for a stage.
func (s *Song) ClearCache(stage int) {
	for _, segment := range s.segments {
		for track := 0; track < NrTracks; track++ {
			segment.SetTrack(stage, track, nil)
		}
	}
}

// MergeSegments flattens the cached buffers of a stage: per track, the
// concatenation of every segment's tokens in segment order. Segments with
// empty buffers contribute nothing, they don't reserve a gap.
func (s *Song) MergeSegments(stage int) [][]int {
	tracks := make([][]int, NrTracks)
	for track := 0; track < NrTracks; track++ {
		var full []int
		for _, segment := range s.segments {
			full = append(full, segment.Track(stage, track)...)
		}
		tracks[track] = full
	}
	return tracks
}

// Clone returns a deep copy of the song, segments and token buffers
// included.
func (s *Song) Clone() *Song {
	c := New()
	c.defaultTrackLength = s.defaultTrackLength
	c.systemPrompt = s.systemPrompt
	c.rawLyrics = s.rawLyrics
	c.lyrics = s.lyrics
	c.genre = s.genre
	if len(s.audioPrompt) > 0 {
		c.audioPrompt = make([]int, len(s.audioPrompt))
		copy(c.audioPrompt, s.audioPrompt)
	}
	c.segments = make([]*Segment, 0, len(s.segments))
	for _, segment := range s.segments {
		c.segments = append(c.segments, segment.clone())
	}
	return c
}
