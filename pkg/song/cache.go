package song

// Boundary locates one segment's tokens inside a flat buffer. Offsets are
// stage-0 token units regardless of stage.
type Boundary struct {
	Name  string `json:"name" yaml:"name"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
}

// Snapshot is a plain nested copy of a cache's state, suitable for any
// serialization format a collaborator chooses.
type Snapshot struct {
	Tracks   [][][]int  `json:"tracks" yaml:"tracks"`
	Segments []Boundary `json:"segments" yaml:"segments"`
}

// Cache is a generation-ready view of a song: per stage, the concatenation
// of every segment's tokens into one flat buffer per track, plus a boundary
// table locating each segment in the flat stream. It lives for a single
// generate, rewind, transfer-back cycle and is then rebuilt.
type Cache struct {
	tracks   [][][]int
	segments []Boundary
}

// NewCache creates an empty cache with room for the given number of stages.
func NewCache(nrStages int) *Cache {
	return &Cache{
		tracks: make([][][]int, nrStages),
	}
}

// NewCacheFromSong flattens a song's cached tracks into a cache. Segments
// whose stage-0, track-0 buffer is empty produce no boundary record and
// don't advance the cursor: a not-yet-generated segment is invisible until
// it has stage-0 data.
func NewCacheFromSong(s *Song) *Cache {
	c := NewCache(NrStages)
	for stage := 0; stage < NrStages; stage++ {
		c.AddTracks(stage, s.MergeSegments(stage))
	}
	var cursor int
	for _, segment := range s.Segments() {
		length := segment.CachedLength(0, 0)
		if length == 0 {
			continue
		}
		c.AddSegment(segment.Name, cursor, cursor+length)
		cursor += length
	}
	return c
}

// AddSegment appends a boundary record.
func (c *Cache) AddSegment(name string, start, end int) {
	c.segments = append(c.segments, Boundary{Name: name, Start: start, End: end})
}

// AddTracks installs the flat per-track buffers for a stage.
func (c *Cache) AddTracks(stage int, tracks [][]int) {
	c.tracks[stage] = tracks
}

// Segments returns the boundary table.
func (c *Cache) Segments() []Boundary {
	return c.segments
}

// Track returns the flat buffer for a stage and track, or nil when the
// indices are out of range.
func (c *Cache) Track(stage, track int) []int {
	if stage < len(c.tracks) && track < len(c.tracks[stage]) {
		return c.tracks[stage][track]
	}
	return nil
}

// Rewind discards a trailing time window from the boundary table so the
// caller can regenerate it: 20 ms per stage-0 token. Fully covered trailing
// segments are dropped, the first surviving one is shrunk. The flat buffers
// are left untouched, whatever the generator appends past the new end is
// expected to overwrite, not insert. Rewinding more than is cached clamps
// to an empty table. Returns the number of tokens dropped from the table.
func (c *Cache) Rewind(timeMS int) int {
	tokens := timeMS / TokenMilliseconds
	var dropped int
	for i := len(c.segments) - 1; i >= 0; i-- {
		length := c.segments[i].End - c.segments[i].Start
		if tokens > length {
			tokens -= length
			dropped += length
			c.segments = c.segments[:i]
			continue
		}
		c.segments[i].End -= tokens
		dropped += tokens
		break
	}
	return dropped
}

// TransferNote records a slice that was skipped or clamped while splitting
// flat buffers back into segments.
type TransferNote struct {
	Segment string
	Stage   int
	Track   int
	Reason  string
}

// TransferToSong splits the flat buffers back into the song's segments by
// boundary position. Stage buffers are sliced at the boundary offsets
// scaled by the stage element size (8 sub-tokens per stage-0 token for
// stage 1). A buffer that is empty or starts past its end is skipped,
// leaving the segment's previously cached tokens in place; callers that
// want a clean slate pair this with ClearCache before regenerating. An end
// offset past the buffer is clamped: a later stage may legitimately still
// be short. The returned notes describe every skip and clamp.
func (c *Cache) TransferToSong(s *Song) []TransferNote {
	var notes []TransferNote
	for i, boundary := range c.segments {
		if i >= s.Len() {
			break
		}
		for stage := 0; stage < NrStages; stage++ {
			elemSize := 1
			if stage >= 1 {
				elemSize = Stage1ElemSize
			}
			start := boundary.Start * elemSize
			end := boundary.End * elemSize
			for track := 0; track < NrTracks; track++ {
				flat := c.Track(stage, track)
				if len(flat) == 0 || start > len(flat) {
					notes = append(notes, TransferNote{
						Segment: boundary.Name,
						Stage:   stage,
						Track:   track,
						Reason:  "skipped: no data at segment start",
					})
					continue
				}
				clamped := end
				if clamped > len(flat) {
					clamped = len(flat)
					notes = append(notes, TransferNote{
						Segment: boundary.Name,
						Stage:   stage,
						Track:   track,
						Reason:  "clamped: stage under-produced",
					})
				}
				tokens := make([]int, clamped-start)
				copy(tokens, flat[start:clamped])
				s.Segment(i).SetTrack(stage, track, tokens)
			}
		}
	}
	return notes
}

// Save returns a deep copy of the flat buffers and the boundary table.
func (c *Cache) Save() Snapshot {
	tracks := make([][][]int, len(c.tracks))
	for stage, stageTracks := range c.tracks {
		tracks[stage] = make([][]int, len(stageTracks))
		for track, tokens := range stageTracks {
			dst := make([]int, len(tokens))
			copy(dst, tokens)
			tracks[stage][track] = dst
		}
	}
	segments := make([]Boundary, len(c.segments))
	copy(segments, c.segments)
	return Snapshot{Tracks: tracks, Segments: segments}
}

// Load installs a snapshot. Missing fields keep their current in-memory
// values, so partial snapshots are tolerated.
func (c *Cache) Load(snapshot Snapshot) {
	if snapshot.Tracks != nil {
		c.tracks = snapshot.Tracks
	}
	if snapshot.Segments != nil {
		c.segments = snapshot.Segments
	}
}
