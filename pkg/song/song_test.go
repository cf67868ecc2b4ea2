package song

import (
	"reflect"
	"testing"
)

func TestSongString(t *testing.T) {
	s := New()
	s.SetLyrics("[verse]\nhello\n#length 100t\n[chorus]\nla la")
	want := "[verse]\nhello\n\n[chorus]\nla la\n\n"
	if s.String() != want {
		t.Fatalf("String() = %q; want %q", s.String(), want)
	}
}

func TestSongLength(t *testing.T) {
	s := New()
	s.SetLyrics("#length 2.0\n[verse]\nx\n[chorus]\ny")
	want := 100 + DefaultTrackLength
	if got := s.Length(); got != want {
		t.Fatalf("Length() = %d; want %d", got, want)
	}
	if got := s.LengthSeconds(); got != float64(want)/FramesPerSecond {
		t.Fatalf("LengthSeconds() = %v; want %v", got, float64(want)/FramesPerSecond)
	}
}

func TestSongMergeForward(t *testing.T) {
	s := New()
	s.SetLyrics("[verse]\nhello\n[chorus]\nla")
	s.Segment(0).SetTrack(0, 0, []int{1, 2, 3})
	s.Segment(0).SetTrack(1, 1, []int{9})
	s.Segment(1).SetTrack(0, 0, []int{4, 5})

	// Re-parsing identical text keeps every cached buffer.
	s.SetLyrics("[verse]\nhello\n[chorus]\nla")
	if got := s.Segment(0).Track(0, 0); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("Track(0,0) = %v; want %v", got, []int{1, 2, 3})
	}
	if got := s.Segment(0).Track(1, 1); !reflect.DeepEqual(got, []int{9}) {
		t.Fatalf("Track(1,1) = %v; want %v", got, []int{9})
	}
	if got := s.Segment(1).Track(0, 0); !reflect.DeepEqual(got, []int{4, 5}) {
		t.Fatalf("Track(0,0) = %v; want %v", got, []int{4, 5})
	}

	// The merge is positional: edited lyrics at position 0 still adopt the
	// old position-0 buffers.
	s.SetLyrics("[intro]\nooh\n[chorus]\nla")
	if got := s.Segment(0).Track(0, 0); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("Track(0,0) = %v; want %v", got, []int{1, 2, 3})
	}

	// Positions beyond the shorter list start empty.
	s.SetLyrics("[intro]\nooh\n[chorus]\nla\n[outro]\nbye")
	if got := s.Segment(2).CachedLength(0, 0); got != 0 {
		t.Fatalf("CachedLength(0,0) = %d; want 0", got)
	}

	// Shrinking the list discards trailing buffers for good.
	s.SetLyrics("[intro]\nooh")
	s.SetLyrics("[intro]\nooh\n[chorus]\nla")
	if got := s.Segment(1).CachedLength(0, 0); got != 0 {
		t.Fatalf("CachedLength(0,0) = %d; want 0", got)
	}
}

func TestSongMergeForwardByID(t *testing.T) {
	s := New()
	s.SetLyrics("#id v1\n[verse]\nhello\n#id c1\n[chorus]\nla")
	s.Segment(0).SetTrack(0, 0, []int{1, 2})
	s.Segment(1).SetTrack(0, 0, []int{3, 4, 5})

	// Tagged sections keep their buffers across a reorder.
	s.SetLyrics("#id c1\n[chorus]\nla\n#id v1\n[verse]\nhello")
	if got := s.Segment(0).Track(0, 0); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Fatalf("Track(0,0) = %v; want %v", got, []int{3, 4, 5})
	}
	if got := s.Segment(1).Track(0, 0); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("Track(0,0) = %v; want %v", got, []int{1, 2})
	}

	// An id nobody carried before starts empty, even when a positional
	// match exists.
	s.SetLyrics("#id b1\n[bridge]\nmm\n#id v1\n[verse]\nhello")
	if got := s.Segment(0).CachedLength(0, 0); got != 0 {
		t.Fatalf("CachedLength(0,0) = %d; want 0", got)
	}
	if got := s.Segment(1).Track(0, 0); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("Track(0,0) = %v; want %v", got, []int{1, 2})
	}
}

func TestSongMergeSegments(t *testing.T) {
	s := New()
	s.SetLyrics("[a]\nx\n[b]\ny\n[c]\nz")
	s.Segment(0).SetTrack(0, 0, []int{1, 2})
	s.Segment(0).SetTrack(0, 1, []int{3, 4})
	// Segment b has no cached tokens, it compresses out of the flat stream.
	s.Segment(2).SetTrack(0, 0, []int{5})
	s.Segment(2).SetTrack(0, 1, []int{6})

	tracks := s.MergeSegments(0)
	if !reflect.DeepEqual(tracks[0], []int{1, 2, 5}) {
		t.Fatalf("MergeSegments(0)[0] = %v; want %v", tracks[0], []int{1, 2, 5})
	}
	if !reflect.DeepEqual(tracks[1], []int{3, 4, 6}) {
		t.Fatalf("MergeSegments(0)[1] = %v; want %v", tracks[1], []int{3, 4, 6})
	}
}

func TestSongClearCache(t *testing.T) {
	s := New()
	s.SetLyrics("[a]\nx")
	s.Segment(0).SetTrack(0, 0, []int{1})
	s.Segment(0).SetTrack(1, 0, []int{2})
	s.ClearCache(0)
	if got := s.Segment(0).CachedLength(0, 0); got != 0 {
		t.Fatalf("CachedLength(0,0) = %d; want 0", got)
	}
	if got := s.Segment(0).CachedLength(1, 0); got != 1 {
		t.Fatalf("CachedLength(1,0) = %d; want 1", got)
	}
}

func TestSongClone(t *testing.T) {
	s := New()
	s.SetGenre("synthwave")
	s.SetLyrics("[a]\nx")
	s.Segment(0).SetTrack(0, 0, []int{1, 2})

	c := s.Clone()
	c.Segment(0).Track(0, 0)[0] = 99
	c.SetGenre("ambient")

	if got := s.Segment(0).Track(0, 0)[0]; got != 1 {
		t.Fatalf("Track(0,0)[0] = %d after clone edit; want 1", got)
	}
	if s.Genre() != "synthwave" {
		t.Fatalf("Genre() = %q after clone edit; want %q", s.Genre(), "synthwave")
	}
}
