package session

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/joeljuvel/yuegen/pkg/song"
)

const testScript = "#length 4t\n[verse]\nla la\n#length 3t\n[chorus]\nna na"

func testSong() *song.Song {
	s := song.New()
	s.SetGenre("synth pop")
	s.SetLyrics(testScript)
	return s
}

func TestSessionRun(t *testing.T) {
	s := testSong()
	sess := New(s, NewSimulator(42), false)
	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}

	wants := []int{4, 3}
	for i, want := range wants {
		for track := 0; track < song.NrTracks; track++ {
			if got := s.Segment(i).CachedLength(0, track); got != want {
				t.Fatalf("segment %d CachedLength(0,%d) = %d; want %d", i, track, got, want)
			}
			if got := s.Segment(i).CachedLength(1, track); got != want*song.Stage1ElemSize {
				t.Fatalf("segment %d CachedLength(1,%d) = %d; want %d", i, track, got, want*song.Stage1ElemSize)
			}
		}
	}

	bounds := sess.Cache().Segments()
	want := []song.Boundary{
		{Name: "verse", Start: 0, End: 4},
		{Name: "chorus", Start: 4, End: 7},
	}
	if !reflect.DeepEqual(bounds, want) {
		t.Fatalf("Segments() = %v; want %v", bounds, want)
	}
}

func TestSessionDeterministic(t *testing.T) {
	a := testSong()
	if err := New(a, NewSimulator(7), false).Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	b := testSong()
	if err := New(b, NewSimulator(7), false).Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	for i := 0; i < a.Len(); i++ {
		for stage := 0; stage < song.NrStages; stage++ {
			for track := 0; track < song.NrTracks; track++ {
				if !reflect.DeepEqual(a.Segment(i).Track(stage, track), b.Segment(i).Track(stage, track)) {
					t.Fatalf("segment %d stage %d track %d differs between equal seeds", i, stage, track)
				}
			}
		}
	}
}

func TestSessionRewindRegenerate(t *testing.T) {
	full := testSong()
	if err := New(full, NewSimulator(3), false).Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}

	s := testSong()
	sess := New(s, NewSimulator(3), false)
	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}

	// Give up the last 2 tokens (40 ms) and regenerate them.
	if got := sess.Rewind(40 * time.Millisecond); got != 2 {
		t.Fatalf("Rewind() = %d; want 2", got)
	}
	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}

	// The simulator keys its stream on stream position, so the regenerated
	// tail matches the uninterrupted run token for token.
	for i := 0; i < s.Len(); i++ {
		for stage := 0; stage < song.NrStages; stage++ {
			for track := 0; track < song.NrTracks; track++ {
				got := s.Segment(i).Track(stage, track)
				want := full.Segment(i).Track(stage, track)
				if !reflect.DeepEqual(got, want) {
					t.Fatalf("segment %d stage %d track %d = %v after rewind; want %v", i, stage, track, got, want)
				}
			}
		}
	}
}

func TestSessionRunGrownSegment(t *testing.T) {
	s := testSong()
	sess := New(s, NewSimulator(9), false)
	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}

	// Raising a mid-list length after a run carries the old, now short,
	// buffers forward. The rerun must regenerate from the grown segment
	// rather than grow its boundary in place, which would overlap the
	// boundary that follows.
	grown := "#length 6t\n[verse]\nla la\n#length 3t\n[chorus]\nna na"
	s.SetLyrics(grown)
	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}

	bounds := sess.Cache().Segments()
	want := []song.Boundary{
		{Name: "verse", Start: 0, End: 6},
		{Name: "chorus", Start: 6, End: 9},
	}
	if !reflect.DeepEqual(bounds, want) {
		t.Fatalf("Segments() = %v; want %v", bounds, want)
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i].Start != bounds[i-1].End {
			t.Fatalf("Segments()[%d] starts at %d; want %d", i, bounds[i].Start, bounds[i-1].End)
		}
	}

	// The position-keyed simulator makes the rerun identical to a fresh
	// run over the grown script.
	fresh := song.New()
	fresh.SetGenre("synth pop")
	fresh.SetLyrics(grown)
	if err := New(fresh, NewSimulator(9), false).Run(context.Background()); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	for i := 0; i < s.Len(); i++ {
		for stage := 0; stage < song.NrStages; stage++ {
			for track := 0; track < song.NrTracks; track++ {
				got := s.Segment(i).Track(stage, track)
				want := fresh.Segment(i).Track(stage, track)
				if !reflect.DeepEqual(got, want) {
					t.Fatalf("segment %d stage %d track %d = %v after regrow; want %v", i, stage, track, got, want)
				}
			}
		}
	}
}

type shortGenerator struct{}

func (shortGenerator) GenerateStage0(ctx context.Context, req *Stage0Request) ([][]int, error) {
	out := make([][]int, len(req.Prefix))
	for track, prefix := range req.Prefix {
		out[track] = append(append([]int{}, prefix...), 0)
	}
	return out, nil
}

func (shortGenerator) GenerateStage1(ctx context.Context, req *Stage1Request) ([][]int, error) {
	return req.Prefix, nil
}

func TestSessionShortGenerator(t *testing.T) {
	s := testSong()
	if err := New(s, shortGenerator{}, false).Run(context.Background()); err == nil {
		t.Fatal("Run() err = nil; want short output error")
	}
}
