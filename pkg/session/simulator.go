package session

import (
	"context"
	"math/rand"

	"github.com/joeljuvel/yuegen/pkg/song"
)

const (
	stage0Vocabulary = 1024
	stage1Vocabulary = 8192
)

// Simulator is a deterministic offline generator used by tests and the CLI
// dry-run path. Every token is a pure function of seed, stage, track and
// stream position, so resuming after a rewind reproduces exactly the stream
// an uninterrupted pass would have produced, no matter how generation is
// batched.
type Simulator struct {
	seed int64
}

// NewSimulator creates a simulator for a seed.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{seed: seed}
}

func (s *Simulator) GenerateStage0(ctx context.Context, req *Stage0Request) ([][]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]int, len(req.Prefix))
	for track, prefix := range req.Prefix {
		buf := make([]int, 0, len(prefix)+req.Tokens)
		buf = append(buf, prefix...)
		for i := 0; i < req.Tokens; i++ {
			buf = append(buf, s.token(0, track, len(prefix)+i, stage0Vocabulary))
		}
		out[track] = buf
	}
	return out, nil
}

func (s *Simulator) GenerateStage1(ctx context.Context, req *Stage1Request) ([][]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]int, len(req.Prefix))
	for track, prefix := range req.Prefix {
		need := len(req.Stage0[track]) * song.Stage1ElemSize
		buf := make([]int, 0, len(prefix)+need)
		buf = append(buf, prefix...)
		for i := 0; i < need; i++ {
			buf = append(buf, s.token(1, track, len(prefix)+i, stage1Vocabulary))
		}
		out[track] = buf
	}
	return out, nil
}

func (s *Simulator) token(stage, track, pos, vocabulary int) int {
	r := rand.New(rand.NewSource(s.seed + int64(stage)*1_000_003 + int64(track)*101_279 + int64(pos)*17))
	return r.Intn(vocabulary)
}
