// Package motion scores how much each sampled frame changed relative to the
// previous sampled frame.
package motion

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/forPelevin/sportsight/internal/ports"
	"github.com/forPelevin/sportsight/internal/types"
)

type Params struct {
	// PixelThreshold is the per-pixel absolute intensity difference (0..255)
	// a pixel must exceed to count as changed.
	PixelThreshold int
	// SignificanceFloor drops frames whose score (percent) is below it.
	SignificanceFloor float64
}

func DefaultParams() Params {
	return Params{PixelThreshold: 25, SignificanceFloor: 0.1}
}

// ChangeScore returns the percentage of pixels whose absolute difference
// exceeds threshold. Both frames must have the same length.
func ChangeScore(prev, cur []byte, threshold int) float64 {
	if len(cur) == 0 {
		return 0
	}
	changed := 0
	for i := range cur {
		d := int(cur[i]) - int(prev[i])
		if d < 0 {
			d = -d
		}
		if d > threshold {
			changed++
		}
	}
	return 100 * float64(changed) / float64(len(cur))
}

// Stream lazily scores frames from a FrameSource. It is single-use: once
// exhausted it cannot be restarted.
type Stream struct {
	src    ports.FrameSource
	params Params

	prev     []byte
	prevIdx  int
	havePrev bool

	cur  types.ScoredFrame
	err  error
	done bool
}

func NewStream(src ports.FrameSource, p Params) *Stream {
	return &Stream{src: src, params: p}
}

// Next advances to the next significant scored frame. It returns false at the
// end of the stream or on error; check Err afterwards.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for {
		f, err := s.src.Next()
		if errors.Is(err, io.EOF) {
			s.done = true
			return false
		}
		if err != nil {
			s.err = err
			s.done = true
			return false
		}
		if !s.havePrev {
			s.prev = append(s.prev[:0], f.Pix...)
			s.prevIdx = f.Index
			s.havePrev = true
			continue
		}
		if f.Index <= s.prevIdx {
			s.err = fmt.Errorf("frame index %d not after %d", f.Index, s.prevIdx)
			s.done = true
			return false
		}
		if len(f.Pix) != len(s.prev) {
			s.err = fmt.Errorf("frame %d: size %d, want %d", f.Index, len(f.Pix), len(s.prev))
			s.done = true
			return false
		}

		score := ChangeScore(s.prev, f.Pix, s.params.PixelThreshold)
		s.prev = append(s.prev[:0], f.Pix...)
		s.prevIdx = f.Index
		if score < s.params.SignificanceFloor {
			continue
		}
		s.cur = types.ScoredFrame{FrameIndex: f.Index, Score: score}
		return true
	}
}

func (s *Stream) Frame() types.ScoredFrame { return s.cur }

func (s *Stream) Err() error { return s.err }

func (s *Stream) Close() error { return s.src.Close() }

// Collect drains the stream and closes it.
func Collect(s *Stream) ([]types.ScoredFrame, error) {
	var out []types.ScoredFrame
	for s.Next() {
		out = append(out, s.Frame())
	}
	closeErr := s.Close()
	if err := s.Err(); err != nil {
		return out, err
	}
	return out, closeErr
}

// Extractor opens a video through a FrameDecoder and scores it.
type Extractor struct {
	dec    ports.FrameDecoder
	opts   ports.DecodeOptions
	params Params
}

func NewExtractor(dec ports.FrameDecoder, opts ports.DecodeOptions, p Params) *Extractor {
	if opts.Stride < 1 {
		opts.Stride = 1
	}
	return &Extractor{dec: dec, opts: opts, params: p}
}

// Open starts decoding path and returns the lazy score stream.
func (e *Extractor) Open(ctx context.Context, path string) (*Stream, error) {
	src, err := e.dec.OpenGrayFrames(ctx, path, e.opts)
	if err != nil {
		return nil, err
	}
	return NewStream(src, e.params), nil
}

func (e *Extractor) Scores(ctx context.Context, path string) ([]types.ScoredFrame, error) {
	s, err := e.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return Collect(s)
}
