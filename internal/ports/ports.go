package ports

import (
	"context"
	"errors"

	"github.com/forPelevin/sportsight/internal/types"
)

// ErrSourceUnreadable is returned by adapters when the input video cannot be
// opened or decoded at all.
var ErrSourceUnreadable = errors.New("source video unreadable")

// GrayFrame is one decoded, downscaled, blurred single-channel frame.
// Index is the frame number in the source stream.
type GrayFrame struct {
	Index int
	Pix   []byte
}

type DecodeOptions struct {
	Stride    int
	Width     int
	Height    int
	BlurSigma float64
}

// FrameSource yields decoded frames in increasing Index order and returns
// io.EOF once the stream is exhausted.
type FrameSource interface {
	Next() (GrayFrame, error)
	Close() error
}

type FrameDecoder interface {
	OpenGrayFrames(ctx context.Context, path string, opts DecodeOptions) (FrameSource, error)
}

type VideoProber interface {
	ProbeVideo(ctx context.Context, path string) (types.VideoInfo, error)
}

type ClipCutter interface {
	CopyClip(ctx context.Context, in string, startSec, endSec float64, out string) error
}

// SignalExtractor turns a video into its ordered change-score sequence.
type SignalExtractor interface {
	Scores(ctx context.Context, path string) ([]types.ScoredFrame, error)
}

type ClipExtractor interface {
	Extract(ctx context.Context, src string, segs []types.TimeSegment) ([]types.ClipResult, error)
}

// CaptionBackend is one remote text-generation service.
type CaptionBackend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

type Captioner interface {
	Caption(ctx context.Context, description string) types.CaptionResult
}
