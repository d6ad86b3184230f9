package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/forPelevin/sportsight/internal/caption"
	"github.com/forPelevin/sportsight/internal/domain/highlights"
	"github.com/forPelevin/sportsight/internal/metrics"
	"github.com/forPelevin/sportsight/internal/ports"
	"github.com/forPelevin/sportsight/internal/types"
)

// Fatal outcomes. Anything else that goes wrong per clip or per caption is
// recorded on the item and the run still completes.
var (
	ErrSourceUnreadable = ports.ErrSourceUnreadable
	ErrNoSignal         = errors.New("no motion signal in source video")
	ErrNoHighlights     = errors.New("no highlight segments above threshold")
	ErrClipExtraction   = errors.New("clip extraction failed")
)

type Segmenter interface {
	Segment(frames []types.ScoredFrame, fps, videoSec float64) highlights.Result
}

type Deps struct {
	Signal    ports.SignalExtractor
	Probe     ports.VideoProber
	Segmenter Segmenter
	Clips     ports.ClipExtractor
	Captions  ports.Captioner
	Log       *zap.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return Usecase{d: d}
}

type Input struct {
	InputMP4    string
	CaptionsDir string
	// ManifestDir is the base for the relative file paths in the manifest.
	ManifestDir string
}

type Result struct {
	Manifest types.Manifest
	Clips    []types.ClipResult
	Captions []types.Caption
}

func CaptionFileName(index int) string {
	return fmt.Sprintf("clip_%d.txt", index)
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Log

	if st, err := os.Stat(in.InputMP4); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	} else if st.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a directory", ErrSourceUnreadable, in.InputMP4)
	}

	log.Info("detecting motion", zap.String("input", in.InputMP4))
	t0 := time.Now()
	scores, err := u.d.Signal.Scores(ctx, in.InputMP4)
	observe("signal", t0)
	if err != nil {
		if errors.Is(err, ErrSourceUnreadable) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("signal extraction: %w", err)
	}
	metrics.ScoredFramesTotal.Add(float64(len(scores)))
	if len(scores) == 0 {
		return Result{}, ErrNoSignal
	}
	log.Info("motion scored", zap.Int("frames", len(scores)))

	info, err := u.d.Probe.ProbeVideo(ctx, in.InputMP4)
	if err != nil {
		return Result{}, fmt.Errorf("probe video: %w", err)
	}
	log.Info("video metadata",
		zap.Float64("fps", info.FPS),
		zap.Int("frame_count", info.FrameCount),
		zap.Float64("duration_sec", info.Duration),
	)

	t0 = time.Now()
	seg := u.d.Segmenter.Segment(scores, info.FPS, info.Duration)
	observe("segment", t0)
	if len(seg.Times) == 0 {
		return Result{}, fmt.Errorf("%w (threshold %.3f)", ErrNoHighlights, seg.Threshold)
	}
	log.Info("highlights selected",
		zap.Float64("threshold", seg.Threshold),
		zap.Int("groups", seg.Groups),
		zap.Int("kept", len(seg.Times)),
	)

	t0 = time.Now()
	clips, err := u.d.Clips.Extract(ctx, in.InputMP4, seg.Times)
	observe("clip", t0)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrClipExtraction, err)
	}
	for _, c := range clips {
		metrics.ClipsTotal.WithLabelValues(metrics.Status(c.Produced)).Inc()
	}

	if err := os.MkdirAll(in.CaptionsDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create captions dir: %w", err)
	}

	t0 = time.Now()
	caps := make([]types.Caption, 0, len(seg.Times))
	capRes := make([]types.CaptionResult, 0, len(seg.Times))
	for i, ts := range seg.Times {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		idx := i + 1
		r := u.d.Captions.Caption(ctx, caption.Description(ts))
		metrics.CaptionsTotal.WithLabelValues(r.Backend, metrics.Status(r.Err == nil)).Inc()
		if r.Err != nil {
			log.Warn("caption failed", zap.Int("index", idx), zap.String("backend", r.Backend), zap.Error(r.Err))
		}
		if err := writeFile(filepath.Join(in.CaptionsDir, CaptionFileName(idx)), []byte(r.Text+"\n")); err != nil {
			return Result{}, fmt.Errorf("write caption %d: %w", idx, err)
		}
		caps = append(caps, types.Caption{Index: idx, Text: r.Text})
		capRes = append(capRes, r)
	}
	observe("caption", t0)

	m := types.Manifest{
		Input:       in.InputMP4,
		FPS:         info.FPS,
		FrameCount:  info.FrameCount,
		DurationSec: info.Duration,
		ScoredCount: len(scores),
		Threshold:   seg.Threshold,
		Groups:      seg.Groups,
	}
	for i, ts := range seg.Times {
		mc := types.ManifestClip{
			Index:          i + 1,
			StartSec:       ts.StartSec,
			EndSec:         ts.EndSec,
			StartFrame:     seg.Frames[i].StartFrame,
			EndFrame:       seg.Frames[i].EndFrame,
			Caption:        caps[i].Text,
			CaptionFile:    relPath(in.ManifestDir, filepath.Join(in.CaptionsDir, CaptionFileName(i+1))),
			CaptionBackend: capRes[i].Backend,
		}
		if capRes[i].Err != nil {
			mc.CaptionError = capRes[i].Err.Error()
		}
		if i < len(clips) {
			mc.File = relPath(in.ManifestDir, clips[i].Path)
			mc.Produced = clips[i].Produced
			if clips[i].Err != nil {
				mc.Error = clips[i].Err.Error()
			}
		}
		m.Clips = append(m.Clips, mc)
	}

	return Result{Manifest: m, Clips: clips, Captions: caps}, nil
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func relPath(base, p string) string {
	if base != "" {
		if r, err := filepath.Rel(base, p); err == nil {
			return filepath.ToSlash(r)
		}
	}
	return filepath.ToSlash(p)
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}

// Outcome classifies a Run error into a short label for metrics and API
// responses.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "done"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrSourceUnreadable):
		return "source_unreadable"
	case errors.Is(err, ErrNoSignal):
		return "no_signal"
	case errors.Is(err, ErrNoHighlights):
		return "no_highlights"
	case errors.Is(err, ErrClipExtraction):
		return "clip_extraction"
	default:
		return "error"
	}
}
