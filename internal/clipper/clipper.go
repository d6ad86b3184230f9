// Package clipper cuts one stream-copied clip per highlight window.
package clipper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/forPelevin/sportsight/internal/ports"
	"github.com/forPelevin/sportsight/internal/types"
)

type Extractor struct {
	cut ports.ClipCutter
	dir string
	log *zap.Logger
}

func New(cut ports.ClipCutter, dir string, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{cut: cut, dir: dir, log: log}
}

func FileName(index int) string {
	return fmt.Sprintf("clip_%d.mp4", index)
}

// Extract returns one result per segment. A failed item is recorded and the
// batch continues. The error return is reserved for conditions that stop the
// whole batch: the output directory cannot be created, or ctx is cancelled
// before every segment was attempted.
func (e *Extractor) Extract(ctx context.Context, src string, segs []types.TimeSegment) ([]types.ClipResult, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create clips dir: %w", err)
	}

	out := make([]types.ClipResult, 0, len(segs))
	for i, seg := range segs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res := types.ClipResult{
			Index:   i + 1,
			Segment: seg,
			Path:    filepath.Join(e.dir, FileName(i+1)),
		}

		switch {
		case !(seg.EndSec > seg.StartSec):
			res.Err = fmt.Errorf("invalid range %.3fs..%.3fs", seg.StartSec, seg.EndSec)
		default:
			res.Err = e.cut.CopyClip(ctx, src, seg.StartSec, seg.EndSec, res.Path)
		}

		if res.Err != nil {
			// a partial file would be listed as a produced clip
			if err := os.Remove(res.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				e.log.Warn("remove partial clip", zap.String("path", res.Path), zap.Error(err))
			}
			e.log.Warn("clip failed",
				zap.Int("index", res.Index),
				zap.Float64("start_sec", seg.StartSec),
				zap.Float64("end_sec", seg.EndSec),
				zap.Error(res.Err),
			)
		} else {
			res.Produced = true
			e.log.Info("clip written",
				zap.Int("index", res.Index),
				zap.String("path", res.Path),
				zap.Float64("duration_sec", seg.Duration()),
			)
		}
		out = append(out, res)
	}
	return out, nil
}
