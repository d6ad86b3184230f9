//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/forPelevin/sportsight/internal/caption"
	"github.com/forPelevin/sportsight/internal/config"
	"github.com/forPelevin/sportsight/internal/pipeline"
	"github.com/forPelevin/sportsight/internal/types"
)

func TestE2E(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "match.mp4")
	makeMatchVideo(t, in)

	cfg := config.Default()
	cfg.Paths = config.Paths{
		Input:       in,
		ClipsDir:    filepath.Join(tmp, "out", "clips"),
		CaptionsDir: filepath.Join(tmp, "out", "captions"),
		Manifest:    filepath.Join(tmp, "out", "manifest.json"),
		LockFile:    filepath.Join(tmp, "sportsight.lock"),
	}
	cfg.Signal.Stride = 2
	cfg.Segment.Seed = 7

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	m, err := pipeline.Run(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if len(m.Clips) == 0 {
		t.Fatalf("expected at least one clip")
	}

	b, err := os.ReadFile(cfg.Paths.Manifest)
	if err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
	var onDisk types.Manifest
	if err := json.Unmarshal(b, &onDisk); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if onDisk.RunID != m.RunID || len(onDisk.Clips) != len(m.Clips) {
		t.Fatalf("manifest on disk differs from returned one")
	}

	for _, c := range m.Clips {
		if !c.Produced {
			t.Fatalf("clip %d not produced: %s", c.Index, c.Error)
		}
		clipPath := filepath.Join(filepath.Dir(cfg.Paths.Manifest), filepath.FromSlash(c.File))
		dur, err := probeDurationSeconds(clipPath)
		if err != nil {
			t.Fatalf("probe clip %d: %v", c.Index, err)
		}
		// stream copy snaps to keyframes, one per second here
		if dur <= 0 || dur > cfg.Segment.ClipMaxSeconds+1.5 {
			t.Fatalf("clip %d duration %.2fs out of range", c.Index, dur)
		}

		capPath := filepath.Join(filepath.Dir(cfg.Paths.Manifest), filepath.FromSlash(c.CaptionFile))
		text, err := os.ReadFile(capPath)
		if err != nil {
			t.Fatalf("caption %d: %v", c.Index, err)
		}
		if !strings.HasSuffix(strings.TrimSpace(string(text)), "(dummy commentary)") {
			t.Fatalf("caption %d = %q, want fallback text", c.Index, text)
		}
		if c.CaptionBackend != caption.FallbackBackend {
			t.Fatalf("caption %d backend = %q", c.Index, c.CaptionBackend)
		}
	}
}

func TestE2E_Rerun(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "match.mp4")
	makeMatchVideo(t, in)

	cfg := config.Default()
	cfg.Paths = config.Paths{
		Input:       in,
		ClipsDir:    filepath.Join(tmp, "clips"),
		CaptionsDir: filepath.Join(tmp, "captions"),
		Manifest:    filepath.Join(tmp, "manifest.json"),
		LockFile:    filepath.Join(tmp, "sportsight.lock"),
	}
	cfg.Segment.Seed = 1

	count := func() int {
		n := 0
		for _, d := range []string{cfg.Paths.ClipsDir, cfg.Paths.CaptionsDir} {
			ents, err := os.ReadDir(d)
			if err != nil {
				t.Fatalf("read %s: %v", d, err)
			}
			n += len(ents)
		}
		return n
	}

	for i := 0; i < 2; i++ {
		if _, err := pipeline.Run(context.Background(), cfg, zaptest.NewLogger(t)); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	first := count()
	if _, err := pipeline.Run(context.Background(), cfg, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("run 3: %v", err)
	}
	if got := count(); got != first {
		t.Fatalf("file count changed across runs: %d -> %d", first, got)
	}
}
