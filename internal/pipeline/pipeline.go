package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forPelevin/sportsight/internal/caption"
	"github.com/forPelevin/sportsight/internal/clipper"
	"github.com/forPelevin/sportsight/internal/config"
	"github.com/forPelevin/sportsight/internal/domain/highlights"
	"github.com/forPelevin/sportsight/internal/domain/motion"
	"github.com/forPelevin/sportsight/internal/metrics"
	"github.com/forPelevin/sportsight/internal/ports"
	"github.com/forPelevin/sportsight/internal/ports/adapters/azureopenai"
	"github.com/forPelevin/sportsight/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/sportsight/internal/ports/adapters/huggingface"
	"github.com/forPelevin/sportsight/internal/types"
	"github.com/forPelevin/sportsight/internal/usecase"
)

// ErrRunInProgress is returned when another run holds the lock file.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Run executes one full pipeline run against cfg.Paths.Input and writes the
// manifest. Only one run per lock file may execute at a time.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger) (types.Manifest, error) {
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	return run(ctx, cfg, runID, wire(cfg, log), log)
}

func wire(cfg config.Config, log *zap.Logger) usecase.Deps {
	v := ffmpeg.New(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath)
	gen := caption.New(captionBackends(cfg)...)
	log.Info("caption backend", zap.String("backend", gen.Backend()))

	return usecase.Deps{
		Signal:    motion.NewExtractor(v, cfg.DecodeOptions(), cfg.MotionParams()),
		Probe:     v,
		Segmenter: highlights.NewSegmenter(cfg.SegmentParams(), newRand(cfg.Segment.Seed)),
		Clips:     clipper.New(v, cfg.Paths.ClipsDir, log),
		Captions:  gen,
		Log:       log,
	}
}

// captionBackends lists the configured remote backends in precedence order.
func captionBackends(cfg config.Config) []ports.CaptionBackend {
	var out []ports.CaptionBackend
	if az := cfg.AzureOpenAI(); az.Enabled() {
		out = append(out, azureopenai.New(az))
	}
	if cfg.Caption.HFToken != "" {
		out = append(out, huggingface.New(cfg.Caption.HFToken, cfg.Caption.HFModelURL, cfg.CaptionTimeout()))
	}
	return out
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func run(ctx context.Context, cfg config.Config, runID string, deps usecase.Deps, log *zap.Logger) (types.Manifest, error) {
	unlock, err := acquire(cfg.Paths.LockFile)
	if err != nil {
		return types.Manifest{}, err
	}
	defer unlock()

	metrics.RunInFlight.Set(1)
	defer metrics.RunInFlight.Set(0)
	start := time.Now()

	res, err := runLocked(ctx, cfg, runID, deps, log)
	metrics.RunsTotal.WithLabelValues(usecase.Outcome(err)).Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("run aborted", zap.String("outcome", usecase.Outcome(err)), zap.Error(err))
		return types.Manifest{}, err
	}
	return res, nil
}

func runLocked(ctx context.Context, cfg config.Config, runID string, deps usecase.Deps, log *zap.Logger) (types.Manifest, error) {
	log.Info("preparing workspace",
		zap.String("clips_dir", cfg.Paths.ClipsDir),
		zap.String("captions_dir", cfg.Paths.CaptionsDir),
	)
	if err := ResetOutputs(cfg.Paths); err != nil {
		return types.Manifest{}, err
	}

	res, err := usecase.New(deps).Run(ctx, usecase.Input{
		InputMP4:    cfg.Paths.Input,
		CaptionsDir: cfg.Paths.CaptionsDir,
		ManifestDir: filepath.Dir(cfg.Paths.Manifest),
	})
	if err != nil {
		return types.Manifest{}, err
	}

	m := res.Manifest
	m.RunID = runID
	if err := writeManifest(cfg.Paths.Manifest, m); err != nil {
		return types.Manifest{}, err
	}

	produced := 0
	for _, c := range m.Clips {
		if c.Produced {
			produced++
		}
	}
	log.Info("run done",
		zap.Int("clips", len(m.Clips)),
		zap.Int("produced", produced),
		zap.String("manifest", cfg.Paths.Manifest),
	)
	return m, nil
}

func acquire(lockPath string) (func(), error) {
	if lockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() { _ = fl.Unlock() }, nil
}

// ResetOutputs deletes and recreates the clips and captions directories and
// removes a stale manifest.
func ResetOutputs(p config.Paths) error {
	for _, dir := range []string{p.ClipsDir, p.CaptionsDir} {
		if err := checkResettable(dir); err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("reset %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if p.Manifest != "" {
		if err := os.Remove(p.Manifest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove manifest: %w", err)
		}
	}
	return nil
}

func checkResettable(dir string) error {
	clean := filepath.Clean(strings.TrimSpace(dir))
	if dir == "" || clean == "." || clean == string(filepath.Separator) {
		return fmt.Errorf("refusing to reset output dir %q", dir)
	}
	if home, err := os.UserHomeDir(); err == nil && clean == filepath.Clean(home) {
		return fmt.Errorf("refusing to reset output dir %q", dir)
	}
	return nil
}

func writeManifest(path string, m types.Manifest) error {
	if path == "" {
		return nil
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ensure adapters implement ports
var (
	_ ports.FrameDecoder    = (*ffmpeg.Adapter)(nil)
	_ ports.VideoProber     = (*ffmpeg.Adapter)(nil)
	_ ports.ClipCutter      = (*ffmpeg.Adapter)(nil)
	_ ports.CaptionBackend  = (*azureopenai.Adapter)(nil)
	_ ports.CaptionBackend  = (*huggingface.Adapter)(nil)
	_ ports.SignalExtractor = (*motion.Extractor)(nil)
	_ ports.ClipExtractor   = (*clipper.Extractor)(nil)
	_ ports.Captioner       = (*caption.Generator)(nil)
)
