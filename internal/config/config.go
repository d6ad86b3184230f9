// Package config holds the single run configuration. It is built once at
// process start from defaults, an optional TOML file and the environment, and
// then passed explicitly to every component.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/forPelevin/sportsight/internal/domain/highlights"
	"github.com/forPelevin/sportsight/internal/domain/motion"
	"github.com/forPelevin/sportsight/internal/ports"
	"github.com/forPelevin/sportsight/internal/ports/adapters/azureopenai"
)

type Config struct {
	Paths   Paths   `toml:"paths"`
	FFmpeg  FFmpeg  `toml:"ffmpeg"`
	Signal  Signal  `toml:"signal"`
	Segment Segment `toml:"segment"`
	Caption Caption `toml:"caption"`
	Server  Server  `toml:"server"`
	Log     Log     `toml:"log"`
}

type Paths struct {
	Input       string `toml:"input"        env:"SPORTSIGHT_INPUT"`
	ClipsDir    string `toml:"clips_dir"    env:"SPORTSIGHT_CLIPS_DIR"`
	CaptionsDir string `toml:"captions_dir" env:"SPORTSIGHT_CAPTIONS_DIR"`
	Manifest    string `toml:"manifest"     env:"SPORTSIGHT_MANIFEST"`
	LockFile    string `toml:"lock_file"    env:"SPORTSIGHT_LOCK_FILE"`
}

type FFmpeg struct {
	FFmpegPath  string `toml:"ffmpeg_path"  env:"SPORTSIGHT_FFMPEG_PATH"`
	FFprobePath string `toml:"ffprobe_path" env:"SPORTSIGHT_FFPROBE_PATH"`
}

type Signal struct {
	Stride            int     `toml:"stride"             env:"SPORTSIGHT_STRIDE"`
	PixelThreshold    int     `toml:"pixel_threshold"    env:"SPORTSIGHT_PIXEL_THRESHOLD"`
	SignificanceFloor float64 `toml:"significance_floor" env:"SPORTSIGHT_SIGNIFICANCE_FLOOR"`
	AnalysisWidth     int     `toml:"analysis_width"     env:"SPORTSIGHT_ANALYSIS_WIDTH"`
	AnalysisHeight    int     `toml:"analysis_height"    env:"SPORTSIGHT_ANALYSIS_HEIGHT"`
	BlurSigma         float64 `toml:"blur_sigma"         env:"SPORTSIGHT_BLUR_SIGMA"`
}

type Segment struct {
	Percentile     float64 `toml:"percentile"       env:"SPORTSIGHT_PERCENTILE"`
	GapTolerance   int     `toml:"gap_tolerance"    env:"SPORTSIGHT_GAP_TOLERANCE"`
	MaxSegments    int     `toml:"max_segments"     env:"SPORTSIGHT_MAX_SEGMENTS"`
	ClipMinSeconds float64 `toml:"clip_min_seconds" env:"SPORTSIGHT_CLIP_MIN_SECONDS"`
	ClipMaxSeconds float64 `toml:"clip_max_seconds" env:"SPORTSIGHT_CLIP_MAX_SECONDS"`
	// Seed fixes the clip-duration draws; 0 seeds from the clock.
	Seed uint64 `toml:"seed" env:"SPORTSIGHT_SEED"`
}

type Caption struct {
	AzureEndpoint   string  `toml:"azure_endpoint"    env:"AZURE_OPENAI_ENDPOINT"`
	AzureCredential string  `toml:"azure_credential"  env:"AZURE_OPENAI_AD_TOKEN"`
	AzureBearerAuth bool    `toml:"azure_bearer_auth" env:"SPORTSIGHT_AZURE_BEARER_AUTH"`
	AzureDeployment string  `toml:"azure_deployment"  env:"DEPLOYMENT_NAME"`
	AzureAPIVersion string  `toml:"azure_api_version" env:"OPENAI_API_VERSION"`
	HFToken         string  `toml:"hf_token"          env:"HUGGINGFACEHUB_ACCESS_TOKEN"`
	HFModelURL      string  `toml:"hf_model_url"      env:"SPORTSIGHT_HF_MODEL_URL"`
	TimeoutSeconds  int     `toml:"timeout_seconds"   env:"SPORTSIGHT_CAPTION_TIMEOUT_SECONDS"`
	MaxTokens       int     `toml:"max_tokens"        env:"SPORTSIGHT_CAPTION_MAX_TOKENS"`
	Temperature     float32 `toml:"temperature"       env:"SPORTSIGHT_CAPTION_TEMPERATURE"`
}

type Server struct {
	Bind        string `toml:"bind"          env:"SPORTSIGHT_BIND"`
	MaxUploadMB int64  `toml:"max_upload_mb" env:"SPORTSIGHT_MAX_UPLOAD_MB"`
}

type Log struct {
	Level  string `toml:"level"  env:"SPORTSIGHT_LOG_LEVEL"`
	File   string `toml:"file"   env:"SPORTSIGHT_LOG_FILE"`
	Format string `toml:"format" env:"SPORTSIGHT_LOG_FORMAT"`
}

func Default() Config {
	mp := motion.DefaultParams()
	hp := highlights.DefaultParams()
	return Config{
		Paths: Paths{
			Input:       "data/input/match.mp4",
			ClipsDir:    "data/output/clips",
			CaptionsDir: "data/output/captions",
			Manifest:    "data/output/manifest.json",
			LockFile:    "data/sportsight.lock",
		},
		FFmpeg: FFmpeg{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"},
		Signal: Signal{
			Stride:            5,
			PixelThreshold:    mp.PixelThreshold,
			SignificanceFloor: mp.SignificanceFloor,
			AnalysisWidth:     320,
			AnalysisHeight:    180,
			BlurSigma:         1.5,
		},
		Segment: Segment{
			Percentile:     hp.Percentile,
			GapTolerance:   hp.GapTolerance,
			MaxSegments:    hp.MaxSegments,
			ClipMinSeconds: hp.MinClipSec,
			ClipMaxSeconds: hp.MaxClipSec,
		},
		Caption: Caption{
			AzureAPIVersion: "2024-02-15-preview",
			TimeoutSeconds:  10,
			MaxTokens:       60,
			Temperature:     0.7,
		},
		Server: Server{Bind: ":5000", MaxUploadMB: 2048},
		Log:    Log{Level: "info", Format: "auto"},
	}
}

// Load layers an optional TOML file and then the process environment over
// Default. Unset variables leave the lower layers untouched.
func Load(path string) (Config, error) {
	return load(path, env.Options{})
}

func load(path string, opts env.Options) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if und := md.Undecoded(); len(und) > 0 {
			keys := make([]string, 0, len(und))
			for _, k := range und {
				keys = append(keys, k.String())
			}
			return Config{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Paths.Input) == "" {
		errs = append(errs, errors.New("paths.input is empty"))
	}
	if c.Paths.ClipsDir == "" || c.Paths.CaptionsDir == "" {
		errs = append(errs, errors.New("paths.clips_dir and paths.captions_dir are required"))
	}
	if c.Signal.Stride < 1 {
		errs = append(errs, fmt.Errorf("signal.stride must be >= 1, got %d", c.Signal.Stride))
	}
	if c.Signal.PixelThreshold < 0 || c.Signal.PixelThreshold > 255 {
		errs = append(errs, fmt.Errorf("signal.pixel_threshold must be in 0..255, got %d", c.Signal.PixelThreshold))
	}
	if c.Signal.SignificanceFloor < 0 {
		errs = append(errs, fmt.Errorf("signal.significance_floor must be >= 0, got %g", c.Signal.SignificanceFloor))
	}
	if c.Signal.AnalysisWidth < 1 || c.Signal.AnalysisHeight < 1 {
		errs = append(errs, errors.New("signal.analysis_width and analysis_height must be >= 1"))
	}
	if c.Segment.Percentile < 0 || c.Segment.Percentile > 100 {
		errs = append(errs, fmt.Errorf("segment.percentile must be in [0,100], got %g", c.Segment.Percentile))
	}
	if c.Segment.GapTolerance < 0 {
		errs = append(errs, fmt.Errorf("segment.gap_tolerance must be >= 0, got %d", c.Segment.GapTolerance))
	}
	if c.Segment.MaxSegments < 1 {
		errs = append(errs, fmt.Errorf("segment.max_segments must be >= 1, got %d", c.Segment.MaxSegments))
	}
	if c.Segment.ClipMinSeconds <= 0 {
		errs = append(errs, errors.New("segment.clip_min_seconds must be > 0"))
	}
	if c.Segment.ClipMinSeconds > c.Segment.ClipMaxSeconds {
		errs = append(errs, errors.New("segment.clip_min_seconds must be <= clip_max_seconds"))
	}
	if err := azureopenai.ValidateEndpoint(c.Caption.AzureEndpoint); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) MotionParams() motion.Params {
	return motion.Params{
		PixelThreshold:    c.Signal.PixelThreshold,
		SignificanceFloor: c.Signal.SignificanceFloor,
	}
}

func (c Config) DecodeOptions() ports.DecodeOptions {
	return ports.DecodeOptions{
		Stride:    c.Signal.Stride,
		Width:     c.Signal.AnalysisWidth,
		Height:    c.Signal.AnalysisHeight,
		BlurSigma: c.Signal.BlurSigma,
	}
}

func (c Config) SegmentParams() highlights.Params {
	return highlights.Params{
		Percentile:   c.Segment.Percentile,
		GapTolerance: c.Segment.GapTolerance,
		MaxSegments:  c.Segment.MaxSegments,
		MinClipSec:   c.Segment.ClipMinSeconds,
		MaxClipSec:   c.Segment.ClipMaxSeconds,
	}
}

func (c Config) AzureOpenAI() azureopenai.Config {
	return azureopenai.Config{
		Endpoint:    c.Caption.AzureEndpoint,
		Credential:  c.Caption.AzureCredential,
		BearerAuth:  c.Caption.AzureBearerAuth,
		Deployment:  c.Caption.AzureDeployment,
		APIVersion:  c.Caption.AzureAPIVersion,
		Timeout:     c.CaptionTimeout(),
		MaxTokens:   c.Caption.MaxTokens,
		Temperature: c.Caption.Temperature,
	}
}

func (c Config) CaptionTimeout() time.Duration {
	return time.Duration(c.Caption.TimeoutSeconds) * time.Second
}
