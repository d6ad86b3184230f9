package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/sportsight/internal/config"
	"github.com/forPelevin/sportsight/internal/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Run the pipeline once on a local MP4",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args)
		},
	}

	addTuningFlags(cmd)
	cmd.Flags().Duration("timeout", 3*time.Hour, "Overall run timeout")
	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	if len(args) == 1 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		cfg.Paths.Input = abs
	}
	applyTuningFlags(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m, err := pipeline.Run(ctx, cfg, a.log)
	if err != nil {
		return err
	}

	produced := 0
	for _, c := range m.Clips {
		if c.Produced {
			produced++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d/%d clips written, manifest: %s\n", produced, len(m.Clips), cfg.Paths.Manifest)
	return nil
}

func addTuningFlags(cmd *cobra.Command) {
	// Visible flags
	cmd.Flags().String("clips-dir", "", "Clips output directory")
	cmd.Flags().String("captions-dir", "", "Captions output directory")
	cmd.Flags().String("manifest", "", "Manifest output path")
	cmd.Flags().Int("max-segments", 0, "Maximum number of clips")
	cmd.Flags().Float64("percentile", 0, "Score percentile used as the highlight threshold")

	// Hidden tuning flags
	cmd.Flags().Int("stride", 0, "Analyse every Nth frame")
	cmd.Flags().Int("gap", 0, "Gap tolerance in source frames")
	cmd.Flags().Uint64("seed", 0, "Seed for clip-duration draws")
	for _, name := range []string{"stride", "gap", "seed"} {
		_ = cmd.Flags().MarkHidden(name)
	}
}

// applyTuningFlags overrides cfg with the flags the user set explicitly.
func applyTuningFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("clips-dir") {
		cfg.Paths.ClipsDir, _ = f.GetString("clips-dir")
	}
	if f.Changed("captions-dir") {
		cfg.Paths.CaptionsDir, _ = f.GetString("captions-dir")
	}
	if f.Changed("manifest") {
		cfg.Paths.Manifest, _ = f.GetString("manifest")
	}
	if f.Changed("max-segments") {
		cfg.Segment.MaxSegments, _ = f.GetInt("max-segments")
	}
	if f.Changed("percentile") {
		cfg.Segment.Percentile, _ = f.GetFloat64("percentile")
	}
	if f.Changed("stride") {
		cfg.Signal.Stride, _ = f.GetInt("stride")
	}
	if f.Changed("gap") {
		cfg.Segment.GapTolerance, _ = f.GetInt("gap")
	}
	if f.Changed("seed") {
		cfg.Segment.Seed, _ = f.GetUint64("seed")
	}
}
