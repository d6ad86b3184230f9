//go:build integration

package itest

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"testing"
)

func probeDurationSeconds(mp4Path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mp4Path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

// makeMatchVideo renders a 40s clip at 10 fps: a static box on black that
// only moves during [10s,13s] and [25s,27s].
func makeMatchVideo(t *testing.T, path string) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	x := "if(between(t,10,13)+between(t,25,27),mod(t*240,260),0)"
	ff := exec.Command("ffmpeg",
		"-y", "-v", "error",
		"-f", "lavfi", "-i", "color=c=black:s=320x240:d=40:r=10",
		"-f", "lavfi", "-i", "color=c=white:s=60x60:d=40:r=10",
		"-filter_complex", "[0][1]overlay=x='"+x+"':y=90:shortest=1",
		"-c:v", "libx264",
		"-g", "10",
		"-pix_fmt", "yuv420p",
		path,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
}
