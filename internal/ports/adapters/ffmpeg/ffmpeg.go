package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/forPelevin/sportsight/internal/ports"
	"github.com/forPelevin/sportsight/internal/types"
)

const (
	defaultWidth  = 320
	defaultHeight = 180
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// OpenGrayFrames starts a decoder that emits every opts.Stride-th frame as a
// downscaled, blurred 8-bit gray image.
func (a *Adapter) OpenGrayFrames(ctx context.Context, path string, opts ports.DecodeOptions) (ports.FrameSource, error) {
	if st, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrSourceUnreadable, err)
	} else if st.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ports.ErrSourceUnreadable, path)
	}
	if opts.Stride < 1 {
		opts.Stride = 1
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = defaultWidth, defaultHeight
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-nostdin",
		"-v", "error",
		"-i", path,
		"-an", "-sn",
		"-vf", buildFilter(opts),
		"-vsync", "0",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-",
	)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ports.ErrSourceUnreadable, err)
	}

	return &grayFrames{
		ctx:    ctx,
		cmd:    cmd,
		cancel: cancel,
		out:    bufio.NewReaderSize(stdout, 1<<20),
		stderr: stderr,
		buf:    make([]byte, opts.Width*opts.Height),
		stride: opts.Stride,
	}, nil
}

func buildFilter(opts ports.DecodeOptions) string {
	var parts []string
	if opts.Stride > 1 {
		parts = append(parts, fmt.Sprintf("select=not(mod(n\\,%d))", opts.Stride))
	}
	parts = append(parts,
		fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height),
		"format=gray",
	)
	if opts.BlurSigma > 0 {
		parts = append(parts, "gblur=sigma="+strconv.FormatFloat(opts.BlurSigma, 'f', 2, 64))
	}
	return strings.Join(parts, ",")
}

// grayFrames reads fixed-size raw frames from a running ffmpeg process. The
// returned Pix slice is reused and only valid until the next call.
type grayFrames struct {
	ctx    context.Context
	cmd    *exec.Cmd
	cancel context.CancelFunc
	out    *bufio.Reader
	stderr *bytes.Buffer
	buf    []byte
	stride int
	n      int

	finished bool
	err      error
}

func (g *grayFrames) Next() (ports.GrayFrame, error) {
	if g.finished {
		if g.err != nil {
			return ports.GrayFrame{}, g.err
		}
		return ports.GrayFrame{}, io.EOF
	}
	_, err := io.ReadFull(g.out, g.buf)
	if err == nil {
		f := ports.GrayFrame{Index: g.n * g.stride, Pix: g.buf}
		g.n++
		return f, nil
	}
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		g.finish()
		return ports.GrayFrame{}, fmt.Errorf("read frame: %w", err)
	}

	g.finish()
	if g.err != nil {
		return ports.GrayFrame{}, g.err
	}
	return ports.GrayFrame{}, io.EOF
}

func (g *grayFrames) finish() {
	if g.finished {
		return
	}
	g.finished = true
	werr := g.cmd.Wait()
	g.cancel()
	if werr == nil {
		return
	}
	if err := g.ctx.Err(); err != nil {
		g.err = fmt.Errorf("ffmpeg decode: %w", err)
		return
	}
	msg := strings.TrimSpace(g.stderr.String())
	if g.n == 0 {
		g.err = fmt.Errorf("%w: ffmpeg decode: %v\n%s", ports.ErrSourceUnreadable, werr, msg)
		return
	}
	g.err = fmt.Errorf("ffmpeg decode after %d frames: %w\n%s", g.n, werr, msg)
}

func (g *grayFrames) Close() error {
	if g.finished {
		return nil
	}
	g.finished = true
	g.cancel()
	_ = g.cmd.Wait()
	return nil
}

func (a *Adapter) ProbeVideo(ctx context.Context, path string) (types.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,r_frame_rate,nb_frames,duration:format=duration",
		"-of", "json",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("%w: ffprobe: %v\n%s", ports.ErrSourceUnreadable, err, string(b))
	}
	return parseProbe(b)
}

type probeResult struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(b []byte) (types.VideoInfo, error) {
	var pr probeResult
	if err := json.Unmarshal(b, &pr); err != nil {
		return types.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(pr.Streams) == 0 {
		return types.VideoInfo{}, fmt.Errorf("%w: no video stream", ports.ErrSourceUnreadable)
	}
	s := pr.Streams[0]

	info := types.VideoInfo{Width: s.Width, Height: s.Height}
	info.FPS = parseRate(s.AvgFrameRate)
	if info.FPS <= 0 {
		info.FPS = parseRate(s.RFrameRate)
	}
	info.Duration = parseFloat(pr.Format.Duration)
	if info.Duration <= 0 {
		info.Duration = parseFloat(s.Duration)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s.NbFrames)); err == nil && n > 0 {
		info.FrameCount = n
	} else if info.FPS > 0 && info.Duration > 0 {
		info.FrameCount = int(info.Duration*info.FPS + 0.5)
	}
	if info.FPS <= 0 {
		return info, fmt.Errorf("ffprobe: no usable frame rate (avg=%q r=%q)", s.AvgFrameRate, s.RFrameRate)
	}
	return info, nil
}

// parseRate parses ffprobe rationals such as "30000/1001" or "25".
func parseRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	n, d := parseFloat(num), parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// CopyClip trims [startSec, endSec] out of in without re-encoding.
func (a *Adapter) CopyClip(ctx context.Context, in string, startSec, endSec float64, out string) error {
	if endSec <= startSec {
		return fmt.Errorf("invalid clip range %s..%s", fmtSeconds(startSec), fmtSeconds(endSec))
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-nostdin",
		"-v", "error",
		"-ss", fmtSeconds(startSec),
		"-to", fmtSeconds(endSec),
		"-i", in,
		"-c", "copy",
		"-avoid_negative_ts", "1",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg copy clip: %w\n%s", err, string(b))
	}
	st, err := os.Stat(out)
	if err != nil {
		return fmt.Errorf("ffmpeg copy clip: %w", err)
	}
	if st.Size() == 0 {
		return fmt.Errorf("ffmpeg copy clip: empty output %s", out)
	}
	return nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
