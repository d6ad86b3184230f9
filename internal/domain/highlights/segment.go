package highlights

import (
	"math"
	"sort"

	"github.com/forPelevin/sportsight/internal/types"
)

type Params struct {
	// Percentile (0..100) of distinct scores used as the selection cutoff.
	Percentile float64
	// GapTolerance is the largest frame-index distance between two selected
	// frames that still keeps them in the same segment.
	GapTolerance int
	MaxSegments  int
	// MinClipSec and MaxClipSec bound the randomly drawn clip duration.
	MinClipSec float64
	MaxClipSec float64
}

func DefaultParams() Params {
	return Params{
		Percentile:   85,
		GapTolerance: 30,
		MaxSegments:  5,
		MinClipSec:   10,
		MaxClipSec:   15,
	}
}

// Rand is the source of clip-duration draws. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

type Result struct {
	Threshold float64
	// Groups is the number of segments before capping.
	Groups int
	// Frames and Times are index-aligned and in chronological order.
	Frames []types.FrameSegment
	Times  []types.TimeSegment
}

type Segmenter struct {
	p   Params
	rnd Rand
}

func NewSegmenter(p Params, rnd Rand) *Segmenter {
	def := DefaultParams()
	if p.MaxSegments < 1 {
		p.MaxSegments = def.MaxSegments
	}
	if p.GapTolerance < 0 {
		p.GapTolerance = 0
	}
	if p.MinClipSec <= 0 || p.MaxClipSec < p.MinClipSec {
		p.MinClipSec, p.MaxClipSec = def.MinClipSec, def.MaxClipSec
	}
	return &Segmenter{p: p, rnd: rnd}
}

// Segment thresholds the scores, groups qualifying frames, keeps the first
// MaxSegments groups in temporal order and turns each into a clip window
// centered on the group midpoint. videoSec clamps clip ends when > 0.
func (s *Segmenter) Segment(frames []types.ScoredFrame, fps, videoSec float64) Result {
	if len(frames) == 0 || fps <= 0 {
		return Result{}
	}

	scores := make([]float64, len(frames))
	for i, f := range frames {
		scores[i] = f.Score
	}
	thr := Percentile(scores, s.p.Percentile)

	groups := Group(SelectAbove(frames, thr), s.p.GapTolerance)
	res := Result{Threshold: thr, Groups: len(groups)}
	if len(groups) > s.p.MaxSegments {
		groups = groups[:s.p.MaxSegments]
	}

	res.Frames = groups
	res.Times = make([]types.TimeSegment, 0, len(groups))
	floor := 0.0
	for _, g := range groups {
		ts := s.window(g, fps, videoSec, floor)
		res.Times = append(res.Times, ts)
		floor = ts.StartSec
	}
	return res
}

// window never starts before floor, so consecutive windows keep
// non-decreasing starts even when a later draw is longer.
func (s *Segmenter) window(g types.FrameSegment, fps, videoSec, floor float64) types.TimeSegment {
	center := float64(g.StartFrame+g.EndFrame) / 2 / fps
	dur := s.p.MinClipSec
	if span := s.p.MaxClipSec - s.p.MinClipSec; span > 0 && s.rnd != nil {
		dur += s.rnd.Float64() * span
	}

	start := math.Max(floor, center-dur/2)
	end := center + dur/2
	if videoSec > 0 && end > videoSec && videoSec > start {
		end = videoSec
	}
	return types.TimeSegment{StartSec: start, EndSec: end}
}

// Percentile returns the p-th percentile (0..100) of the distinct values in
// scores using linear interpolation between closest ranks. Collapsing repeats
// keeps the cutoff between score levels when many frames share one value.
func Percentile(scores []float64, p float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	vals := make([]float64, len(scores))
	copy(vals, scores)
	sort.Float64s(vals)

	distinct := vals[:1]
	for _, v := range vals[1:] {
		if v != distinct[len(distinct)-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) == 1 {
		return distinct[0]
	}

	p = math.Min(math.Max(p, 0), 100)
	rank := p / 100 * float64(len(distinct)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return distinct[lo] + (distinct[hi]-distinct[lo])*(rank-float64(lo))
}

// SelectAbove returns the frame indices whose score strictly exceeds thr, in
// input order.
func SelectAbove(frames []types.ScoredFrame, thr float64) []int {
	var out []int
	for _, f := range frames {
		if f.Score > thr {
			out = append(out, f.FrameIndex)
		}
	}
	return out
}

// Group merges ascending frame indices into segments, starting a new one
// whenever the distance to the previous index exceeds gap.
func Group(indices []int, gap int) []types.FrameSegment {
	var out []types.FrameSegment
	for _, idx := range indices {
		if n := len(out); n > 0 && idx-out[n-1].EndFrame <= gap {
			out[n-1].EndFrame = idx
			continue
		}
		out = append(out, types.FrameSegment{StartFrame: idx, EndFrame: idx})
	}
	return out
}
