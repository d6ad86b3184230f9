package types

// ScoredFrame is the change score of one sampled frame relative to the
// previous sampled frame. Score is a percentage of changed pixels (0..100).
type ScoredFrame struct {
	FrameIndex int     `json:"frame_index"`
	Score      float64 `json:"score"`
}

// FrameSegment is a contiguous run of selected frame indices, inclusive.
type FrameSegment struct {
	StartFrame int `json:"start_frame"`
	EndFrame   int `json:"end_frame"`
}

type TimeSegment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

func (s TimeSegment) Duration() float64 { return s.EndSec - s.StartSec }

// ClipResult reports one requested highlight clip. Index is 1-based and shared
// with the caption produced for the same segment.
type ClipResult struct {
	Index    int
	Segment  TimeSegment
	Path     string
	Produced bool
	Err      error
}

// CaptionResult is the outcome of one caption request. Text is always set:
// on backend failure it holds the failure text and Err carries the reason.
type CaptionResult struct {
	Text    string
	Backend string
	Err     error
}

type Caption struct {
	Index int
	Text  string
}

// VideoInfo is the subset of container metadata the pipeline needs.
type VideoInfo struct {
	FPS        float64
	FrameCount int
	Duration   float64
	Width      int
	Height     int
}

type Manifest struct {
	RunID       string         `json:"run_id"`
	Input       string         `json:"input"`
	FPS         float64        `json:"fps"`
	FrameCount  int            `json:"frame_count"`
	DurationSec float64        `json:"duration_sec"`
	ScoredCount int            `json:"scored_frames"`
	Threshold   float64        `json:"threshold"`
	Groups      int            `json:"groups"`
	Clips       []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	Index          int     `json:"index"`
	StartSec       float64 `json:"start_sec"`
	EndSec         float64 `json:"end_sec"`
	StartFrame     int     `json:"start_frame"`
	EndFrame       int     `json:"end_frame"`
	File           string  `json:"file"`
	Produced       bool    `json:"produced"`
	Error          string  `json:"error,omitempty"`
	Caption        string  `json:"caption"`
	CaptionFile    string  `json:"caption_file"`
	CaptionBackend string  `json:"caption_backend"`
	CaptionError   string  `json:"caption_error,omitempty"`
}
