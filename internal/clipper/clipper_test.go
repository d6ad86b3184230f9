package clipper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/forPelevin/sportsight/internal/ports"
	"github.com/forPelevin/sportsight/internal/results"
	"github.com/forPelevin/sportsight/internal/types"
)

type fakeCutter struct {
	calls   []string
	failOn  map[int]error
	// partial writes some bytes before failing
	partial map[int]bool
	onCall  func(n int)
}

func (f *fakeCutter) CopyClip(_ context.Context, _ string, _, _ float64, out string) error {
	f.calls = append(f.calls, out)
	n := len(f.calls)
	if f.onCall != nil {
		f.onCall(n)
	}
	if err := f.failOn[n]; err != nil {
		if f.partial[n] {
			_ = os.WriteFile(out, []byte("truncated mp4 moov missing"), 0o644)
		}
		return err
	}
	return os.WriteFile(out, []byte("clip"), 0o644)
}

func TestExtract_PerItemIsolation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "clips")
	cut := &fakeCutter{}
	core, logs := observer.New(zap.InfoLevel)
	e := New(cut, dir, zap.New(core))

	segs := []types.TimeSegment{
		{StartSec: 0, EndSec: 10},
		{StartSec: 20, EndSec: 15},
		{StartSec: 30, EndSec: 42},
	}
	res, err := e.Extract(context.Background(), "in.mp4", segs)
	require.NoError(t, err)
	require.Len(t, res, 3)

	produced := 0
	for i, r := range res {
		assert.Equal(t, i+1, r.Index)
		assert.Equal(t, segs[i], r.Segment)
		if r.Produced {
			produced++
			assert.FileExists(t, r.Path)
		}
	}
	assert.Equal(t, 2, produced)
	assert.False(t, res[1].Produced)
	require.Error(t, res[1].Err)

	// the invalid range never reaches ffmpeg
	assert.Equal(t, []string{
		filepath.Join(dir, "clip_1.mp4"),
		filepath.Join(dir, "clip_3.mp4"),
	}, cut.calls)
	assert.Equal(t, 1, logs.FilterMessage("clip failed").Len())
}

func TestExtract_CutterFailureContinues(t *testing.T) {
	cut := &fakeCutter{failOn: map[int]error{1: errors.New("codec error")}}
	e := New(cut, t.TempDir(), nil)

	res, err := e.Extract(context.Background(), "in.mp4", []types.TimeSegment{
		{StartSec: 0, EndSec: 10},
		{StartSec: 10, EndSec: 20},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.False(t, res[0].Produced)
	assert.EqualError(t, res[0].Err, "codec error")
	assert.True(t, res[1].Produced)
}

func TestExtract_RemovesPartialOutput(t *testing.T) {
	clipsDir := t.TempDir()
	cut := &fakeCutter{
		failOn:  map[int]error{1: errors.New("exit status 1")},
		partial: map[int]bool{1: true},
	}
	res, err := New(cut, clipsDir, nil).Extract(context.Background(), "in.mp4", []types.TimeSegment{
		{StartSec: 0, EndSec: 10},
		{StartSec: 10, EndSec: 20},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.False(t, res[0].Produced)
	assert.NoFileExists(t, res[0].Path)

	items, err := results.List(clipsDir, t.TempDir(), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Index)
}

func TestExtract_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cut := &fakeCutter{onCall: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	e := New(cut, t.TempDir(), nil)

	res, err := e.Extract(ctx, "in.mp4", []types.TimeSegment{
		{StartSec: 0, EndSec: 10},
		{StartSec: 10, EndSec: 20},
		{StartSec: 20, EndSec: 30},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res, 1)
	assert.Len(t, cut.calls, 1)
}

func TestExtract_Empty(t *testing.T) {
	res, err := New(&fakeCutter{}, t.TempDir(), nil).Extract(context.Background(), "in.mp4", nil)
	require.NoError(t, err)
	assert.Empty(t, res)
}

var _ ports.ClipExtractor = (*Extractor)(nil)
