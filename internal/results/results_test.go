package results

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestList_JoinsByNumericIndex(t *testing.T) {
	tmp := t.TempDir()
	clips, caps := filepath.Join(tmp, "clips"), filepath.Join(tmp, "captions")

	write(t, filepath.Join(clips, "clip_1.mp4"), "a")
	write(t, filepath.Join(clips, "clip_10.mp4"), "bbb")
	write(t, filepath.Join(clips, "clip_2.mp4"), "cc")
	write(t, filepath.Join(clips, "notes.txt"), "ignored")
	write(t, filepath.Join(caps, "clip_1.txt"), "Goal!\n")
	write(t, filepath.Join(caps, "clip_2.txt"), "Save!\n")
	write(t, filepath.Join(caps, "clip_3.txt"), "(Failed to generate commentary)\n")
	write(t, filepath.Join(caps, "clip_10.txt"), "Header!\n")

	items, err := List(clips, caps, func(name string) string { return "/clips/" + name })
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, []int{1, 2, 3, 10}, []int{items[0].Index, items[1].Index, items[2].Index, items[3].Index})
	assert.Equal(t, Item{Index: 1, ClipURL: "/clips/clip_1.mp4", Caption: "Goal!", Produced: true, ClipPath: filepath.Join(clips, "clip_1.mp4"), Size: 1}, items[0])

	missing := items[2]
	assert.False(t, missing.Produced)
	assert.Empty(t, missing.ClipURL)
	assert.Equal(t, "(Failed to generate commentary)", missing.Caption)

	assert.Equal(t, int64(3), items[3].Size)
}

func TestList_EmptyClipIsNotProduced(t *testing.T) {
	tmp := t.TempDir()
	write(t, filepath.Join(tmp, "clips", "clip_1.mp4"), "")

	items, err := List(filepath.Join(tmp, "clips"), filepath.Join(tmp, "captions"), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Produced)
	assert.Empty(t, items[0].Caption)
}

func TestList_MissingDirs(t *testing.T) {
	items, err := List(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
