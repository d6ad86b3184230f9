// Package results joins clip files and caption files from the last run by
// their shared index.
package results

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type Item struct {
	Index    int    `json:"index"`
	ClipURL  string `json:"clip_url"`
	Caption  string `json:"caption"`
	Produced bool   `json:"produced"`
	// ClipPath and Size describe the clip on disk; empty when not produced.
	ClipPath string `json:"-"`
	Size     int64  `json:"size_bytes"`
}

var nameRE = regexp.MustCompile(`^clip_(\d+)\.(mp4|txt)$`)

// List returns one item per index that has a clip, a caption, or both, in
// numeric index order. clipURL maps a clip file name to its public reference;
// nil leaves ClipURL empty. Missing directories yield no items.
func List(clipsDir, captionsDir string, clipURL func(name string) string) ([]Item, error) {
	clips, err := scan(clipsDir, "mp4")
	if err != nil {
		return nil, err
	}
	caps, err := scan(captionsDir, "txt")
	if err != nil {
		return nil, err
	}

	indices := lo.Uniq(append(lo.Keys(clips), lo.Keys(caps)...))
	sort.Ints(indices)

	out := make([]Item, 0, len(indices))
	for _, idx := range indices {
		it := Item{Index: idx}
		if name, ok := clips[idx]; ok {
			p := filepath.Join(clipsDir, name)
			if st, err := os.Stat(p); err == nil && st.Size() > 0 {
				it.Produced = true
				it.ClipPath = p
				it.Size = st.Size()
				if clipURL != nil {
					it.ClipURL = clipURL(name)
				}
			}
		}
		if name, ok := caps[idx]; ok {
			b, err := os.ReadFile(filepath.Join(captionsDir, name))
			if err != nil {
				return nil, fmt.Errorf("read caption %s: %w", name, err)
			}
			it.Caption = strings.TrimSpace(string(b))
		}
		out = append(out, it)
	}
	return out, nil
}

func scan(dir, ext string) (map[int]string, error) {
	ents, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return map[int]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make(map[int]string, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		m := nameRE.FindStringSubmatch(e.Name())
		if m == nil || m[2] != ext {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 {
			continue
		}
		out[idx] = e.Name()
	}
	return out, nil
}
