package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// List returns a Local for every regular file in dir whose name matches
// pattern, sorted by source identity so that runs see sources in a stable
// order. An empty pattern matches "*.csv".
func List(dir, pattern string) ([]*Local, error) {
	if pattern == "" {
		pattern = "*.csv"
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []*Local
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, e.Name())
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if ok {
			out = append(out, NewLocal(filepath.Join(dir, e.Name())))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := out[i].Identity(), out[j].Identity(); a != b {
			return a < b
		}
		return out[i].path < out[j].path
	})
	return out, nil
}
