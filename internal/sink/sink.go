// Package sink publishes pipeline artifacts. Every write goes to a temporary
// file in the destination directory, is fsynced, and is renamed over the
// target, so readers see either the previous artifact or the complete new
// one. Writers of the same path are serialized by an advisory lock on
// "<path>.lock".
//
// A Batch stages several artifacts and publishes them together: nothing is
// renamed until every artifact has been written, and a failed commit restores
// the targets it already replaced.
package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"carprep/internal/table"
	"carprep/pkg/records"
)

// WriteCSV publishes t as CSV with the given column order (header first).
// Missing values are written as empty cells and floats in their shortest
// round-trip form, so identical tables produce identical bytes.
func WriteCSV(ctx context.Context, path string, t *table.Table, columns []string) error {
	var b Batch
	if err := b.CSV(ctx, path, t, columns); err != nil {
		return err
	}
	return b.Commit()
}

// WriteJSON publishes v as indented JSON followed by a newline.
func WriteJSON(ctx context.Context, path string, v any) error {
	var b Batch
	if err := b.JSON(ctx, path, v); err != nil {
		return err
	}
	return b.Commit()
}

// Batch is a set of staged artifacts. The zero value is ready to use. A
// Batch is not safe for concurrent use.
type Batch struct {
	staged []staged
}

type staged struct {
	path, tmp string
}

// CSV stages t as CSV for path. On error every staged file is discarded.
func (b *Batch) CSV(ctx context.Context, path string, t *table.Table, columns []string) error {
	return b.stage(ctx, path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(columns); err != nil {
			return err
		}
		line := make([]string, len(columns))
		for i, r := range t.Rows() {
			if i%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			for j, c := range columns {
				line[j] = records.Format(r[c])
			}
			if err := cw.Write(line); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// JSON stages v as indented JSON for path. On error every staged file is
// discarded.
func (b *Batch) JSON(ctx context.Context, path string, v any) error {
	return b.stage(ctx, path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// Abort removes every staged file.
func (b *Batch) Abort() {
	for _, s := range b.staged {
		_ = os.Remove(s.tmp)
	}
	b.staged = nil
}

// Commit publishes every staged artifact under the targets' locks. If any
// rename fails, targets already replaced get their previous content back
// (or are removed when they did not exist) and the error is returned.
func (b *Batch) Commit() (err error) {
	defer b.Abort()

	paths := make([]string, 0, len(b.staged))
	for _, s := range b.staged {
		paths = append(paths, s.path)
	}
	sort.Strings(paths)
	for i, p := range paths {
		if i > 0 && paths[i-1] == p {
			continue
		}
		unlock, err := lockPath(p + ".lock")
		if err != nil {
			return fmt.Errorf("sink: lock %s: %w", p, err)
		}
		defer unlock()
	}

	for _, s := range b.staged {
		if fi, err := os.Lstat(s.path); err == nil && fi.IsDir() {
			return fmt.Errorf("sink: publish %s: target is a directory", s.path)
		}
	}

	type replaced struct {
		path, backup string
	}
	var done []replaced
	defer func() {
		if err == nil {
			for _, r := range done {
				if r.backup != "" {
					_ = os.Remove(r.backup)
				}
			}
			return
		}
		for i := len(done) - 1; i >= 0; i-- {
			r := done[i]
			if r.backup == "" {
				_ = os.Remove(r.path)
				continue
			}
			_ = os.Rename(r.backup, r.path)
		}
	}()

	for _, s := range b.staged {
		r := replaced{path: s.path}
		if _, serr := os.Lstat(s.path); serr == nil {
			r.backup = s.tmp + ".prev"
			if err = os.Link(s.path, r.backup); err != nil {
				return fmt.Errorf("sink: back up %s: %w", s.path, err)
			}
		} else if !errors.Is(serr, fs.ErrNotExist) {
			return fmt.Errorf("sink: stat %s: %w", s.path, serr)
		}
		if err = os.Rename(s.tmp, s.path); err != nil {
			if r.backup != "" {
				_ = os.Remove(r.backup)
			}
			return fmt.Errorf("sink: rename %s: %w", s.path, err)
		}
		done = append(done, r)
	}
	return nil
}

func (b *Batch) stage(ctx context.Context, path string, write func(io.Writer) error) (err error) {
	defer func() {
		if err != nil {
			b.Abort()
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sink: mkdir %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("sink: create temp: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriterSize(f, 64*1024)
	if err = write(bw); err != nil {
		return fmt.Errorf("sink: write %s: %w", path, err)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("sink: flush %s: %w", path, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sink: fsync %s: %w", path, err)
	}
	if err = f.Chmod(0o644); err != nil {
		return fmt.Errorf("sink: chmod %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("sink: close %s: %w", path, err)
	}
	b.staged = append(b.staged, staged{path: path, tmp: tmp})
	return nil
}
