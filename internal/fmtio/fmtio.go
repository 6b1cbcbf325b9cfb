// Package fmtio provides file and directory formatting for source files: reading from an
// io.Reader, rewriting a single file in place, and walking a directory tree concurrently.
package fmtio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/elinlund/ncx/format"
)

const ext = ".nix"

// Reader formats source from r and writes the result to w.
func Reader(r io.Reader, w io.Writer) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading input: %v", err)
	}
	out, err := format.ReformatString(string(src))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// File formats a single file in place, renamed atomically so a crash mid-write never leaves a
// truncated file behind. It reports whether the file's contents changed.
func File(path string) (changed bool, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to open file: %v", err)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("error reading file: %v", err)
	}

	out, err := format.ReformatString(string(src))
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if out == string(src) {
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file for atomic rename: %v", err)
	}

	var success bool
	tmpPath := tmp.Name()
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if perm := fi.Mode().Perm(); perm != 0o600 {
		if err := tmp.Chmod(perm); err != nil {
			_ = tmp.Close()
			return false, fmt.Errorf("failed to set file mode: %v", err)
		}
	}

	if _, err := io.WriteString(tmp, out); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("failed to close temp file: %v", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return false, fmt.Errorf("failed to rename temp file: %v", err)
	}

	success = true
	return true, nil
}

// Changed reports whether reformatting path would change its contents, without writing anything.
func Changed(path string) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("error reading file: %v", err)
	}
	out, err := format.ReformatString(string(src))
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return out != string(src), nil
}

// FileResult reports the outcome of formatting one file found by Dir.
type FileResult struct {
	Path    string
	Changed bool
	Err     error
}

// Dir walks root concurrently, applying fn to every *.nix file not excluded by a .nixfmtignore,
// and returns one result per visited file plus any error from the walk itself (a directory that
// could not be read, for instance). Each file gets its own goroutine, and a semaphore lets at most
// runtime.NumCPU of them format at once; ctx lets a caller cancel an in-flight walk early, which is why every worker checks
// ctx.Err() before starting the next file instead of only the before the loop.
func Dir(ctx context.Context, root string, fn func(path string) (bool, error)) ([]FileResult, error) {
	ignore, err := loadIgnore(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	if err := fs.WalkDir(os.DirFS(root), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if ignore.match(path) {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) != ext {
			return nil
		}
		if ignore.match(path) {
			return nil
		}
		paths = append(paths, filepath.Join(root, path))
		return nil
	}); err != nil {
		return nil, err
	}

	concurrency := runtime.NumCPU()
	if concurrency > len(paths) {
		concurrency = len(paths)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]FileResult, len(paths))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				results[i] = FileResult{Path: path, Err: ctx.Err()}
				return
			}

			changed, err := fn(path)
			results[i] = FileResult{Path: path, Changed: changed, Err: err}
		}(i, path)
	}
	wg.Wait()

	return results, nil
}

// ignoreList is a set of gitignore-style glob patterns read from a .nixfmtignore file, matched
// against slash-separated paths relative to the walked root.
type ignoreList struct {
	patterns []string
}

func loadIgnore(root string) (ignoreList, error) {
	data, err := os.ReadFile(filepath.Join(root, ".nixfmtignore"))
	if errors.Is(err, os.ErrNotExist) {
		return ignoreList{}, nil
	}
	if err != nil {
		return ignoreList{}, fmt.Errorf("reading .nixfmtignore: %w", err)
	}

	var patterns []string
	for _, line := range bytes.Split(data, []byte("\n")) {
		p := string(bytes.TrimSpace(line))
		if p == "" || p[0] == '#' {
			continue
		}
		patterns = append(patterns, p)
	}
	return ignoreList{patterns: patterns}, nil
}

func (l ignoreList) match(path string) bool {
	path = filepath.ToSlash(path)
	for _, p := range l.patterns {
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
		if ok, _ := filepath.Match(p, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}
