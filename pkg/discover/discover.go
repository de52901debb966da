// Package discover expands command-line paths into the Python files to check.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/src-d/enry/v2"
)

// StdinPath names standard input on the command line.
const StdinPath = "-"

const (
	languagePython = "Python"
	// sniffLen is how much of an extension-less file is read for detection.
	sniffLen = 512
)

// pythonExtensions are accepted without content sniffing.
var pythonExtensions = []string{".py", ".pyi"} //nolint:gochecknoglobals // Read-only table.

// ErrInvalidPattern is returned for malformed exclude globs.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// Options controls discovery.
type Options struct {
	// Logger receives skip notices. Nil uses [slog.Default].
	Logger *slog.Logger
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the walked root and against base names.
	Exclude []string
	// MaxFileSize skips larger files. Zero disables the limit.
	MaxFileSize int64
	// IncludeHidden walks dot directories and dot files.
	IncludeHidden bool
}

// File is one discovered input.
type File struct {
	Path  string
	Size  int64
	Stdin bool
}

// Discover walks roots and returns the Python files below them, sorted by
// path. Files named explicitly are kept even without a Python extension;
// directory contents are filtered by extension or content detection.
func Discover(ctx context.Context, roots []string, opts Options) ([]File, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, pattern := range opts.Exclude {
		_, matchErr := filepath.Match(pattern, "")
		if matchErr != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, matchErr)
		}
	}

	walker := &walker{opts: opts, logger: logger, seen: make(map[string]bool)}

	for _, root := range roots {
		err := ctx.Err()
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}

		if root == StdinPath {
			walker.add(File{Path: StdinPath, Stdin: true})

			continue
		}

		err = walker.root(ctx, root)
		if err != nil {
			return nil, err
		}
	}

	slices.SortFunc(walker.files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })

	return walker.files, nil
}

type walker struct {
	opts   Options
	logger *slog.Logger
	seen   map[string]bool
	files  []File
}

func (w *walker) add(file File) {
	if w.seen[file.Path] {
		return
	}

	w.seen[file.Path] = true
	w.files = append(w.files, file)
}

func (w *walker) root(ctx context.Context, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("discover %s: %w", root, err)
	}

	if !info.IsDir() {
		if w.sizeOK(root, info.Size()) {
			w.add(File{Path: filepath.Clean(root), Size: info.Size()})
		}

		return nil
	}

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, entryErr error) error {
		if entryErr != nil {
			return entryErr
		}

		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if w.skipDir(rel, entry.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() || w.skipFile(rel, entry.Name()) {
			return nil
		}

		fileInfo, infoErr := entry.Info()
		if infoErr != nil {
			return infoErr
		}

		if !isPython(path) || !w.sizeOK(path, fileInfo.Size()) {
			return nil
		}

		w.add(File{Path: path, Size: fileInfo.Size()})

		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("discover %s: %w", root, walkErr)
	}

	return nil
}

func (w *walker) skipDir(rel, name string) bool {
	if !w.opts.IncludeHidden && enry.IsDotFile(name) {
		return true
	}

	return enry.IsVendor(rel+"/") || w.excluded(rel, name)
}

func (w *walker) skipFile(rel, name string) bool {
	if !w.opts.IncludeHidden && enry.IsDotFile(name) {
		return true
	}

	return w.excluded(rel, name)
}

func (w *walker) excluded(rel, name string) bool {
	for _, pattern := range w.opts.Exclude {
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}

		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}

	return false
}

func (w *walker) sizeOK(path string, size int64) bool {
	if w.opts.MaxFileSize <= 0 || size <= w.opts.MaxFileSize {
		return true
	}

	w.logger.Warn("skipping large file",
		slog.String("file.path", path),
		slog.String("file.size", humanize.IBytes(uint64(size))), //nolint:gosec // sizes are non-negative
		slog.Int64("file.limit", w.opts.MaxFileSize),
	)

	return false
}

// isPython accepts Python extensions and sniffs extension-less scripts.
func isPython(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if slices.Contains(pythonExtensions, ext) {
		return true
	}

	if ext != "" {
		return false
	}

	head, err := readHead(path)
	if err != nil || len(head) == 0 {
		return false
	}

	return enry.GetLanguage(filepath.Base(path), head) == languagePython
}

func readHead(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	buf := make([]byte, sniffLen)

	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return buf[:n], nil
}
