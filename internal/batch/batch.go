// Package batch converts every EPUB under a directory tree in parallel.
package batch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuanying/epub2md/internal/converter"
)

// ErrNoEPUBFiles is returned when discovery finds nothing to convert.
var ErrNoEPUBFiles = errors.New("no EPUB files found in directory")

// OutputSuffix is appended to a book's file stem to name its output directory.
const OutputSuffix = "_markdown"

// ExtensionMatcher decides which files count as EPUBs.
type ExtensionMatcher struct {
	IgnoreCase bool // accept .EPUB, .Epub, ...
}

// Match reports whether name has the epub extension.
func (m ExtensionMatcher) Match(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if m.IgnoreCase {
		return strings.EqualFold(ext, "epub")
	}
	return ext == "epub"
}

// Discover walks root recursively and returns every regular file the
// matcher accepts, in lexical walk order. Unreadable entries below root are
// logged and skipped; only a root that cannot be walked is an error.
func Discover(root string, matcher ExtensionMatcher, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			logger.Warn("skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && matcher.Match(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEPUBFiles, root)
	}
	return files, nil
}

// OutputDirFor returns where the book at file is written. With a base the
// directory structure below root is mirrored under it; without one the
// output sits next to the book.
func OutputDirFor(root, file, base string) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if base == "" {
		return filepath.Join(filepath.Dir(file), stem+OutputSuffix)
	}

	relDir := "."
	if rel, err := filepath.Rel(root, filepath.Dir(file)); err == nil && !strings.HasPrefix(rel, "..") {
		relDir = rel
	}
	return filepath.Join(base, relDir, stem+OutputSuffix)
}

// Options configures a batch run.
type Options struct {
	OutputBase       string // mirror outputs under this directory; empty writes next to each book
	SingleFile       bool
	MinChapterLength int
	Workers          int // zero means runtime.NumCPU()
	Matcher          ExtensionMatcher

	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome for one book.
type Result struct {
	Path      string
	OutputDir string
	Err       error
	Duration  time.Duration
}

// Summary aggregates a batch run. Results are in discovery order.
type Summary struct {
	Succeeded int
	Failed    int
	Results   []Result
}

// Runner converts directories of EPUB files.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// NewRunner creates a Runner, filling in defaults for unset options.
func NewRunner(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	opts.Stdout = &lockedWriter{w: opts.Stdout}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{opts: opts, logger: logger}
}

// Run converts every EPUB under root. One book failing never stops the
// others. The returned error is non-nil when discovery fails or when any
// book failed; the Summary is complete in the latter case.
func (r *Runner) Run(root string) (Summary, error) {
	files, err := Discover(root, r.opts.Matcher, r.logger)
	if err != nil {
		return Summary{}, err
	}

	fmt.Fprintf(r.opts.Stdout, "Found %d EPUB file(s) in %s\n", len(files), root)
	fmt.Fprintf(r.opts.Stdout, "Processing in parallel...\n\n")

	results := make([]Result, len(files))
	owners := make(map[string]string, len(files))
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, file := range files {
		// a.epub and a.EPUB map to the same directory under --ignore-case
		outDir := OutputDirFor(root, file, r.opts.OutputBase)
		if owner, taken := owners[outDir]; taken {
			results[i] = Result{
				Path:      file,
				OutputDir: outDir,
				Err:       fmt.Errorf("output directory %s is already used by %s", outDir, owner),
			}
			continue
		}
		owners[outDir] = file

		g.Go(func() error {
			results[i] = r.convert(root, file)
			return nil
		})
	}
	g.Wait()

	summary := Summary{Results: results}
	for _, res := range results {
		if res.Err != nil {
			summary.Failed++
			fmt.Fprintf(r.opts.Stderr, "Failed to process %s: %v\n", res.Path, res.Err)
			continue
		}
		summary.Succeeded++
	}

	fmt.Fprintf(r.opts.Stdout, "\n--- Summary ---\n")
	fmt.Fprintf(r.opts.Stdout, "Successfully processed: %d\n", summary.Succeeded)
	if summary.Failed > 0 {
		fmt.Fprintf(r.opts.Stdout, "Failed: %d\n", summary.Failed)
		return summary, fmt.Errorf("%d EPUB file(s) failed to process", summary.Failed)
	}
	return summary, nil
}

// convert runs one book through its own pipeline.
func (r *Runner) convert(root, file string) Result {
	start := time.Now()
	outDir := OutputDirFor(root, file, r.opts.OutputBase)

	p := converter.NewPipeline(converter.ConvertOptions{
		InputPath:        file,
		OutputDir:        outDir,
		SingleFile:       r.opts.SingleFile,
		MinChapterLength: r.opts.MinChapterLength,
		Logger:           r.logger,
		Stdout:           r.opts.Stdout,
	})
	err := p.Convert()

	res := Result{Path: file, OutputDir: outDir, Err: err, Duration: time.Since(start)}
	if err != nil {
		r.logger.Debug("book failed", "input", file, "error", err)
		return res
	}
	stats := p.Stats()
	r.logger.Debug("book converted", "input", file, "output", outDir,
		"chapters", stats.Written, "elapsed", res.Duration)
	return res
}

// lockedWriter serializes progress lines written by concurrent pipelines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
