package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuanying/epub2md/internal/batch"
	"github.com/yuanying/epub2md/internal/converter"
)

const defaultLogLevel = "info"

type cliOptions struct {
	InputPath  string
	OutputDir  string // empty means derived from the input
	SingleFile bool
	Workers    int
	MinChars   int
	IgnoreCase bool
	Logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epub2md <input>",
		Short: "Convert EPUB files to Markdown",
		Long: `epub2md converts EPUB ebooks to Markdown.

Each book becomes a directory with one chapter_NNN.md file per chapter and a
metadata.json file, or with --single one Markdown file named after the title.
When the input is a directory every EPUB below it is converted in parallel.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			return run(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output directory, or output base directory for directory input")
	cmd.Flags().BoolP("single", "s", false, "Write one merged Markdown file per book")
	cmd.Flags().Int("workers", runtime.NumCPU(), "Number of books converted in parallel")
	cmd.Flags().Int("min-chars", converter.DefaultMinChapterLength, "Drop chapters with fewer characters than this")
	cmd.Flags().Bool("ignore-case", false, "Match the .epub extension case-insensitively")
	cmd.Flags().String("log-level", defaultLogLevel, "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", "text", "Log format: text, json")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")

	return cmd
}

func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	flags := cmd.Flags()

	output, _ := flags.GetString("output")
	single, _ := flags.GetBool("single")
	workers, _ := flags.GetInt("workers")
	minChars, _ := flags.GetInt("min-chars")
	ignoreCase, _ := flags.GetBool("ignore-case")
	logLevel, _ := flags.GetString("log-level")
	logFormat, _ := flags.GetString("log-format")
	verbose, _ := flags.GetBool("verbose")

	if workers < 1 {
		return cliOptions{}, fmt.Errorf("--workers must be >= 1")
	}
	if minChars < 0 {
		return cliOptions{}, fmt.Errorf("--min-chars must be >= 0")
	}

	logLevel = strings.ToLower(logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return cliOptions{}, fmt.Errorf("--log-level must be one of debug, info, warn, error")
	}
	logFormat = strings.ToLower(logFormat)
	if logFormat != "text" && logFormat != "json" {
		return cliOptions{}, fmt.Errorf("--log-format must be text or json")
	}
	if verbose {
		logLevel = "debug"
	}

	// A zero threshold would fall back to the default in the pipeline;
	// one character keeps everything that is not empty.
	if minChars == 0 {
		minChars = 1
	}

	return cliOptions{
		InputPath:  args[0],
		OutputDir:  output,
		SingleFile: single,
		Workers:    workers,
		MinChars:   minChars,
		IgnoreCase: ignoreCase,
		Logger:     buildLogger(os.Stderr, logLevel, logFormat),
	}, nil
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// defaultOutputDir places the output next to the input file.
func defaultOutputDir(inputPath string) string {
	return batch.OutputDirFor(filepath.Dir(inputPath), inputPath, "")
}

func run(opts cliOptions, stdout, stderr io.Writer) error {
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("input path does not exist: %s", opts.InputPath)
		}
		return fmt.Errorf("failed to read input path: %w", err)
	}

	if info.IsDir() {
		return runBatch(opts, stdout, stderr)
	}
	return runSingle(opts, stdout)
}

func runSingle(opts cliOptions, stdout io.Writer) error {
	matcher := batch.ExtensionMatcher{IgnoreCase: opts.IgnoreCase}
	if !matcher.Match(opts.InputPath) {
		return fmt.Errorf("input file must have .epub extension")
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = defaultOutputDir(opts.InputPath)
	}

	fmt.Fprintf(stdout, "Converting %s to Markdown...\n", opts.InputPath)

	p := converter.NewPipeline(converter.ConvertOptions{
		InputPath:        opts.InputPath,
		OutputDir:        outputDir,
		SingleFile:       opts.SingleFile,
		MinChapterLength: opts.MinChars,
		Logger:           opts.Logger,
		Stdout:           stdout,
	})
	if err := p.Convert(); err != nil {
		return err
	}

	stats := p.Stats()
	opts.Logger.Debug("conversion finished", "chapters", stats.Written,
		"filtered", stats.Filtered, "skipped", stats.Skipped)
	fmt.Fprintf(stdout, "Conversion complete! Output saved to: %s\n", outputDir)
	return nil
}

func runBatch(opts cliOptions, stdout, stderr io.Writer) error {
	runner := batch.NewRunner(batch.Options{
		OutputBase:       opts.OutputDir,
		SingleFile:       opts.SingleFile,
		MinChapterLength: opts.MinChars,
		Workers:          opts.Workers,
		Matcher:          batch.ExtensionMatcher{IgnoreCase: opts.IgnoreCase},
		Logger:           opts.Logger,
		Stdout:           stdout,
		Stderr:           stderr,
	})
	_, err := runner.Run(opts.InputPath)
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
