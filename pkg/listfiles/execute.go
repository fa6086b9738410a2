// Package listfiles runs the listing pipeline: discover the matching files, read
// each one, and stream a record per file to standard output or an output file.
package listfiles

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"listfiles/pkg/discover"
	"listfiles/pkg/ignore"
	"listfiles/pkg/logging"
	"listfiles/pkg/output"
	"listfiles/pkg/reader"
	"listfiles/pkg/status"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrAborted is returned when the user cancels at the overwrite prompt.
var ErrAborted = errors.New("aborted by user")

// Env carries the side-effecting collaborators of a run. Zero fields fall back
// to the OS filesystem, os.Stdout, a silent reporter, no resolver and a no-op logger.
type Env struct {
	Fs       afero.Fs
	Stdout   io.Writer
	Status   *status.Reporter
	Resolver output.ConflictResolver
	Logger   *zap.Logger
}

func (e Env) withDefaults() Env {
	if e.Fs == nil {
		e.Fs = afero.NewOsFs()
	}
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Status == nil {
		e.Status = status.New(io.Discard, true)
	}
	e.Logger = logging.OrNop(e.Logger)
	return e
}

// Run executes one listing. Invalid patterns come back as *ignore.PatternError
// before anything is discovered or written.
func Run(cfg Config, env Env) (err error) {
	env = env.withDefaults()
	logger := env.Logger
	startTime := time.Now()

	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, _ := cfg.Policy()

	matcher, err := buildMatcher(cfg, env.Fs, logger)
	if err != nil {
		return err
	}

	var skip []string
	if cfg.Output != "" {
		skip = append(skip, cfg.Output)
	}

	logger.Info("Starting listing",
		zap.String("directory", cfg.Directory),
		zap.String("pattern", cfg.Pattern),
		zap.Bool("recursive", cfg.Recursive))

	result, err := discover.Discover(env.Fs, discover.Options{
		Root:      cfg.Directory,
		Pattern:   cfg.Pattern,
		Recursive: cfg.Recursive,
		Hidden:    cfg.Hidden,
		Matcher:   matcher,
		Skip:      skip,
	}, logger)
	if err != nil {
		return err
	}

	if len(result.Files) == 0 {
		env.Status.NoFiles()
		return nil
	}
	env.Status.Found(len(result.Files))
	if !matcher.Empty() {
		env.Status.Filtered(result.Excluded, append(matcher.Excludes(), cfg.IgnoreFiles...))
	}

	sink, err := openSink(cfg, policy, env)
	if err != nil {
		if errors.Is(err, output.ErrCancelled) {
			env.Status.Aborted(cfg.Output)
			return fmt.Errorf("%s: %w", cfg.Output, ErrAborted)
		}
		return err
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", closeErr)
		}
	}()

	w := output.NewWriter(sink, cfg.NamesOnly, logger)
	for _, rel := range result.Files {
		record := output.Record{Path: rel}
		if !cfg.NamesOnly {
			record.Content = reader.ReadNormalized(env.Fs, result.Path(rel), logger)
		}
		if err := w.WriteRecord(record); err != nil {
			return err
		}
	}

	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if sink.IsFile() {
		env.Status.Done(cfg.Output, w.Written(), sink.Mode)
	}

	logger.Info("Listing completed",
		zap.Int("totalFiles", w.Written()),
		zap.Duration("elapsed", time.Since(startTime)))
	return nil
}

func buildMatcher(cfg Config, fsys afero.Fs, logger *zap.Logger) (*ignore.Matcher, error) {
	matcher := ignore.NewMatcher(logger)
	if err := matcher.AddExcludes(cfg.Excludes...); err != nil {
		return nil, err
	}
	for _, path := range cfg.IgnoreFiles {
		if err := matcher.CompileIgnoreFile(fsys, path); err != nil {
			return nil, err
		}
	}
	return matcher, nil
}

func openSink(cfg Config, policy output.Policy, env Env) (*output.Sink, error) {
	if cfg.Output == "" {
		return output.NewStreamSink(env.Stdout), nil
	}
	return output.OpenFile(env.Fs, cfg.Output, policy, env.Resolver, env.Logger)
}
