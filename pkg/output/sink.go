// Package output streams listing records to standard output or to a file.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"listfiles/pkg/logging"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Policy decides what happens when the output file already exists.
type Policy string

const (
	PolicyPrompt    Policy = "prompt"
	PolicyOverwrite Policy = "overwrite"
	PolicyAppend    Policy = "append"
	PolicyFail      Policy = "fail"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyPrompt, PolicyOverwrite, PolicyAppend, PolicyFail:
		return p, nil
	}
	return "", fmt.Errorf("unknown conflict policy %q (want prompt, overwrite, append or fail)", s)
}

// Mode is how an output file is opened.
type Mode int

const (
	ModeOverwrite Mode = iota
	ModeAppend
)

func (m Mode) String() string {
	if m == ModeAppend {
		return "append"
	}
	return "overwrite"
}

var (
	// ErrOutputExists is returned when the output exists and the policy forbids touching it.
	ErrOutputExists = errors.New("output file already exists")
	// ErrCancelled is returned by a ConflictResolver when the user aborts.
	ErrCancelled = errors.New("cancelled by user")
)

// ConflictResolver chooses a Mode for an existing output file.
type ConflictResolver interface {
	ResolveConflict(path string) (Mode, error)
}

// Sink is the destination of a run. It owns the underlying file, if any, and
// must be closed on every exit path.
type Sink struct {
	Path string // Empty for standard output.
	Mode Mode

	w          *bufio.Writer
	file       afero.File
	lock       *flock.Flock
	removeLock bool // The lock file was created by this sink.
	fsys       afero.Fs
	logger     *zap.Logger
}

// NewStreamSink wraps an already open stream such as os.Stdout. Closing the sink
// flushes but does not close w.
func NewStreamSink(w io.Writer) *Sink {
	return &Sink{w: bufio.NewWriter(w), logger: zap.NewNop()}
}

// OpenFile opens path for writing, resolving an existing file through policy.
// On the OS filesystem an exclusive lock on path+".lock" is held until Close.
// A lock file that existed before the run is locked but never removed.
func OpenFile(fsys afero.Fs, path string, policy Policy, resolver ConflictResolver, logger *zap.Logger) (*Sink, error) {
	logger = logging.OrNop(logger)

	mode, err := resolveMode(fsys, path, policy, resolver)
	if err != nil {
		return nil, err
	}

	s := &Sink{Path: path, Mode: mode, fsys: fsys, logger: logger}

	if onOSFilesystem(fsys) {
		lockPath := path + ".lock"
		existed, err := afero.Exists(fsys, lockPath)
		if err != nil {
			return nil, fmt.Errorf("failed to check lock file %s: %w", lockPath, err)
		}

		lock := flock.New(lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to lock output file %s: %w", path, err)
		}
		if !locked {
			return nil, fmt.Errorf("output file %s is locked by another process", path)
		}
		s.lock = lock
		s.removeLock = !existed
	}

	flags := os.O_WRONLY | os.O_CREATE
	if mode == ModeAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := fsys.OpenFile(path, flags, 0644)
	if err != nil {
		logger.Error("Failed to open output file", zap.String("file", path), zap.Error(err))
		return nil, multierr.Append(fmt.Errorf("failed to open output file %s: %w", path, err), s.unlock())
	}
	s.file = file
	s.w = bufio.NewWriter(file)

	logger.Debug("Opened output file", zap.String("file", path), zap.Stringer("mode", mode))
	return s, nil
}

// onOSFilesystem reports whether fsys, or the filesystem it wraps, is the OS
// filesystem that flock can lock.
func onOSFilesystem(fsys afero.Fs) bool {
	return fsys.Name() == afero.NewOsFs().Name()
}

func resolveMode(fsys afero.Fs, path string, policy Policy, resolver ConflictResolver) (Mode, error) {
	switch policy {
	case PolicyAppend:
		return ModeAppend, nil
	case PolicyOverwrite:
		return ModeOverwrite, nil
	}

	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return 0, fmt.Errorf("failed to check output file %s: %w", path, err)
	}
	if !exists {
		return ModeOverwrite, nil
	}

	if policy == PolicyFail || resolver == nil {
		return 0, fmt.Errorf("%s: %w", path, ErrOutputExists)
	}
	return resolver.ResolveConflict(path)
}

// IsFile reports whether the sink writes to a named file.
func (s *Sink) IsFile() bool {
	return s.file != nil
}

// Write buffers p.
func (s *Sink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Flush pushes buffered bytes to the underlying stream.
func (s *Sink) Flush() error {
	return s.w.Flush()
}

// Close flushes, closes the file and releases the lock. It is safe to call
// more than once.
func (s *Sink) Close() error {
	if s.w == nil {
		return nil
	}

	err := s.w.Flush()
	s.w = nil
	if s.file != nil {
		err = multierr.Append(err, s.file.Close())
	}
	err = multierr.Append(err, s.unlock())
	if err != nil {
		s.logger.Error("Failed to close output", zap.String("file", s.Path), zap.Error(err))
	}
	return err
}

func (s *Sink) unlock() error {
	if s.lock == nil {
		return nil
	}
	lock := s.lock
	s.lock = nil

	if err := lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", lock.Path(), err)
	}
	if !s.removeLock {
		return nil
	}
	if err := s.fsys.Remove(lock.Path()); err != nil && !os.IsNotExist(err) {
		s.logger.Debug("Failed to remove lock file", zap.String("file", lock.Path()), zap.Error(err))
	}
	return nil
}
