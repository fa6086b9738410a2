package discover

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"listfiles/pkg/ignore"
	"listfiles/pkg/logging"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Options configures a discovery run.
type Options struct {
	Root      string          // Directory to search; resolved to an absolute path.
	Pattern   string          // Shell glob, e.g. "*.go".
	Recursive bool            // Match Pattern at any depth below Root, Root included.
	Hidden    bool            // Include dotfiles and files below dot-directories.
	Matcher   *ignore.Matcher // Optional exclusion rules.
	Skip      []string        // Absolute paths never reported, such as the output file.
}

// Result is the ordered match set of a discovery run.
type Result struct {
	Root     string   // Absolute root directory.
	Files    []string // Slash-separated paths relative to Root, in Less order, unique.
	Excluded int      // Number of candidates dropped by the Matcher.
}

// Path returns the filesystem path of a relative match.
func (r *Result) Path(rel string) string {
	return filepath.Join(r.Root, filepath.FromSlash(rel))
}

// Discover expands opts.Pattern below opts.Root and filters the candidates.
// An invalid glob is reported as an *ignore.PatternError.
//
// An absolute pattern carries its own root: the directory part before the
// first wildcard replaces opts.Root. Without opts.Recursive a "**" matches a
// single path component like "*". Symbolic links to directories are not
// followed during recursive matching.
func Discover(fsys afero.Fs, opts Options, logger *zap.Logger) (*Result, error) {
	logger = logging.OrNop(logger)

	pattern := strings.TrimPrefix(filepath.ToSlash(opts.Pattern), "./")
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return nil, &ignore.PatternError{Kind: "glob", Pattern: opts.Pattern, Err: doublestar.ErrBadPattern}
	}

	rootDir := opts.Root
	if filepath.IsAbs(opts.Pattern) || strings.HasPrefix(pattern, "/") {
		base, rest := doublestar.SplitPattern(pattern)
		logger.Debug("Absolute pattern overrides directory",
			zap.String("directory", opts.Root),
			zap.String("base", base),
			zap.String("pattern", rest))
		rootDir, pattern = filepath.FromSlash(base), rest
	}
	if !opts.Recursive {
		pattern = collapseDoubleStar(pattern)
	}

	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory %s: %w", opts.Root, err)
	}
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	if opts.Recursive && !strings.HasPrefix(pattern, "**/") {
		pattern = "**/" + pattern
	}

	logger.Debug("Expanding glob", zap.String("root", root), zap.String("pattern", pattern))
	candidates, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(fsys, root)), pattern,
		doublestar.WithFilesOnly(), doublestar.WithNoFollow())
	if err != nil {
		return nil, &ignore.PatternError{Kind: "glob", Pattern: opts.Pattern, Err: err}
	}

	skip := make(map[string]bool, len(opts.Skip))
	for _, p := range opts.Skip {
		if abs, err := filepath.Abs(p); err == nil {
			skip[abs] = true
		}
	}

	result := &Result{Root: root}
	keepDotBase := strings.HasPrefix(path.Base(pattern), ".")
	for _, rel := range candidates {
		if skip[filepath.Join(root, filepath.FromSlash(rel))] {
			logger.Debug("Skipping output file", zap.String("path", rel))
			continue
		}
		if !opts.Hidden && isHidden(rel, keepDotBase) {
			logger.Debug("Skipping hidden path", zap.String("path", rel))
			continue
		}
		if opts.Matcher != nil {
			if matched, p := opts.Matcher.MatchesPathWithPattern(rel); matched {
				logger.Debug("Excluded path", zap.String("path", rel), zap.String("pattern", p.Line))
				result.Excluded++
				continue
			}
		}
		result.Files = append(result.Files, rel)
	}

	result.Files = SortUnique(result.Files)
	logger.Debug("Discovery finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", len(result.Files)),
		zap.Int("excluded", result.Excluded))
	return result, nil
}

// collapseDoubleStar rewrites every run of stars to a single "*".
func collapseDoubleStar(pattern string) string {
	for strings.Contains(pattern, "**") {
		pattern = strings.ReplaceAll(pattern, "**", "*")
	}
	return pattern
}

// isHidden reports whether a slash-separated path lies in a dot-directory or is
// itself a dotfile. keepDotBase lets an explicit dot pattern like ".env" through.
func isHidden(rel string, keepDotBase bool) bool {
	parts := strings.Split(rel, "/")
	for i, part := range parts {
		if !strings.HasPrefix(part, ".") {
			continue
		}
		if i == len(parts)-1 && keepDotBase {
			return false
		}
		return true
	}
	return false
}
