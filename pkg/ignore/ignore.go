// Package ignore decides which discovered paths are dropped from a listing.
//
// Two kinds of rules are supported: exclude expressions, which are regular
// expressions searched for anywhere in a slash-separated relative path, and
// gitignore-style lines loaded from ignore files. Exclude expressions always win;
// ignore-file lines follow last-match-wins with `!` negation.
package ignore

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"listfiles/pkg/logging"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Source tells where a Pattern came from.
type Source string

const (
	SourceExclude    Source = "exclude"
	SourceIgnoreFile Source = "ignore-file"
)

// Pattern is one compiled rule together with metadata about its origin.
type Pattern struct {
	Regexp *regexp.Regexp
	Negate bool   // Only meaningful for ignore-file lines.
	Source Source
	Origin string // Ignore file path; empty for exclude expressions.
	Line   string // Original text.
	LineNo int    // 1-based line number within Origin.
}

// PatternError reports a pattern that could not be compiled.
type PatternError struct {
	Kind    string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Kind, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Matcher holds exclude expressions and ignore-file patterns.
type Matcher struct {
	excludes []*Pattern
	patterns []*Pattern
	logger   *zap.Logger
}

// NewMatcher initializes an empty Matcher.
func NewMatcher(logger *zap.Logger) *Matcher {
	return &Matcher{logger: logging.OrNop(logger)}
}

// AddExcludes compiles each expression as a regular expression.
func (m *Matcher) AddExcludes(exprs ...string) error {
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return &PatternError{Kind: string(SourceExclude), Pattern: expr, Err: err}
		}
		m.excludes = append(m.excludes, &Pattern{Regexp: re, Source: SourceExclude, Line: expr})
		m.logger.Debug("Compiled exclude pattern", zap.String("pattern", expr))
	}
	return nil
}

// CompileIgnoreLines adds gitignore-style lines. Blank lines and comments are skipped.
func (m *Matcher) CompileIgnoreLines(origin string, lines ...string) error {
	for i, line := range lines {
		re, negate, err := parsePatternLine(line)
		if err != nil {
			return &PatternError{Kind: string(SourceIgnoreFile), Pattern: line, Err: err}
		}
		if re == nil {
			continue
		}
		p := &Pattern{
			Regexp: re,
			Negate: negate,
			Source: SourceIgnoreFile,
			Origin: origin,
			Line:   line,
			LineNo: i + 1,
		}
		m.patterns = append(m.patterns, p)
		m.logger.Debug("Compiled ignore pattern",
			zap.String("origin", origin),
			zap.Int("lineNo", p.LineNo),
			zap.String("pattern", p.Line),
			zap.Bool("negate", p.Negate))
	}
	return nil
}

// CompileIgnoreFile reads an ignore file from fsys and adds its lines.
func (m *Matcher) CompileIgnoreFile(fsys afero.Fs, path string) error {
	content, err := afero.ReadFile(fsys, path)
	if err != nil {
		m.logger.Error("Failed to read ignore file", zap.String("filePath", path), zap.Error(err))
		return fmt.Errorf("failed to read ignore file %s: %w", path, err)
	}

	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	if err := m.CompileIgnoreLines(path, lines...); err != nil {
		return err
	}
	m.logger.Debug("Loaded ignore file", zap.String("filePath", path), zap.Int("lineCount", len(lines)))
	return nil
}

// Empty reports whether the matcher holds no rules at all.
func (m *Matcher) Empty() bool {
	return len(m.excludes) == 0 && len(m.patterns) == 0
}

// Excludes returns the original text of the exclude expressions.
func (m *Matcher) Excludes() []string {
	out := make([]string, 0, len(m.excludes))
	for _, p := range m.excludes {
		out = append(out, p.Line)
	}
	return out
}

// MatchesPath reports whether path should be dropped.
func (m *Matcher) MatchesPath(path string) bool {
	matched, _ := m.MatchesPathWithPattern(path)
	return matched
}

// MatchesPathWithPattern reports whether path should be dropped and which rule decided it.
func (m *Matcher) MatchesPathWithPattern(path string) (bool, *Pattern) {
	normalizedPath := normalizePath(path)

	for _, p := range m.excludes {
		if p.Regexp.MatchString(normalizedPath) {
			return true, p
		}
	}

	matched := false
	var matchedPattern *Pattern
	for _, p := range m.patterns {
		if p.Regexp.MatchString(normalizedPath) {
			matched = !p.Negate
			matchedPattern = p
		}
	}
	return matched, matchedPattern
}

// normalizePath converts OS-specific path separators to forward slashes.
func normalizePath(path string) string {
	return filepath.ToSlash(path)
}
