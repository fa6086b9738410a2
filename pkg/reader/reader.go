// Package reader loads file contents in the normalized form used for listings.
package reader

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"listfiles/pkg/logging"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	textunicode "golang.org/x/text/encoding/unicode"
)

// ErrInvalidUTF8 is returned by Normalize for content that is not UTF-8 text.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 content")

// Placeholder is the text that stands in for a file that could not be read.
func Placeholder(err error) string {
	return fmt.Sprintf("[Error reading file: %v]", err)
}

// ReadNormalized returns the normalized content of path. Read and decode failures
// never escape: they come back as a Placeholder string.
func ReadNormalized(fsys afero.Fs, path string, logger *zap.Logger) string {
	logger = logging.OrNop(logger)

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		logger.Warn("Failed to read file", zap.String("filePath", path), zap.Error(err))
		return Placeholder(err)
	}

	text, err := Normalize(data)
	if err != nil {
		logger.Warn("Failed to decode file", zap.String("filePath", path), zap.Error(err))
		return Placeholder(err)
	}

	logger.Debug("Read file",
		zap.String("filePath", path),
		zap.Int("contentSizeBytes", len(data)))
	return text
}

// Normalize strips a leading UTF-8 byte order mark, trims trailing whitespace
// from every line and joins the lines with "\n". A final line terminator does
// not produce an extra empty line.
func Normalize(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}

	decoded, err := textunicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode content: %w", err)
	}

	lines := strings.Split(string(decoded), "\n")
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.Join(lines, "\n"), nil
}
