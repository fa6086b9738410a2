package output

import (
	"fmt"

	"listfiles/pkg/logging"

	"go.uber.org/zap"
)

// Record is one listed file: its slash-separated relative path and, unless
// names-only output was requested, its normalized content.
type Record struct {
	Path    string
	Content string
}

// FormatRecord renders a record. Names-only output is the path on its own line;
// full output is a "path:" header followed by a fenced block and a blank line.
func FormatRecord(r Record, namesOnly bool) string {
	if namesOnly {
		return r.Path + "\n"
	}
	return fmt.Sprintf("%s:\n```\n%s\n```\n\n", r.Path, r.Content)
}

// Writer formats records onto a Sink, flushing after each one so that only a
// single file's content is ever held in memory.
type Writer struct {
	sink      *Sink
	namesOnly bool
	written   int
	logger    *zap.Logger
}

// NewWriter creates a Writer over sink.
func NewWriter(sink *Sink, namesOnly bool, logger *zap.Logger) *Writer {
	return &Writer{sink: sink, namesOnly: namesOnly, logger: logging.OrNop(logger)}
}

// WriteRecord formats r and flushes it to the sink.
func (w *Writer) WriteRecord(r Record) error {
	if _, err := w.sink.Write([]byte(FormatRecord(r, w.namesOnly))); err != nil {
		w.logger.Error("Failed to write record", zap.String("contentPath", r.Path), zap.Error(err))
		return fmt.Errorf("failed to write %s: %w", r.Path, err)
	}
	if err := w.sink.Flush(); err != nil {
		w.logger.Error("Failed to flush record", zap.String("contentPath", r.Path), zap.Error(err))
		return fmt.Errorf("failed to flush %s: %w", r.Path, err)
	}
	w.written++
	return nil
}

// Written returns the number of records written so far.
func (w *Writer) Written() int {
	return w.written
}
