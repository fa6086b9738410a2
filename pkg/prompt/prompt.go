// Package prompt asks the user how to treat an existing output file.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"listfiles/pkg/output"

	"golang.org/x/term"
)

// ErrNoInput is returned when input ends before a valid answer was given.
var ErrNoInput = errors.New("no answer received before end of input")

// Console resolves output conflicts by asking on a terminal. It keeps a single
// buffered reader so that typed-ahead answers are not lost between prompts.
type Console struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewConsole creates a Console reading answers from in and writing prompts to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// ResolveConflict asks until a single valid character is entered:
// o to overwrite, a to append, c to cancel.
func (c *Console) ResolveConflict(path string) (output.Mode, error) {
	for {
		fmt.Fprintf(c.out, "Output file %s exists. (o)verwrite, (a)ppend or (c)ancel? ", path)

		line, err := c.reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "o":
			return output.ModeOverwrite, nil
		case "a":
			return output.ModeAppend, nil
		case "c":
			return 0, output.ErrCancelled
		}

		if err != nil {
			fmt.Fprintln(c.out)
			if errors.Is(err, io.EOF) {
				return 0, ErrNoInput
			}
			return 0, fmt.Errorf("failed to read answer: %w", err)
		}
		fmt.Fprintln(c.out, "Please answer with a single character: o, a or c.")
	}
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
