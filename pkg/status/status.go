// Package status prints the human-readable progress lines of a run.
//
// Status lines never go to the listing stream: the CLI points a Reporter at
// stderr so that stdout carries nothing but records. Colour is used only when
// the destination is a terminal.
package status

import (
	"fmt"
	"io"
	"os"
	"strings"

	"listfiles/pkg/output"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// colorScheme groups the colours used for status lines.
// Green: completed writes. Yellow: nothing to do or aborted. Cyan: counts and names.
// Red: errors.
type colorScheme struct {
	success *color.Color
	warn    *color.Color
	label   *color.Color
	fail    *color.Color
}

func newColorScheme(enabled bool) *colorScheme {
	s := &colorScheme{
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		fail:    color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{s.success, s.warn, s.label, s.fail} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// Reporter writes status lines to out.
type Reporter struct {
	out    io.Writer
	scheme *colorScheme
}

// New creates a Reporter. Colour is enabled when out is a terminal and
// noColor is false.
func New(out io.Writer, noColor bool) *Reporter {
	return &Reporter{out: out, scheme: newColorScheme(!noColor && isTerminal(out))}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Found reports the size of the match set.
func (r *Reporter) Found(n int) {
	fmt.Fprintf(r.out, "Found %s.\n", r.scheme.label.Sprint(plural(n, "file")))
}

// Filtered reports how many candidates the exclusion rules removed.
func (r *Reporter) Filtered(n int, rules []string) {
	if n == 0 {
		return
	}
	fmt.Fprintf(r.out, "Excluded %s matching %s.\n",
		plural(n, "file"), r.scheme.label.Sprint(strings.Join(rules, ", ")))
}

// NoFiles reports an empty match set.
func (r *Reporter) NoFiles() {
	fmt.Fprintln(r.out, r.scheme.warn.Sprint("No matching files found."))
}

// Done confirms a completed write to a file.
func (r *Reporter) Done(path string, n int, mode output.Mode) {
	verb := "Wrote"
	if mode == output.ModeAppend {
		verb = "Appended"
	}
	fmt.Fprintln(r.out, r.scheme.success.Sprintf("%s %s to %s", verb, plural(n, "file"), path))
}

// Aborted reports that the user declined to touch the output file.
func (r *Reporter) Aborted(path string) {
	fmt.Fprintln(r.out, r.scheme.warn.Sprintf("Aborted; %s left unchanged.", path))
}

// Error reports a fatal error.
func (r *Reporter) Error(err error) {
	fmt.Fprintf(r.out, "%s %v\n", r.scheme.fail.Sprint("Error:"), err)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
