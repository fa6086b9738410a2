package listfiles

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"listfiles/pkg/ignore"
	"listfiles/pkg/output"
	"listfiles/pkg/prompt"
	"listfiles/pkg/status"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness bundles an in-memory tree with captured stdout and status output.
type harness struct {
	fs     afero.Fs
	stdout bytes.Buffer
	status bytes.Buffer
}

// newHarness creates /a/x.txt ("hi   ") and /a/b/y.txt ("yo").
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{fs: afero.NewMemMapFs()}
	require.NoError(t, afero.WriteFile(h.fs, "/a/x.txt", []byte("hi   "), 0644))
	require.NoError(t, afero.WriteFile(h.fs, "/a/b/y.txt", []byte("yo"), 0644))
	return h
}

func (h *harness) env(answers string) Env {
	return Env{
		Fs:       h.fs,
		Stdout:   &h.stdout,
		Status:   status.New(&h.status, true),
		Resolver: prompt.NewConsole(strings.NewReader(answers), &h.status),
	}
}

func config(mutate func(*Config)) Config {
	cfg := DefaultConfig()
	cfg.Directory = "/a"
	cfg.Pattern = "*.txt"
	if mutate != nil {
		mutate(&cfg)
	}
	return cfg
}

func TestRunNonRecursive(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, Run(config(nil), h.env("")))

	assert.Equal(t, "x.txt:\n```\nhi\n```\n\n", h.stdout.String())
	assert.Contains(t, h.status.String(), "Found 1 file.")
}

func TestRunRecursive(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, Run(config(func(c *Config) { c.Recursive = true }), h.env("")))

	assert.Equal(t, "x.txt:\n```\nhi\n```\n\nb/y.txt:\n```\nyo\n```\n\n", h.stdout.String())
	assert.Contains(t, h.status.String(), "Found 2 files.")
}

func TestRunNamesOnly(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, Run(config(func(c *Config) {
		c.Recursive = true
		c.NamesOnly = true
	}), h.env("")))

	assert.Equal(t, "x.txt\nb/y.txt\n", h.stdout.String())
}

func TestRunExclude(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, Run(config(func(c *Config) {
		c.Recursive = true
		c.NamesOnly = true
		c.Excludes = []string{"b/"}
	}), h.env("")))

	assert.Equal(t, "x.txt\n", h.stdout.String())
	assert.Contains(t, h.status.String(), "Excluded 1 file matching b/.")
}

func TestRunWithoutRulesReportsNoExclusions(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, Run(config(func(c *Config) { c.Recursive = true }), h.env("")))

	assert.Contains(t, h.status.String(), "Found 2 files.")
	assert.NotContains(t, h.status.String(), "Excluded")
}

func TestRunIgnoreFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/rules", []byte("x.*\n"), 0644))

	require.NoError(t, Run(config(func(c *Config) {
		c.Recursive = true
		c.NamesOnly = true
		c.IgnoreFiles = []string{"/rules"}
	}), h.env("")))

	assert.Equal(t, "b/y.txt\n", h.stdout.String())
	assert.Contains(t, h.status.String(), "/rules")
}

func TestRunInvalidExclude(t *testing.T) {
	h := newHarness(t)
	err := Run(config(func(c *Config) {
		c.Recursive = true
		c.Excludes = []string{"(b"}
	}), h.env(""))

	var perr *ignore.PatternError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "exclude", perr.Kind)
	assert.Empty(t, h.stdout.String())
	assert.Empty(t, h.status.String())
}

func TestRunNoFiles(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, Run(config(func(c *Config) {
		c.Pattern = "*.go"
		c.Output = "/out.md"
	}), h.env("")))

	assert.Contains(t, h.status.String(), "No matching files found.")
	assert.Empty(t, h.stdout.String())
	exists, err := afero.Exists(h.fs, "/out.md")
	require.NoError(t, err)
	assert.False(t, exists, "sink must not be opened for an empty match set")
}

func TestRunReadErrorIsInline(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/a/bad.txt", []byte{0xff, 0xfe, 0xfd}, 0644))

	require.NoError(t, Run(config(nil), h.env("")))
	assert.Equal(t,
		"bad.txt:\n```\n[Error reading file: invalid UTF-8 content]\n```\n\nx.txt:\n```\nhi\n```\n\n",
		h.stdout.String())
}

func TestRunToFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, Run(config(func(c *Config) { c.Output = "/out.md" }), h.env("")))

	got, err := afero.ReadFile(h.fs, "/out.md")
	require.NoError(t, err)
	assert.Equal(t, "x.txt:\n```\nhi\n```\n\n", string(got))
	assert.Empty(t, h.stdout.String())
	assert.Contains(t, h.status.String(), "Wrote 1 file to /out.md")
}

func TestRunAppendTwiceIsConcatenation(t *testing.T) {
	h := newHarness(t)
	cfg := config(func(c *Config) {
		c.Recursive = true
		c.Output = "/out.md"
	})
	require.NoError(t, Run(cfg, h.env("")))
	single, err := afero.ReadFile(h.fs, "/out.md")
	require.NoError(t, err)
	require.NoError(t, h.fs.Remove("/out.md"))

	cfg.Append = true
	require.NoError(t, Run(cfg, h.env("")))
	require.NoError(t, Run(cfg, h.env("")))

	got, err := afero.ReadFile(h.fs, "/out.md")
	require.NoError(t, err)
	assert.Equal(t, string(single)+string(single), string(got))
	assert.Contains(t, h.status.String(), "Appended 2 files to /out.md")
	assert.NotContains(t, h.status.String(), "exists.")
}

func TestRunOutputInsideRootIsNotListed(t *testing.T) {
	h := newHarness(t)
	cfg := config(func(c *Config) {
		c.NamesOnly = true
		c.Output = "/a/list.txt"
		c.Append = true
	})
	require.NoError(t, Run(cfg, h.env("")))
	require.NoError(t, Run(cfg, h.env("")))

	got, err := afero.ReadFile(h.fs, "/a/list.txt")
	require.NoError(t, err)
	assert.Equal(t, "x.txt\nx.txt\n", string(got))
}

func TestRunExistingOutputPrompt(t *testing.T) {
	tests := []struct {
		name    string
		answers string
		want    string
		wantErr error
	}{
		{name: "overwrite", answers: "o\n", want: "x.txt\n"},
		{name: "append", answers: "a\n", want: "old\nx.txt\n"},
		{name: "invalid then append", answers: "yes\na\n", want: "old\nx.txt\n"},
		{name: "cancel", answers: "c\n", want: "old\n", wantErr: ErrAborted},
		{name: "no answer", answers: "", want: "old\n", wantErr: prompt.ErrNoInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, afero.WriteFile(h.fs, "/out.md", []byte("old\n"), 0644))

			err := Run(config(func(c *Config) {
				c.NamesOnly = true
				c.Output = "/out.md"
			}), h.env(tt.answers))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
			}

			got, err := afero.ReadFile(h.fs, "/out.md")
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestRunFailPolicy(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/out.md", []byte("old\n"), 0644))

	err := Run(config(func(c *Config) {
		c.Output = "/out.md"
		c.IfExists = "fail"
	}), h.env("a\n"))
	assert.True(t, errors.Is(err, output.ErrOutputExists))
}

func TestRunMissingPattern(t *testing.T) {
	h := newHarness(t)
	err := Run(config(func(c *Config) { c.Pattern = "" }), h.env(""))
	assert.Error(t, err)
}

func TestRunMissingDirectory(t *testing.T) {
	h := newHarness(t)
	err := Run(config(func(c *Config) { c.Directory = "/nope" }), h.env(""))
	require.Error(t, err)
	assert.Empty(t, h.stdout.String())
}

// shortWriteFs hands out files that fail once more than limit bytes were written.
type shortWriteFs struct {
	afero.Fs
	limit  int
	closed bool
}

func (fs *shortWriteFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := fs.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &shortWriteFile{File: f, fs: fs}, nil
}

type shortWriteFile struct {
	afero.File
	fs      *shortWriteFs
	written int
}

func (f *shortWriteFile) Write(p []byte) (int, error) {
	room := f.fs.limit - f.written
	if room >= len(p) {
		n, err := f.File.Write(p)
		f.written += n
		return n, err
	}
	n, _ := f.File.Write(p[:room])
	f.written += n
	return n, errors.New("disk full")
}

func (f *shortWriteFile) Close() error {
	f.fs.closed = true
	return f.File.Close()
}

func TestRunOutputWriteFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "x.txt"), []byte("hi"), 0644))
	out := filepath.Join(dir, "out.md")

	fsys := &shortWriteFs{Fs: afero.NewOsFs(), limit: 5}
	var stdout, statusOut bytes.Buffer
	err := Run(config(func(c *Config) {
		c.Directory = filepath.Join(dir, "a")
		c.Output = out
	}), Env{Fs: fsys, Stdout: &stdout, Status: status.New(&statusOut, true)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, fsys.closed, "output file must be closed")
	assert.NotContains(t, statusOut.String(), "Wrote")

	_, statErr := os.Stat(out + ".lock")
	assert.True(t, os.IsNotExist(statErr), "lock file must be released and removed")

	sink, err := output.OpenFile(afero.NewOsFs(), out, output.PolicyOverwrite, nil, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}
