package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"listfiles/pkg/ignore"
	"listfiles/pkg/listfiles"
	"listfiles/pkg/logging"
	"listfiles/pkg/prompt"
	"listfiles/pkg/status"
	"listfiles/pkg/version"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const appName = "listfiles"

// App wires the command line to the listing pipeline.
type App struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	fs     afero.Fs

	logger   *zap.Logger
	reporter *status.Reporter
}

// NewApp creates an App bound to the given streams and the OS filesystem.
func NewApp(stdin io.Reader, stdout, stderr io.Writer) *App {
	return &App{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		fs:     afero.NewOsFs(),
	}
}

// Logger returns the logger built for the last run, or nil before flags were parsed.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Execute parses args and runs the listing. Errors, except a user abort, are
// reported on stderr before being returned.
func (a *App) Execute(args []string) error {
	// cobra falls back to os.Args when given nil.
	if args == nil {
		args = []string{}
	}

	root := a.newRootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.Execute()
	if err != nil && !errors.Is(err, listfiles.ErrAborted) {
		if a.reporter == nil {
			a.reporter = status.New(a.stderr, false)
		}
		a.reporter.Error(err)
	}
	return err
}

// ExitCode maps a run result to the process exit status: 0 for success and
// user aborts, 2 for invalid patterns, 1 otherwise.
func ExitCode(err error) int {
	var perr *ignore.PatternError
	switch {
	case err == nil, errors.Is(err, listfiles.ErrAborted):
		return 0
	case errors.As(err, &perr):
		return 2
	default:
		return 1
	}
}

func (a *App) newRootCommand() *cobra.Command {
	var (
		flagCfg    = listfiles.DefaultConfig()
		configPath string
	)

	cmd := &cobra.Command{
		Use:   appName + " [flags] <pattern>",
		Short: "List files matching a glob pattern and print their contents",
		Long: `listfiles finds files matching a glob pattern (e.g. "*.go") in a directory,
optionally in all subdirectories, and prints each file's relative path followed by
its contents in a fenced block. Use --names-only to print paths alone and --output
to write to a file instead of standard output.`,
		Args:          cobra.ExactArgs(1),
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := listfiles.DefaultConfig()
			cfg.IfExists = ""
			if configPath != "" {
				if err := listfiles.LoadConfigFile(a.fs, configPath, &cfg); err != nil {
					return err
				}
			}
			mergeFlags(cmd, &cfg, flagCfg)
			policySet := cfg.IfExists != ""
			if !policySet {
				cfg.IfExists = listfiles.DefaultConfig().IfExists
			}
			cfg.Pattern = args[0]
			return a.run(cfg, policySet)
		},
	}
	cmd.SetVersionTemplate(version.Get().String() + "\n")

	flags := cmd.Flags()
	flags.BoolVarP(&flagCfg.Recursive, "recursive", "r", false, "search all subdirectories")
	flags.StringVarP(&flagCfg.Directory, "directory", "d", flagCfg.Directory, "directory to search")
	flags.StringVarP(&flagCfg.Output, "output", "o", "", "write to this file instead of standard output")
	flags.BoolVarP(&flagCfg.Append, "append", "a", false, "append to the output file without asking")
	flags.StringArrayVarP(&flagCfg.Excludes, "exclude", "x", nil, "skip paths matching this regular expression (repeatable)")
	flags.BoolVarP(&flagCfg.NamesOnly, "names-only", "n", false, "print relative paths only, without contents")
	flags.BoolVar(&flagCfg.Hidden, "hidden", flagCfg.Hidden, "include dotfiles and files in dot-directories")
	flags.StringArrayVar(&flagCfg.IgnoreFiles, "ignore-file", nil, "gitignore-style file of paths to skip (repeatable)")
	flags.StringVar(&flagCfg.IfExists, "if-exists", flagCfg.IfExists, "when the output file exists: prompt, overwrite, append or fail")
	flags.BoolVarP(&flagCfg.Verbose, "verbose", "v", false, "enable debug logging on stderr")
	flags.BoolVar(&flagCfg.NoColor, "no-color", false, "disable coloured status output")
	flags.StringVar(&configPath, "config", "", "YAML file providing default values for these flags")

	return cmd
}

// mergeFlags copies every flag the user set explicitly from f into cfg, so that
// flags override config-file values and config-file values override defaults.
func mergeFlags(cmd *cobra.Command, cfg *listfiles.Config, f listfiles.Config) {
	changed := cmd.Flags().Changed

	if changed("recursive") {
		cfg.Recursive = f.Recursive
	}
	if changed("directory") {
		cfg.Directory = f.Directory
	}
	if changed("output") {
		cfg.Output = f.Output
	}
	if changed("append") {
		cfg.Append = f.Append
	}
	if changed("exclude") {
		cfg.Excludes = f.Excludes
	}
	if changed("names-only") {
		cfg.NamesOnly = f.NamesOnly
	}
	if changed("hidden") {
		cfg.Hidden = f.Hidden
	}
	if changed("ignore-file") {
		cfg.IgnoreFiles = f.IgnoreFiles
	}
	if changed("if-exists") {
		cfg.IfExists = f.IfExists
	}
	if changed("verbose") {
		cfg.Verbose = f.Verbose
	}
	if changed("no-color") {
		cfg.NoColor = f.NoColor
	}
}

// run executes the listing. Without an explicit --if-exists or config value, a
// non-terminal stdin cannot answer the overwrite prompt, so an existing output
// file is treated as an error instead.
func (a *App) run(cfg listfiles.Config, policySet bool) error {
	logger, err := logging.Setup(cfg.Verbose, appName, version.Get().Version)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	a.reporter = status.New(a.stderr, cfg.NoColor)

	if f, ok := a.stdin.(*os.File); ok && !policySet && !cfg.Append && !prompt.IsInteractive(f) {
		logger.Debug("stdin is not a terminal, existing output files are not overwritten")
		cfg.IfExists = "fail"
	}

	return listfiles.Run(cfg, listfiles.Env{
		Fs:       a.fs,
		Stdout:   a.stdout,
		Status:   a.reporter,
		Resolver: prompt.NewConsole(a.stdin, a.stderr),
		Logger:   logger,
	})
}
