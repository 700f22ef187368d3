package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/todo-copilot/internal/app"
	"github.com/idilsaglam/todo-copilot/internal/auth"
	"github.com/idilsaglam/todo-copilot/internal/config"
	"github.com/idilsaglam/todo-copilot/internal/mcp"
	"github.com/idilsaglam/todo-copilot/internal/tui"
	"github.com/idilsaglam/todo-copilot/internal/ui"
)

// Exit codes returned by Execute.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Options are the root flags shared by every subcommand.
type Options struct {
	ConfigPath string
	Addr       string
	AgentPath  string
	Seed       string
	Snapshot   string
	Theme      string
	LogFile    string
	URL        string // agent endpoint for client commands
	Token      string
	Color      bool
	NoColor    bool

	cfg *config.Config
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ue usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	return ExitError
}

// Execute runs the CLI and returns the exit code. Errors are reported on
// stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		ui.Fail(stderr, err.Error())
		if ExitCode(err) == ExitUsage {
			fmt.Fprintln(stderr, ui.Dim("Hint: run `todo --help` for usage"))
		}
	}
	return ExitCode(err)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "Todo list with an AI assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		Example: strings.TrimSpace(`
  # Terminal UI plus browser UI and assistant endpoint
  todo

  # Headless server
  todo serve --seed todos.json

  # Talk to a running server the way the assistant does
  todo ls
  todo agent context
  todo agent update --text "Buy milk" --assign Alice
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), opts)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file (env "+config.EnvConfig+")")
	f.StringVar(&opts.Addr, "addr", "", "listen address")
	f.StringVar(&opts.AgentPath, "agent-path", "", "path of the assistant endpoint")
	f.StringVar(&opts.Seed, "seed", "", "JSON file loaded at startup")
	f.StringVar(&opts.Snapshot, "snapshot", "", "JSON file written at shutdown")
	f.StringVar(&opts.Theme, "theme", "", strings.Join(ui.Themes(), "|"))
	f.StringVar(&opts.LogFile, "log-file", "", "log file used while the terminal UI runs")
	f.StringVar(&opts.URL, "url", "", "assistant endpoint for client commands (default from --addr)")
	f.StringVar(&opts.Token, "token", "", "agent token (default: "+auth.TokenEnv+" or the saved login)")
	f.BoolVar(&opts.Color, "color", false, "force colored output")
	f.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newLsCmd(opts))
	cmd.AddCommand(newAgentCmd(opts))
	cmd.AddCommand(newAuthCmd(opts))
	return cmd
}

// load builds the config: defaults, file, environment, then flags.
func (o *Options) load() error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return usageError{err}
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Addr, o.Addr)
	set(&cfg.Agent.Path, o.AgentPath)
	set(&cfg.Seed, o.Seed)
	set(&cfg.Snapshot, o.Snapshot)
	set(&cfg.Theme, o.Theme)
	set(&cfg.LogFile, o.LogFile)
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}
	o.cfg = cfg

	ui.SetColorForcing(o.Color, o.NoColor)
	ui.SetTheme(cfg.Theme)
	return nil
}

// client returns an MCP client for the configured endpoint.
func (o *Options) client() (*mcp.Client, error) {
	url := o.URL
	if url == "" {
		url = o.cfg.AgentURL()
	}
	token := o.Token
	if token == "" {
		ti, err := auth.GetToken()
		switch {
		case err == nil:
			token = ti.Token
		case errors.Is(err, auth.ErrNoToken):
		default:
			return nil, err
		}
	}
	return mcp.NewClient(url, token), nil
}

func runInteractive(ctx context.Context, opts *Options) error {
	cfg := opts.cfg
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "todo")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- a.Serve(ctx, ln) }()

	tuiErr := tui.Run(ctx, a.TUIOptions())
	cancel()
	return errors.Join(tuiErr, <-served)
}
