package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ascribe/internal/config"
	"github.com/roach88/ascribe/internal/workspace"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Config is loaded by the root command before any subcommand runs.
	Config config.Config

	// workspaceOpts are handed to every workspace a command opens.
	workspaceOpts []workspace.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ascribe CLI.
func NewRootCommand(wsOpts ...workspace.Option) *cobra.Command {
	opts := &RootOptions{workspaceOpts: wsOpts}

	cmd := &cobra.Command{
		Use:   "ascribe",
		Short: "ascribe - synced scripture annotations",
		Long: `Notes and highlights on scripture texts, kept as an append-only
action history that merges cleanly between devices.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default ./ascribe.yaml)")

	// Config overrides; names match the config package's flag table.
	pf.String("db", "", "path to SQLite database")
	pf.String("owner", "", "owner id")
	pf.String("bible", "", "default text name for actions that name none")
	pf.StringSlice("bibles", nil, "text files to load")
	pf.Int("group-window", 0, "seconds during which consecutive actions share a group")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")
	pf.String("remote", "", "remote kind (none|file|s3|redis)")
	pf.String("remote-path", "", "remote save path for --remote file")

	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewMergeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// load reads the layered config and installs the default logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{File: o.ConfigFile, Flags: cmd.Flags()})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := cfg.Log.Logger(cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	slog.SetDefault(logger)

	o.Config = cfg
	return nil
}

// openWorkspace opens the configured workspace. Callers close it.
func (o *RootOptions) openWorkspace(ctx context.Context) (*workspace.Workspace, error) {
	ws, err := workspace.Open(ctx, o.Config, o.workspaceOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open workspace", err)
	}
	return ws, nil
}
