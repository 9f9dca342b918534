package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/save"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
	Pretty bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the owner's history as a save file",
		Long: `Write the owner's stored history in the remote save layout, to --output
or stdout.

Examples:
  ascribe export --owner alice -o alice.json
  ascribe export --pretty`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "indent the save")

	return cmd
}

func runExport(ctx context.Context, opts *ExportOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	ws, err := opts.openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	owner := ws.Owner("")
	hist, err := ws.Store().ReadHistory(ctx, owner)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	data, err := save.EncodeHistory(hist, owner, opts.Pretty)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode save", err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write save", err)
	}

	res := map[string]any{"owner": owner, "groups": hist.Len(), "output": opts.Output}
	return out.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "✓ exported %d groups of %s to %s\n", hist.Len(), owner, opts.Output)
	})
}

// ImportResult summarizes an import.
type ImportResult struct {
	Owner       string `json:"owner"`
	Imported    int    `json:"imported"`
	Groups      int    `json:"groups"`
	Fingerprint string `json:"fingerprint"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <save.json|->",
		Short: "Merge a save file into the owner's history",
		Long: `Merge the history of a save file into the owner's local history and
persist the result. Groups already present are skipped.

Exit codes:
  0 - Imported
  1 - The merged history does not replay
  2 - Command error (unreadable or unsupported save)

Examples:
  ascribe import phone.json --bibles kjv.txt
  cat phone.json | ascribe import -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	data, err := readInput(cmd, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read save", err)
	}
	s, err := save.Decode(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode save", err)
	}

	ws, err := opts.openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	owner := ws.Owner("")
	incoming := s.NoteRecordSave.History
	merged, err := ws.Import(ctx, owner, incoming)
	if err != nil {
		var re *action.ReplayError
		if errors.As(err, &re) {
			return rejectAction(out, err)
		}
		return WrapExitError(ExitCommandError, "failed to import", err)
	}

	res := ImportResult{
		Owner:       owner,
		Imported:    incoming.Len(),
		Groups:      merged.Len(),
		Fingerprint: merged.Fingerprint(),
	}
	return out.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "✓ imported %d groups into %s (%d total)\n", res.Imported, owner, res.Groups)
	})
}
