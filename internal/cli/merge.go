package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/history"
	"github.com/roach88/ascribe/internal/save"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Output string
	Pretty bool
	Verify bool
}

// MergeResult summarizes a merge of two saves.
type MergeResult struct {
	Owner       string          `json:"owner"`
	LeftGroups  int             `json:"left_groups"`
	RightGroups int             `json:"right_groups"`
	Groups      int             `json:"groups"`
	Fingerprint string          `json:"fingerprint"`
	Output      string          `json:"output"`
	Notebooks   []NotebookStats `json:"notebooks,omitempty"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge <left.json> <right.json>",
		Short: "Merge two saved histories",
		Long: `Merge two remote saves into one without touching the database.

The union of both histories is written to --output, or to stdout when no
output file is named. With --verify the merged history is replayed against
the loaded texts first.

Exit codes:
  0 - Merged
  1 - The merged history does not replay (with --verify)
  2 - Command error (unreadable or unsupported save)

Examples:
  ascribe merge laptop.json phone.json -o merged.json
  ascribe merge a.json b.json --verify --bibles kjv.txt --pretty`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the merged save here (default stdout)")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "indent the merged save")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "replay the merged history against the loaded texts")

	return cmd
}

func runMerge(opts *MergeOptions, leftPath, rightPath string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	left, err := readSave(leftPath)
	if err != nil {
		return err
	}
	right, err := readSave(rightPath)
	if err != nil {
		return err
	}

	owner := left.NoteRecordSave.Owner()
	if other := right.NoteRecordSave.Owner(); owner == "" {
		owner = other
	} else if other != "" && other != owner {
		slog.Warn("merging saves of different owners", "left", owner, "right", other)
	}

	lh, rh := left.NoteRecordSave.History, right.NoteRecordSave.History
	merged := history.Merge(lh, rh)

	res := MergeResult{
		Owner:       owner,
		LeftGroups:  lh.Len(),
		RightGroups: rh.Len(),
		Groups:      merged.Len(),
		Fingerprint: merged.Fingerprint(),
		Output:      opts.Output,
	}

	if opts.Verify {
		lib, err := bible.LoadLibrary(opts.Config.Bibles...)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load texts", err)
		}
		notebooks, err := merged.ToNotebookMap(lib)
		if err != nil {
			msg := fmt.Sprintf("merged history does not replay: %v", err)
			return out.Failure(ExitFailure, "E_REPLAY", msg, res, func(w io.Writer) {
				fmt.Fprintf(w, "✗ %s\n", msg)
			})
		}
		res.Notebooks = statsOfMap(notebooks)
	}

	data, err := save.EncodeHistory(merged, owner, opts.Pretty)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode merged save", err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write merged save", err)
	}
	return out.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "✓ merged %d + %d groups into %d (%s)\n", res.LeftGroups, res.RightGroups, res.Groups, opts.Output)
	})
}

func readSave(path string) (save.RemoteSave, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return save.RemoteSave{}, WrapExitError(ExitCommandError, "failed to read save", err)
	}
	s, err := save.Decode(data)
	if err != nil {
		return save.RemoteSave{}, WrapExitError(ExitCommandError, fmt.Sprintf("failed to decode %s", path), err)
	}
	return s, nil
}
