package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/ascribe/internal/action"
)

// PushOptions holds flags for the push command.
type PushOptions struct {
	*RootOptions
	Notebook string
}

// PushResult describes an accepted action.
type PushResult struct {
	Owner    string `json:"owner"`
	Notebook string `json:"notebook"`
	Bible    string `json:"bible"`
	Kind     string `json:"kind"`
	Groups   int    `json:"groups"`
	Added    int    `json:"added"`
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PushOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "push [action.json|-]",
		Short: "Apply one action and persist it",
		Long: `Validate an action, apply it to the owner's notebooks and append it to
the local history.

The action is read from the named file, or from stdin when the argument is
"-" or missing. It uses the tagged JSON layout:

  {"notebook": "study", "bible_name": "KJV",
   "action": {"DeleteNote": "n1"}}

An empty bible_name falls back to the configured default text.

Exit codes:
  0 - Action applied and saved
  1 - Action rejected (invalid, out of range, unknown text)
  2 - Command error (unreadable input, database error)

Examples:
  ascribe push note.json
  echo '{"notebook":"study","bible_name":"KJV","action":{"DeleteNote":"n1"}}' | ascribe push`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runPush(cmd.Context(), opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Notebook, "notebook", "", "notebook for actions that name none")

	return cmd
}

func runPush(ctx context.Context, opts *PushOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	data, err := readInput(cmd, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read action", err)
	}

	var a action.Action
	if err := json.Unmarshal(data, &a); err != nil {
		return WrapExitError(ExitCommandError, "failed to decode action", err)
	}
	if a.Notebook == "" {
		a.Notebook = opts.Notebook
	}
	if a.BibleName == "" {
		a.BibleName = opts.Config.DefaultBible
	}

	ws, err := opts.openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	h, err := ws.Handler(ctx, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load history", err)
	}
	if err := h.PushAction(a); err != nil {
		return rejectAction(out, err)
	}

	added, err := ws.Save(ctx, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to save history", err)
	}

	res := PushResult{
		Owner:    ws.Owner(""),
		Notebook: a.Notebook,
		Bible:    a.BibleName,
		Kind:     string(a.Type.Kind()),
		Groups:   h.History().Len(),
		Added:    added,
	}
	out.VerboseLog("owner %s now has %d groups", res.Owner, res.Groups)
	return out.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s applied to %s (%s)\n", res.Kind, res.Notebook, res.Bible)
	})
}

// rejectAction reports an action that was not applied.
func rejectAction(out *OutputFormatter, err error) error {
	code := "E_ACTION"
	var re *action.ReplayError
	switch {
	case errors.As(err, &re):
		code = string(re.Code)
	case errors.Is(err, action.ErrInvalidAction):
		code = string(action.ErrCodeInvalidAction)
	}
	msg := fmt.Sprintf("action rejected: %v", err)
	return out.Failure(ExitFailure, code, msg, nil, func(w io.Writer) {
		fmt.Fprintf(w, "✗ %s\n", msg)
	})
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
