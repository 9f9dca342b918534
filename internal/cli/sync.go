package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ascribe/internal/cloudsync"
	"github.com/roach88/ascribe/internal/workspace"
)

// SyncResult is the outcome of one sync.
type SyncResult struct {
	Owner string `json:"owner"`
	cloudsync.Result
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local history with the remote save",
		Long: `Read the remote save, merge it into the local history, and write the
merged history back when it differs from what the remote holds.

The merge is kept locally even when writing the remote fails.

Exit codes:
  0 - Synced
  1 - Sync failed; read and write failures are worth retrying
  2 - Command error (no remote configured, database error)

Examples:
  ascribe sync --remote file --remote-path ~/Dropbox/ascribe/{owner}.json
  ascribe sync --owner alice --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), rootOpts, cmd)
		},
	}
	return cmd
}

func runSync(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	ws, err := opts.openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	owner := ws.Owner("")
	res, err := ws.Sync(ctx, owner)
	if err != nil {
		if errors.Is(err, workspace.ErrNoRemote) {
			return WrapExitError(ExitCommandError, "cannot sync", err)
		}
		var se *cloudsync.SyncError
		if !errors.As(err, &se) {
			return WrapExitError(ExitCommandError, "sync failed", err)
		}
		code := "E_SYNC_" + string(se.Op)
		return out.Failure(ExitFailure, code, err.Error(), SyncResult{Owner: owner, Result: res}, func(w io.Writer) {
			fmt.Fprintf(w, "✗ %v\n", err)
		})
	}

	data := SyncResult{Owner: owner, Result: res}
	return out.Success(data, func(w io.Writer) {
		remote := "remote empty"
		if res.RemoteFound {
			remote = fmt.Sprintf("remote had %d groups", res.RemoteGroups)
		}
		action := "remote up to date"
		if res.Wrote {
			action = "remote updated"
		}
		fmt.Fprintf(w, "✓ %s synced: %s, %d groups merged, %s\n", owner, remote, res.MergedGroups, action)
	})
}
