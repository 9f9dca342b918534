package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/store"
)

// ReplayOwnerResult holds the replay result for a single owner.
type ReplayOwnerResult struct {
	Owner         string          `json:"owner"`
	Groups        int             `json:"groups"`
	Fingerprint   string          `json:"fingerprint,omitempty"`
	Notebooks     []NotebookStats `json:"notebooks"`
	Deterministic bool            `json:"deterministic"`
	Error         string          `json:"error,omitempty"`
	ErrorCode     string          `json:"error_code,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Owners           []ReplayOwnerResult `json:"owners"`
	TotalOwners      int                 `json:"total_owners"`
	AllDeterministic bool                `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [owner...]",
		Short: "Replay stored histories and verify determinism",
		Long: `Rebuild notebooks from the stored action histories.

Each owner's history is read and replayed twice; both replays must produce
the same notebooks. Without arguments every stored owner is replayed.

Exit codes:
  0 - Every history replays, deterministically
  1 - A replay failed or differed (unknown text, out-of-range location)
  2 - Command error (database error, etc.)

Examples:
  ascribe replay --db ./ascribe.db --bibles kjv.txt
  ascribe replay alice bob
  ascribe replay --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), rootOpts, args, cmd)
		},
	}
	return cmd
}

func runReplay(ctx context.Context, opts *RootOptions, owners []string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	ws, err := opts.openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	st := ws.Store()
	if len(owners) == 0 {
		owners, err = st.ListOwners(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list owners", err)
		}
	}

	result := ReplayResult{
		Owners:           make([]ReplayOwnerResult, 0, len(owners)),
		TotalOwners:      len(owners),
		AllDeterministic: true,
	}
	for _, owner := range owners {
		out.VerboseLog("replaying %s", owner)
		r, err := replayOwner(ctx, st, ws.Library(), owner)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay %s", owner), err)
		}
		result.Owners = append(result.Owners, r)
		if !r.Deterministic {
			result.AllDeterministic = false
		}
	}

	text := func(w io.Writer) { writeReplayText(w, result) }
	if !result.AllDeterministic {
		return out.Failure(ExitFailure, "E_REPLAY", "replay failed or differed", result, text)
	}
	return out.Success(result, text)
}

// replayOwner replays owner twice. Replay errors are reported in the result;
// only storage errors are returned.
func replayOwner(ctx context.Context, st *store.Store, resolver bible.Resolver, owner string) (ReplayOwnerResult, error) {
	r := ReplayOwnerResult{Owner: owner, Notebooks: []NotebookStats{}}

	first, err := st.Replay(ctx, owner, resolver)
	if err != nil {
		var re *action.ReplayError
		if !errors.As(err, &re) {
			return r, err
		}
		r.Groups, _ = st.CountGroups(ctx, owner)
		r.Error = err.Error()
		r.ErrorCode = string(re.Code)
		return r, nil
	}

	second, err := st.Replay(ctx, owner, resolver)
	if err != nil {
		return r, fmt.Errorf("second replay: %w", err)
	}

	r.Groups = first.Groups
	r.Fingerprint = first.Fingerprint
	r.Notebooks = statsOfMap(first.Notebooks)
	r.Deterministic = first.Fingerprint == second.Fingerprint &&
		reflect.DeepEqual(first.Notebooks, second.Notebooks)
	return r, nil
}

func writeReplayText(w io.Writer, result ReplayResult) {
	if result.TotalOwners == 0 {
		fmt.Fprintln(w, "No histories found in database.")
		return
	}

	fmt.Fprintf(w, "Replayed %d owner(s):\n", result.TotalOwners)
	for _, r := range result.Owners {
		switch {
		case r.Error != "":
			fmt.Fprintf(w, "  ✗ %s (%d groups): %s\n", r.Owner, r.Groups, r.Error)
		case !r.Deterministic:
			fmt.Fprintf(w, "  ✗ %s (%d groups): replays differ\n", r.Owner, r.Groups)
		default:
			fmt.Fprintf(w, "  ✓ %s (%d groups, %.12s)\n", r.Owner, r.Groups, r.Fingerprint)
		}
		for _, nb := range r.Notebooks {
			fmt.Fprintf(w, "      %s: %d categories, %d notes, %d words\n", nb.Name, nb.Categories, nb.Notes, nb.Words)
		}
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "All histories replay deterministically.")
	}
}
