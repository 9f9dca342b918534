package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/cloudsync"
	"github.com/roach88/ascribe/internal/history"
	"github.com/roach88/ascribe/internal/notebook"
	"github.com/roach88/ascribe/internal/remote"
	"github.com/roach88/ascribe/internal/session"
	"github.com/roach88/ascribe/internal/store"
	"github.com/roach88/ascribe/internal/testutil"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Device  string `json:"device"`
	Op      string `json:"op"`
	Kind    string `json:"kind,omitempty"`
	Outcome string `json:"outcome"`
}

// DeviceState is a device's history after the last step.
type DeviceState struct {
	Name        string       `json:"name"`
	Groups      int          `json:"groups"`
	Fingerprint string       `json:"fingerprint"`
	Notebooks   notebook.Map `json:"-"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as expected, all merge orders
	// agree and every assertion holds.
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`

	Trace   []TraceEvent  `json:"trace"`
	Devices []DeviceState `json:"devices"`

	// Converged is true when every device holds the same history.
	Converged bool `json:"converged"`

	// OrderIndependent is true when merging the device histories in
	// forward and reverse order replays to the same notebooks.
	OrderIndependent bool `json:"order_independent"`

	// MergedGroups and Merged describe the union of all device histories.
	MergedGroups int          `json:"merged_groups"`
	Merged       notebook.Map `json:"-"`
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

func (r *Result) device(name string) (DeviceState, bool) {
	for _, d := range r.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return DeviceState{}, false
}

type device struct {
	name    string
	owner   string
	clock   *testutil.DeterministicClock
	ids     *testutil.SequentialIDs
	handler *session.Handler
}

type runner struct {
	sc      *Scenario
	library bible.Library
	store   *store.Store
	remote  *remote.Memory
	devices map[string]*device
	result  *Result
}

// Run executes a scenario in isolation: a fresh in-memory database, a fresh
// shared remote and deterministic clocks and ids.
//
// An error is returned only when the scenario cannot be set up; step and
// assertion failures are reported in the Result.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	lib, err := bible.LoadLibrary(sc.Bibles...)
	if err != nil {
		return nil, fmt.Errorf("load bibles: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	r := &runner{
		sc:      sc,
		library: lib,
		store:   st,
		remote:  remote.NewMemory(),
		devices: make(map[string]*device, len(sc.Devices)),
		result:  &Result{Pass: true, Trace: []TraceEvent{}},
	}

	for i, name := range sc.Devices {
		d := &device{
			name:  name,
			owner: sc.Name + "/" + name,
			clock: testutil.NewDeterministicClockAt(testutil.Epoch.Add(time.Duration(i)*time.Hour), time.Second),
			ids:   testutil.NewSequentialIDs(sc.Name + "/" + name),
		}
		if err := r.open(d, history.History{}); err != nil {
			return nil, err
		}
		r.devices[name] = d
	}

	for i := range sc.Steps {
		r.step(ctx, i+1, &sc.Steps[i])
	}

	r.finish()

	for _, msg := range evaluate(r.result, sc.Assertions) {
		r.result.AddError(msg)
	}

	slog.Debug("scenario finished",
		"scenario", sc.Name,
		"pass", r.result.Pass,
		"merged_groups", r.result.MergedGroups,
	)
	return r.result, nil
}

func (r *runner) open(d *device, hist history.History) error {
	h, err := session.New(hist, r.library,
		session.WithClock(d.clock),
		session.WithIDGenerator(d.ids),
	)
	if err != nil {
		return fmt.Errorf("open device %s: %w", d.name, err)
	}
	d.handler = h
	return nil
}

func (r *runner) step(ctx context.Context, n int, s *Step) {
	d := r.devices[s.Device]
	ev := TraceEvent{Step: n, Device: s.Device, Op: s.Op()}

	var err error
	switch ev.Op {
	case OpPush:
		a := s.Action()
		if a.Type != nil {
			ev.Kind = string(a.Type.Kind())
		}
		err = d.handler.PushAction(a)
		if err == nil {
			ev.Outcome = "ok"
		}

	case OpCommit:
		d.handler.CommitGroup()
		ev.Outcome = fmt.Sprintf("groups=%d", d.handler.History().Len())

	case OpSync:
		var res cloudsync.Result
		res, err = cloudsync.New(r.remote, r.sc.Name).Sync(ctx, d.handler)
		if err == nil {
			ev.Outcome = fmt.Sprintf("remote_groups=%d merged_groups=%d wrote=%t", res.RemoteGroups, res.MergedGroups, res.Wrote)
		}

	case OpRestart:
		var groups int
		groups, err = r.restart(ctx, d)
		if err == nil {
			ev.Outcome = fmt.Sprintf("groups=%d", groups)
		}
	}

	switch {
	case err != nil:
		code := ErrorCode(err)
		ev.Outcome = "error " + code
		if s.ExpectError == "" {
			r.result.AddError(fmt.Sprintf("step %d (%s %s): unexpected error: %v", n, s.Device, ev.Op, err))
		} else if code != s.ExpectError {
			r.result.AddError(fmt.Sprintf("step %d (%s %s): expected error %s, got %s", n, s.Device, ev.Op, s.ExpectError, code))
		}
	case s.ExpectError != "":
		r.result.AddError(fmt.Sprintf("step %d (%s %s): expected error %s, got success", n, s.Device, ev.Op, s.ExpectError))
	}

	r.result.Trace = append(r.result.Trace, ev)
}

// restart writes the device's history to the store and reopens the device
// from what was read back.
func (r *runner) restart(ctx context.Context, d *device) (int, error) {
	if _, err := r.store.WriteHistory(ctx, d.owner, d.handler.History()); err != nil {
		return 0, err
	}
	hist, err := r.store.ReadHistory(ctx, d.owner)
	if err != nil {
		return 0, err
	}
	if err := r.open(d, hist); err != nil {
		return 0, err
	}
	return hist.Len(), nil
}

// finish commits every device, records device states and checks that the
// merge order does not matter.
func (r *runner) finish() {
	var histories []history.History
	for _, name := range r.sc.Devices {
		h := r.devices[name].handler
		hist := h.History()
		histories = append(histories, hist)

		var notebooks notebook.Map
		h.View(func(m notebook.Map) { notebooks = m.Clone() })
		r.result.Devices = append(r.result.Devices, DeviceState{
			Name:        name,
			Groups:      hist.Len(),
			Fingerprint: hist.Fingerprint(),
			Notebooks:   notebooks,
		})
	}

	r.result.Converged = true
	for _, d := range r.result.Devices[1:] {
		if d.Fingerprint != r.result.Devices[0].Fingerprint {
			r.result.Converged = false
		}
	}

	forward := fold(histories)
	reversed := slices.Clone(histories)
	slices.Reverse(reversed)
	backward := fold(reversed)

	merged, err := forward.ToNotebookMap(r.library)
	if err != nil {
		r.result.AddError(fmt.Sprintf("replay merged history: %v", err))
		return
	}
	r.result.Merged = merged
	r.result.MergedGroups = forward.Len()

	other, err := backward.ToNotebookMap(r.library)
	if err != nil {
		r.result.AddError(fmt.Sprintf("replay reverse-merged history: %v", err))
		return
	}

	r.result.OrderIndependent = forward.Fingerprint() == backward.Fingerprint() && reflect.DeepEqual(merged, other)
	if !r.result.OrderIndependent {
		r.result.AddError("merge order changed the replayed notebooks")
	}
}

func fold(histories []history.History) history.History {
	out := history.History{}
	for _, h := range histories {
		out = history.Merge(out, h)
	}
	return out
}

// ErrorCode classifies err the way expect_error names it.
func ErrorCode(err error) string {
	var re *action.ReplayError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	if errors.Is(err, action.ErrInvalidAction) {
		return string(action.ErrCodeInvalidAction)
	}
	var se *cloudsync.SyncError
	if errors.As(err, &se) {
		return "SYNC_" + strings.ToUpper(string(se.Op))
	}
	return "ERROR"
}
