package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/cloudsync"
	"github.com/roach88/ascribe/internal/config"
	"github.com/roach88/ascribe/internal/history"
	"github.com/roach88/ascribe/internal/notebook"
	"github.com/roach88/ascribe/internal/remote"
	"github.com/roach88/ascribe/internal/testutil"
)

const miniText = "../bible/testdata/mini.txt"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database = filepath.Join(t.TempDir(), "ascribe.db")
	cfg.Bibles = []string{miniText}
	return cfg
}

func openWorkspace(t *testing.T, cfg config.Config, prefix string, opts ...Option) *Workspace {
	t.Helper()
	opts = append([]Option{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDs(prefix)),
	}, opts...)
	w, err := Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func noteAction(id string) action.Action {
	return action.Action{Notebook: "study", BibleName: "MINI", Type: action.CreateNote{Note: notebook.NoteData{
		ID:   id,
		Text: "In the beginning",
		Locations: []bible.ReferenceLocation{{
			Chapter: bible.ChapterIndex{Book: 0, Number: 0},
			Range:   bible.WordRange{VerseStart: 0, WordStart: 0, VerseEnd: 0, WordEnd: 2},
		}},
	}}}
}

func TestOpen_LoadsLibrary(t *testing.T) {
	w := openWorkspace(t, testConfig(t), "a")
	assert.Equal(t, []string{"MINI"}, w.Library().Names())
}

func TestOpen_MissingBible(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bibles = []string{filepath.Join(t.TempDir(), "missing.txt")}

	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOwner(t *testing.T) {
	cfg := testConfig(t)
	w := openWorkspace(t, cfg, "a")
	assert.Equal(t, DefaultOwner, w.Owner(""))
	assert.Equal(t, "bob", w.Owner("bob"))

	cfg.Owner = "alice"
	w2 := openWorkspace(t, cfg, "b")
	assert.Equal(t, "alice", w2.Owner(""))
}

func TestHandler_SameInstancePerOwner(t *testing.T) {
	w := openWorkspace(t, testConfig(t), "a")
	ctx := context.Background()

	h1, err := w.Handler(ctx, "alice")
	require.NoError(t, err)
	h2, err := w.Handler(ctx, "alice")
	require.NoError(t, err)
	h3, err := w.Handler(ctx, "bob")
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.NotSame(t, h1, h3)
}

func TestSave_ReloadsOnReopen(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	w, err := Open(ctx, cfg, WithIDGenerator(testutil.NewSequentialIDs("a")))
	require.NoError(t, err)
	h, err := w.Handler(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, h.PushAction(noteAction("n1")))

	added, err := w.Save(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.NoError(t, w.Close())

	reopened := openWorkspace(t, cfg, "a")
	h, err = reopened.Handler(ctx, "alice")
	require.NoError(t, err)
	nb, ok := h.Notebook("study")
	require.True(t, ok)
	assert.True(t, nb.HasNote("n1"))

	owners, err := reopened.Owners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, owners)
}

func TestImport_MergesAndPersists(t *testing.T) {
	ctx := context.Background()
	w := openWorkspace(t, testConfig(t), "a")

	incoming := history.New(history.NewGroup(testutil.NameID("phone"), testutil.Epoch, []action.Action{noteAction("n1")}))
	merged, err := w.Import(ctx, "alice", incoming)
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Len())

	n, err := w.Store().CountGroups(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSync_NoRemote(t *testing.T) {
	w := openWorkspace(t, testConfig(t), "a")

	_, err := w.Sync(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestSync_FileRemoteBetweenDevices(t *testing.T) {
	ctx := context.Background()
	remoteDir := t.TempDir()

	laptopCfg := testConfig(t)
	laptopCfg.Remote = config.Remote{Kind: config.RemoteFile, Path: filepath.Join(remoteDir, "{owner}.json")}
	phoneCfg := laptopCfg
	phoneCfg.Database = filepath.Join(t.TempDir(), "phone.db")

	laptop := openWorkspace(t, laptopCfg, "laptop")
	phone := openWorkspace(t, phoneCfg, "phone")

	h, err := laptop.Handler(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, h.PushAction(noteAction("n1")))

	res, err := laptop.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, res.Wrote)
	assert.FileExists(t, filepath.Join(remoteDir, "alice.json"))

	res, err = phone.Sync(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.MergedGroups)
	assert.False(t, res.Wrote)

	ph, err := phone.Handler(ctx, "alice")
	require.NoError(t, err)
	nb, ok := ph.Notebook("study")
	require.True(t, ok)
	assert.True(t, nb.HasNote("n1"))

	last, ok, err := phone.Store().LastSync(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.Fingerprint, last.Fingerprint)

	n, err := phone.Store().CountGroups(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "synced groups are persisted locally")
}

func TestSync_WriteFailurePersistsMerge(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	mem.SetErrors(nil, errors.New("offline"))

	w := openWorkspace(t, testConfig(t), "a", WithRemote(mem))
	h, err := w.Handler(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, h.PushAction(noteAction("n1")))

	_, err = w.Sync(ctx, "alice")
	require.Error(t, err)
	assert.True(t, cloudsync.IsTransient(err))

	n, err := w.Store().CountGroups(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := w.Store().LastSync(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "a failed sync is not recorded")
}
