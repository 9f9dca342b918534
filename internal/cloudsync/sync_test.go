package cloudsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/history"
	"github.com/roach88/ascribe/internal/notebook"
	"github.com/roach88/ascribe/internal/remote"
	"github.com/roach88/ascribe/internal/save"
	"github.com/roach88/ascribe/internal/session"
	"github.com/roach88/ascribe/internal/testutil"
)

type testResolver map[string]bible.ChapterSource

func (r testResolver) Lookup(name string) (bible.ChapterSource, bool) {
	src, ok := r[name]
	return src, ok
}

var (
	gen1     = bible.ChapterIndex{}
	resolver = testResolver{"KJV": bible.ViewSource{gen1: {3, 2, 4}}}
)

func device(t *testing.T, prefix string) *session.Handler {
	t.Helper()
	h, err := session.New(history.History{}, resolver,
		session.WithClock(testutil.NewDeterministicClock()),
		session.WithIDGenerator(testutil.NewSequentialIDs(prefix)),
	)
	require.NoError(t, err)
	return h
}

func noteAction(id string) action.Action {
	return action.Action{Notebook: "study", BibleName: "KJV", Type: action.CreateNote{Note: notebook.NoteData{
		ID:   id,
		Text: "note " + id,
		Locations: []bible.ReferenceLocation{{
			Chapter: gen1,
			Range:   bible.WordRange{VerseStart: 0, WordStart: 0, VerseEnd: 0, WordEnd: 1},
		}},
	}}}
}

func categoryAction(id string) action.Action {
	return action.Action{Notebook: "study", BibleName: "KJV", Type: action.CreateHighlight{
		Category: notebook.HighlightCategory{ID: id, Name: id},
	}}
}

func TestSync_TwoDevicesConverge(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemory()
	a, b := device(t, "a"), device(t, "b")
	syncA, syncB := New(store, "alice"), New(store, "alice")

	require.NoError(t, a.PushAction(noteAction("n1")))
	res, err := syncA.Sync(ctx, a)
	require.NoError(t, err)
	assert.False(t, res.RemoteFound)
	assert.True(t, res.Wrote)
	assert.Equal(t, 1, res.MergedGroups)

	require.NoError(t, b.PushAction(categoryAction("h1")))
	res, err = syncB.Sync(ctx, b)
	require.NoError(t, err)
	assert.True(t, res.RemoteFound)
	assert.Equal(t, 1, res.RemoteGroups)
	assert.Equal(t, 2, res.MergedGroups)
	assert.True(t, res.Wrote)

	res, err = syncA.Sync(ctx, a)
	require.NoError(t, err)
	assert.False(t, res.Wrote, "remote already holds the merge")
	assert.Equal(t, 2, store.Writes())

	nbA, ok := a.Notebook("study")
	require.True(t, ok)
	nbB, ok := b.Notebook("study")
	require.True(t, ok)
	assert.Equal(t, nbA, nbB)
	assert.True(t, nbA.HasNote("n1"))
	_, ok = nbA.Category("h1")
	assert.True(t, ok)
	assert.Equal(t, a.History().Fingerprint(), b.History().Fingerprint())
}

func TestSync_WritesOwner(t *testing.T) {
	store := remote.NewMemory()
	h := device(t, "a")
	require.NoError(t, h.PushAction(noteAction("n1")))

	_, err := New(store, "alice").Sync(context.Background(), h)
	require.NoError(t, err)

	data, found, err := store.Read(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	rs, err := save.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "alice", rs.NoteRecordSave.Owner())
	assert.Equal(t, save.CurrentVersion, rs.NoteRecordSave.SaveVersion)
}

func TestSync_ReadFailureIsTransient(t *testing.T) {
	store := remote.NewMemory()
	boom := errors.New("connection reset")
	store.SetErrors(boom, nil)

	h := device(t, "a")
	require.NoError(t, h.PushAction(noteAction("n1")))

	_, err := New(store, "alice").Sync(context.Background(), h)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "will retry")

	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpRead, se.Op)
	assert.Equal(t, 1, h.Pending(), "a failed read leaves the session untouched")
}

func TestSync_WriteFailureKeepsMergeLocally(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemory()

	b := device(t, "b")
	require.NoError(t, b.PushAction(categoryAction("h1")))
	_, err := New(store, "alice").Sync(ctx, b)
	require.NoError(t, err)

	a := device(t, "a")
	require.NoError(t, a.PushAction(noteAction("n1")))
	boom := errors.New("quota exceeded")
	store.SetErrors(nil, boom)

	syncA := New(store, "alice")
	_, err = syncA.Sync(ctx, a)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 2, a.History().Len(), "merged history survives the failed write")

	store.SetErrors(nil, nil)
	res, err := syncA.Sync(ctx, a)
	require.NoError(t, err)
	assert.True(t, res.Wrote)
	assert.Equal(t, 1, res.RemoteGroups)
}

func TestSync_DecodeFailureIsNotTransient(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemory()
	require.NoError(t, store.Write(ctx, []byte(`{"note_record_save":{"history":{"groups":[]},"save_version":"9","owner_id":null}}`)))

	_, err := New(store, "alice").Sync(ctx, device(t, "a"))
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.ErrorIs(t, err, save.ErrUnsupportedVersion)
	assert.NotContains(t, err.Error(), "will retry")
}

func TestSync_MergeFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemory()

	foreign := history.New(history.NewGroup(testutil.NameID("foreign"), testutil.Epoch, []action.Action{{
		Notebook:  "study",
		BibleName: "NIV",
		Type:      action.CreateHighlight{Category: notebook.HighlightCategory{ID: "h9", Name: "h9"}},
	}}))
	blob, err := save.EncodeHistory(foreign, "alice", false)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, blob))

	h := device(t, "a")
	require.NoError(t, h.PushAction(noteAction("n1")))

	_, err = New(store, "alice").Sync(ctx, h)
	require.Error(t, err)
	assert.True(t, action.IsMissingBible(err))

	var se *SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpMerge, se.Op)
	assert.Equal(t, 1, h.History().Len())
	assert.Equal(t, 1, store.Writes())
}

func TestSync_OwnerMismatchStillMerges(t *testing.T) {
	ctx := context.Background()
	store := remote.NewMemory()

	b := device(t, "b")
	require.NoError(t, b.PushAction(categoryAction("h1")))
	_, err := New(store, "bob").Sync(ctx, b)
	require.NoError(t, err)

	a := device(t, "a")
	res, err := New(store, "alice").Sync(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MergedGroups)
	assert.False(t, res.Wrote)
}

func TestSync_Timeout(t *testing.T) {
	s := New(remote.NewMemory(), "alice", WithTimeout(time.Nanosecond))
	ctx, cancel := s.bound(context.Background())
	defer cancel()

	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
