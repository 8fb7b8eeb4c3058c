package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixian5/homepage-sub000/internal/browser"
	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/document"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/persist"
	"github.com/pixian5/homepage-sub000/internal/reconcile"
	"github.com/pixian5/homepage-sub000/internal/repositories/kv"
	"github.com/pixian5/homepage-sub000/internal/storage"
	"github.com/pixian5/homepage-sub000/internal/transfer"
	"github.com/pixian5/homepage-sub000/internal/undo"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type timers struct{ all []*fakeTimer }

func (ts *timers) afterFunc(_ time.Duration, f func()) undo.Timer {
	t := &fakeTimer{f: f}
	ts.all = append(ts.all, t)
	return t
}

type fakeOpener struct {
	url  string
	mode models.OpenMode
}

func (o *fakeOpener) Open(_ context.Context, url string, mode models.OpenMode) error {
	o.url, o.mode = url, mode
	return nil
}

type fakeHistory []browser.HistoryEntry

func (h fakeHistory) Recent(_ context.Context, limit int) ([]browser.HistoryEntry, error) {
	if limit < len(h) {
		return h[:limit], nil
	}
	return h, nil
}

type fakeTabs struct{ tab browser.Tab }

func (f fakeTabs) Current(context.Context) (browser.Tab, error) { return f.tab, nil }

type env struct {
	local  *kv.MemoryRepository
	synced *kv.MemoryRepository
	store  *storage.Adapter
	timers *timers
}

func newEnv(opts ...storage.Option) *env {
	e := &env{local: kv.NewMemoryRepository(), synced: kv.NewMemoryRepository(), timers: &timers{}}
	e.store = storage.NewAdapter(e.local, e.synced, opts...)
	return e
}

func (e *env) session(t *testing.T, opts ...Option) (Session, reconcile.Result) {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return testNow }),
		WithAfterFunc(e.timers.afterFunc),
	}, opts...)
	s := NewSession(e.store, opts...)
	res, _ := s.Load(context.Background())
	require.True(t, s.Loaded())
	return s, res
}

func homeGroup(t *testing.T, s Session) string {
	t.Helper()
	d := s.Document()
	require.NotEmpty(t, d.Groups)
	return d.Groups[0].ID
}

func TestSession_NotLoaded(t *testing.T) {
	s := NewSession(newEnv().store)
	ctx := context.Background()

	assert.False(t, s.Loaded())
	assert.Nil(t, s.Document())
	_, _, err := s.AddItem(ctx, document.Location{}, models.Node{URL: "example.com"})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.Export(ctx)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestSession_LoadFreshPersistsDefault(t *testing.T) {
	e := newEnv()
	_, res := e.session(t)

	assert.Equal(t, reconcile.WinnerDefault, res.Winner)
	raw, err := e.local.Get(context.Background(), models.DocumentKey)
	require.NoError(t, err)
	require.NotNil(t, raw)
}

func TestSession_AddItemRoundTrip(t *testing.T) {
	e := newEnv()
	s, _ := e.session(t)
	ctx := context.Background()
	g := homeGroup(t, s)

	n, out, err := s.AddItem(ctx, document.Location{GroupID: g}, models.Node{Title: "Go", URL: "go.dev"})
	require.NoError(t, err)
	assert.Equal(t, persist.StatusSaved, out.Status)
	assert.Equal(t, "https://go.dev", n.URL)

	again, res := e.session(t)
	assert.Equal(t, reconcile.WinnerLocal, res.Winner)
	require.Empty(t, cmp.Diff(s.Document(), again.Document(), cmpopts.EquateEmpty()))
}

func TestSession_InvalidURLLeavesDocument(t *testing.T) {
	e := newEnv()
	s, _ := e.session(t)
	ctx := context.Background()
	before := s.Document()
	raw, _ := e.local.Get(ctx, models.DocumentKey)

	_, _, err := s.AddItem(ctx, document.Location{GroupID: homeGroup(t, s)}, models.Node{URL: "javascript:alert(1)"})
	require.ErrorIs(t, err, common.ErrInvalidURL)

	require.Empty(t, cmp.Diff(before, s.Document()))
	after, _ := e.local.Get(ctx, models.DocumentKey)
	assert.Equal(t, raw, after, "nothing written")
}

func TestSession_DeleteAndUndo(t *testing.T) {
	e := newEnv()
	s, _ := e.session(t)
	ctx := context.Background()
	g := homeGroup(t, s)

	a, _, err := s.AddItem(ctx, document.Location{GroupID: g}, models.Node{URL: "a.example"})
	require.NoError(t, err)
	b, _, err := s.AddItem(ctx, document.Location{GroupID: g}, models.Node{URL: "b.example"})
	require.NoError(t, err)
	before := s.Document()

	removed, out, err := s.Delete(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.True(t, out.Persisted())
	assert.ElementsMatch(t, []string{a.ID, b.ID}, removed)
	assert.ElementsMatch(t, removed, s.PendingDelete())

	d := s.Document()
	assert.Empty(t, d.Nodes)
	require.Len(t, d.Backups, 1, "delete is preceded by a backup")

	_, ok := s.Undo(ctx)
	require.True(t, ok)
	d = s.Document()
	assert.Empty(t, cmp.Diff(before, d, cmpopts.IgnoreFields(models.Document{}, "LastUpdated"), cmpopts.EquateEmpty()),
		"undo brings back the pre-delete document, backups included")
	assert.Empty(t, d.Backups)
	assert.Greater(t, d.LastUpdated, before.LastUpdated)

	_, ok = s.Undo(ctx)
	assert.False(t, ok, "nothing left to undo")
}

func TestSession_UndoAfterGraceIsNoop(t *testing.T) {
	e := newEnv()
	s, _ := e.session(t)
	ctx := context.Background()

	a, _, err := s.AddItem(ctx, document.Location{GroupID: homeGroup(t, s)}, models.Node{URL: "a.example"})
	require.NoError(t, err)
	_, _, err = s.Delete(ctx, []string{a.ID})
	require.NoError(t, err)

	require.Len(t, e.timers.all, 1)
	e.timers.all[0].f()

	_, ok := s.Undo(ctx)
	assert.False(t, ok)
	assert.Empty(t, s.Document().Nodes)
}

func TestSession_DeleteUnknownTakesNoBackup(t *testing.T) {
	s, _ := newEnv().session(t)

	_, _, err := s.Delete(context.Background(), []string{"nope"})
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, s.Backups())
}

func TestSession_Groups(t *testing.T) {
	s, _ := newEnv().session(t)
	ctx := context.Background()
	home := homeGroup(t, s)

	g, _, err := s.AddGroup(ctx, "Work")
	require.NoError(t, err)
	_, err = s.RenameGroup(ctx, g.ID, "Office")
	require.NoError(t, err)
	_, err = s.ReorderGroups(ctx, []string{g.ID, home})
	require.NoError(t, err)

	sorted := document.SortedGroups(s.Document())
	assert.Equal(t, []string{"Office", "Home"}, []string{sorted[0].Name, sorted[1].Name})

	n, _, err := s.AddItem(ctx, document.Location{GroupID: g.ID}, models.Node{URL: "work.example"})
	require.NoError(t, err)
	removed, _, err := s.DeleteGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{n.ID}, removed)
	assert.Len(t, s.Backups(), 1)

	_, _, err = s.DeleteGroup(ctx, home)
	assert.ErrorIs(t, err, common.ErrLastGroup)
}

func TestSession_UpdateSettingsKeepsSyncFlag(t *testing.T) {
	s, _ := newEnv().session(t)

	_, err := s.UpdateSettings(context.Background(), func(st *models.Settings) {
		st.Columns = 4
		st.SyncEnabled = true
	})
	require.NoError(t, err)
	d := s.Document()
	assert.Equal(t, 4, d.Settings.Columns)
	assert.False(t, d.Settings.SyncEnabled)
}

func TestSession_SetSyncPrefersNewerSynced(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	remote := document.CreateDefault(testNow)
	remote.Groups[0].Name = "From another device"
	remote.LastUpdated = testNow.Add(time.Hour).UnixMilli()
	raw, err := document.Encode(remote)
	require.NoError(t, err)
	require.NoError(t, e.synced.Set(ctx, models.DocumentKey, raw))

	s, _ := e.session(t)
	winner, out, err := s.SetSync(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, reconcile.WinnerSynced, winner)
	assert.Equal(t, persist.StatusSaved, out.Status)

	d := s.Document()
	assert.True(t, d.Settings.SyncEnabled)
	assert.Equal(t, "From another device", d.Groups[0].Name)

	_, _, err = s.SetSync(ctx, false)
	require.NoError(t, err)
	assert.False(t, s.Document().Settings.SyncEnabled)
}

func TestSession_SetSyncUnavailable(t *testing.T) {
	local := kv.NewMemoryRepository()
	s := NewSession(storage.NewAdapter(local, nil))
	ctx := context.Background()
	s.Load(ctx)

	_, _, err := s.SetSync(ctx, true)
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
	assert.False(t, s.Document().Settings.SyncEnabled)
}

func TestSession_SyncQuotaDisablesSync(t *testing.T) {
	e := newEnv(storage.WithQuota(storage.Synced, storage.Quota{PerItemBytes: 2048}))
	s, _ := e.session(t)
	ctx := context.Background()

	_, out, err := s.SetSync(ctx, true)
	require.NoError(t, err)
	require.Equal(t, persist.StatusSaved, out.Status)

	g := homeGroup(t, s)
	for i := 0; i < 40; i++ {
		_, out, err = s.AddItem(ctx, document.Location{GroupID: g},
			models.Node{Title: "a fairly long bookmark title", URL: "https://example.com/some/long/path"})
		require.NoError(t, err)
		if out.Status != persist.StatusSaved {
			break
		}
	}
	assert.Equal(t, persist.StatusSyncQuotaExceeded, out.Status)
	assert.False(t, s.Document().Settings.SyncEnabled)
	assert.NotEmpty(t, Notice(out))
}

func TestSession_Import(t *testing.T) {
	s, _ := newEnv().session(t)
	ctx := context.Background()
	g := homeGroup(t, s)
	n, _, err := s.AddItem(ctx, document.Location{GroupID: g}, models.Node{Title: "mine", URL: "mine.example"})
	require.NoError(t, err)

	before := s.Document()
	_, _, err = s.Import(ctx, []byte(`{"groups": "nope"}`), transfer.Merge)
	require.ErrorIs(t, err, common.ErrMalformedImport)
	require.Empty(t, cmp.Diff(before, s.Document()), "rejected import changes nothing")

	raw := `{"nodes": {"` + n.ID + `": {"type": "item", "title": "theirs", "url": "theirs.example"},
		"new": {"type": "item", "title": "new", "url": "new.example"}},
		"groups": [{"id": "` + g + `", "nodes": ["` + n.ID + `", "new"]}]}`
	rep, _, err := s.Import(ctx, []byte(raw), transfer.AddOnly)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.AddedNodes)

	d := s.Document()
	assert.Equal(t, "mine", d.Nodes[n.ID].Title)
	assert.Contains(t, d.Nodes, "new")
	assert.Len(t, d.Backups, 1, "import is preceded by a backup")
}

func TestSession_ExportImportReplace(t *testing.T) {
	s, _ := newEnv().session(t)
	ctx := context.Background()
	_, _, err := s.AddItem(ctx, document.Location{GroupID: homeGroup(t, s)}, models.Node{URL: "a.example"})
	require.NoError(t, err)

	raw, err := s.Export(ctx)
	require.NoError(t, err)

	other, _ := newEnv().session(t)
	_, _, err = other.Import(ctx, raw, transfer.Replace)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(s.Document().Nodes, other.Document().Nodes, cmpopts.EquateEmpty()))
}

func TestSession_BackupRestore(t *testing.T) {
	s, _ := newEnv().session(t)
	ctx := context.Background()

	b, _, err := s.TakeBackup(ctx)
	require.NoError(t, err)
	_, _, err = s.AddItem(ctx, document.Location{GroupID: homeGroup(t, s)}, models.Node{URL: "a.example"})
	require.NoError(t, err)

	_, err = s.Restore(ctx, b.ID)
	require.NoError(t, err)
	d := s.Document()
	assert.Empty(t, d.Nodes)
	assert.Len(t, d.Backups, 2, "pre-restore backup is kept")

	_, err = s.DeleteBackup(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, s.Backups(), 1)

	_, err = s.Restore(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSession_TakeBackupDisabled(t *testing.T) {
	s, _ := newEnv().session(t)
	ctx := context.Background()
	_, err := s.UpdateSettings(ctx, func(st *models.Settings) { st.MaxBackups = 0 })
	require.NoError(t, err)

	_, _, err = s.TakeBackup(ctx)
	assert.Error(t, err)
}

func TestSession_IconFallsBackToAvatar(t *testing.T) {
	s, _ := newEnv().session(t)
	ctx := context.Background()
	n, _, err := s.AddItem(ctx, document.Location{GroupID: homeGroup(t, s)}, models.Node{Title: "Go", URL: "go.dev"})
	require.NoError(t, err)

	a, err := s.Icon(ctx, n.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, a.Ref)

	_, err = s.Icon(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSession_RecentAndOpen(t *testing.T) {
	opener := &fakeOpener{}
	hist := fakeHistory{
		{URL: "https://news.example", Title: "News", LastVisit: testNow},
		{URL: "https://news.example", Title: "News again", LastVisit: testNow},
		{URL: "https://mail.example", LastVisit: testNow},
	}
	s, _ := newEnv().session(t, WithOpener(opener), WithHistory(hist))
	ctx := context.Background()

	g, nodes, err := s.Recent(ctx)
	require.NoError(t, err)
	assert.Empty(t, nodes, "recent is off by default")

	_, err = s.UpdateSettings(ctx, func(st *models.Settings) {
		st.ShowRecent = true
		st.OpenMode = models.OpenNewTab
	})
	require.NoError(t, err)
	g, nodes, err = s.Recent(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, browser.RecentGroupID, g.ID)
	assert.Empty(t, s.Document().Nodes, "history is never stored")

	require.NoError(t, s.Open(ctx, nodes[0].ID))
	assert.Equal(t, "https://news.example", opener.url)
	assert.Equal(t, models.OpenNewTab, opener.mode)
}

func TestSession_OpenWithoutOpener(t *testing.T) {
	s, _ := newEnv().session(t)
	assert.ErrorIs(t, s.Open(context.Background(), "x"), ErrNoOpener)
}

func TestSession_AddCurrentTab(t *testing.T) {
	tabs := fakeTabs{tab: browser.Tab{ID: "1", URL: "https://go.dev/doc", Title: "Docs"}}
	s, _ := newEnv().session(t, WithTabs(tabs))

	n, _, err := s.AddCurrentTab(context.Background(), document.Location{GroupID: homeGroup(t, s)})
	require.NoError(t, err)
	assert.Equal(t, "Docs", n.Title)
	assert.Equal(t, "https://go.dev/doc", n.URL)
}

func TestSession_WallpaperDisabled(t *testing.T) {
	s, _ := newEnv().session(t)
	_, ok := s.Wallpaper(context.Background())
	assert.False(t, ok)
}

func TestNotice(t *testing.T) {
	tests := []struct {
		name string
		out  persist.Outcome
		want string
	}{
		{"saved", persist.Outcome{Status: persist.StatusSaved}, ""},
		{"degraded", persist.Outcome{
			Status: persist.StatusDegraded,
			Steps:  []persist.Step{persist.StepClearBackups, persist.StepRevertUploadedIcons},
		}, "Local storage is full: backups were cleared, then uploaded icons were reset to make room."},
		{"rejected", persist.Outcome{Status: persist.StatusSyncRejected},
			"Sync disabled: synced storage refused the write. Saved on this device only."},
		{"failed", persist.Outcome{Status: persist.StatusFailed, Err: errors.New("disk gone")},
			"Save failed: disk gone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Notice(tt.out))
		})
	}
}

func TestErrorNotice(t *testing.T) {
	assert.Empty(t, ErrorNotice(nil))
	assert.Equal(t, "The last group cannot be deleted.", ErrorNotice(common.ErrLastGroup))
	assert.Contains(t, ErrorNotice(common.ErrMalformedImport), "Import failed")
	assert.Equal(t, "Error: boom", ErrorNotice(errors.New("boom")))
}
