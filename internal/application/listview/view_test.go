package listview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"linkdash/internal/application/listutil"
	"linkdash/internal/domain/link"
	"linkdash/internal/domain/selection"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeList is an in-memory list query service.
type fakeList struct {
	mu      sync.Mutex
	rows    []Row
	fetches int
	err     error
}

func newFakeList(n int, status func(i int) string) *fakeList {
	l := &fakeList{}
	for i := range n {
		l.rows = append(l.rows, Row{ID: fmt.Sprintf("link-%d", i), Status: status(i)})
	}
	return l
}

func (l *fakeList) fetch(_ context.Context, f selection.Filter, page, perPage int) (Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetches++
	if l.err != nil {
		return Page{}, l.err
	}
	var match []Row
	for _, r := range l.rows {
		if s := f.Get("status"); s != "" && r.Status != s {
			continue
		}
		if q := f.Search(); q != "" && !strings.Contains(r.ID, q) {
			continue
		}
		match = append(match, r)
	}
	info := listutil.NewPageInfo(page, perPage, len(match))
	end := min(info.Offset()+info.PerPage, len(match))
	return Page{Rows: append([]Row(nil), match[info.Offset():end]...), Info: info}, nil
}

func (l *fakeList) setStatus(status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rows {
		l.rows[i].Status = status
	}
}

func (l *fakeList) resource() Resource {
	return Resource{Name: ResourceLinks, FilterKeys: []string{"status"}, Fetch: l.fetch, StatusAfter: link.StatusAfter}
}

func mount(t *testing.T, l *fakeList, f selection.Filter, opts Options) *View {
	t.Helper()
	v, err := Mount(context.Background(), l.resource(), f, opts)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func rowStatuses(s Snapshot) map[string]string {
	out := make(map[string]string, len(s.Rows))
	for _, r := range s.Rows {
		out[r.ID] = r.Status
	}
	return out
}

func TestMount_FetchesFirstPage(t *testing.T) {
	l := newFakeList(45, func(int) string { return link.StatusActive })
	v := mount(t, l, selection.Filter{"status": link.StatusActive, "bogus": "x"}, Options{PerPage: 10})

	snap := v.Snapshot()
	assert.Equal(t, ResourceLinks, snap.Resource)
	assert.Equal(t, selection.Filter{"status": link.StatusActive}, snap.Filter, "unknown filter keys are dropped")
	assert.Len(t, snap.Rows, 10)
	assert.Equal(t, 45, snap.Page.Total)
	assert.Equal(t, 5, snap.Page.TotalPages)
	assert.Equal(t, selection.ModeExplicit, snap.Mode)
	assert.Zero(t, snap.SelectedCount)
}

func TestMount_FetchError(t *testing.T) {
	l := newFakeList(1, func(int) string { return link.StatusActive })
	l.err = errors.New("db down")
	_, err := Mount(context.Background(), l.resource(), nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

// Scenario: 237 disabled links; select all, then click one row.
func TestView_SelectAllThenToggleCollapses(t *testing.T) {
	l := newFakeList(300, func(i int) string {
		if i < 237 {
			return link.StatusDisabled
		}
		return link.StatusActive
	})
	v := mount(t, l, selection.Filter{"status": link.StatusDisabled}, Options{})

	v.SelectAllMatching()
	assert.Equal(t, 237, v.Count())
	alerts := v.Alerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Text, "237")

	require.NoError(t, v.Toggle("link-4"))
	assert.Equal(t, 1, v.Count())
	snap := v.Snapshot()
	assert.Equal(t, selection.ModeExplicit, snap.Mode)
	assert.Equal(t, []string{"link-4"}, snap.Selected)
	assert.Equal(t, map[string]int{link.StatusDisabled: 1}, snap.StatusCounts)
}

func TestView_ToggleUnknownRow(t *testing.T) {
	l := newFakeList(30, func(int) string { return link.StatusActive })
	v := mount(t, l, nil, Options{PerPage: 10})
	require.NoError(t, v.Toggle("link-1"))

	err := v.Toggle("link-25") // on page 3
	assert.ErrorIs(t, err, selection.ErrInvalidTarget)
	assert.Equal(t, []string{"link-1"}, v.Snapshot().Selected)
}

func TestView_PageChangeKeepsSelection(t *testing.T) {
	l := newFakeList(30, func(int) string { return link.StatusActive })
	v := mount(t, l, nil, Options{PerPage: 10})
	require.NoError(t, v.Toggle("link-1"))

	require.NoError(t, v.FetchPage(context.Background(), 2))
	require.NoError(t, v.Toggle("link-12"))
	assert.Equal(t, 2, v.Count())
	assert.Equal(t, 2, v.Snapshot().Page.Page)
}

func TestView_FilterChangeResetsSelection(t *testing.T) {
	tests := []struct {
		name string
		pick func(v *View)
	}{
		{"explicit", func(v *View) { _ = v.Toggle("link-0"); _ = v.Toggle("link-1") }},
		{"all matching", func(v *View) { v.SelectAllMatching() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newFakeList(20, func(i int) string { return []string{link.StatusActive, link.StatusBlocked}[i%2] })
			v := mount(t, l, nil, Options{})
			tt.pick(v)
			require.NotZero(t, v.Count())

			require.NoError(t, v.SetFilter(context.Background(), selection.Filter{"status": link.StatusBlocked}))
			snap := v.Snapshot()
			assert.Equal(t, selection.ModeExplicit, snap.Mode)
			assert.Zero(t, snap.SelectedCount)
			assert.Empty(t, v.Alerts(), "alerts reset with the filter")
			assert.Equal(t, 10, snap.Page.Total)
		})
	}
}

func TestView_SearchChangeResetsSelection(t *testing.T) {
	l := newFakeList(20, func(int) string { return link.StatusActive })
	v := mount(t, l, selection.Filter{"status": link.StatusActive}, Options{SearchDelay: time.Hour})
	v.SelectAllMatching()

	v.Search("link-1")
	assert.True(t, v.SearchPending())
	assert.Equal(t, selection.ModeAllMatching, v.Snapshot().Mode, "nothing changes before the term is committed")

	require.True(t, v.FlushSearch())
	snap := v.Snapshot()
	assert.Equal(t, selection.ModeExplicit, snap.Mode)
	assert.Zero(t, snap.SelectedCount)
	assert.Equal(t, "link-1", snap.Filter.Search())
	assert.Equal(t, link.StatusActive, snap.Filter.Get("status"), "search keeps the other criteria")
	assert.Equal(t, 11, snap.Page.Total) // link-1, link-10..link-19
}

func TestView_SearchIsDebounced(t *testing.T) {
	l := newFakeList(20, func(int) string { return link.StatusActive })
	v := mount(t, l, nil, Options{SearchDelay: 20 * time.Millisecond})

	v.Search("link-1")
	v.Search("link-12")
	require.Eventually(t, func() bool { return v.Snapshot().Filter.Search() == "link-12" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, v.Snapshot().Page.Total)

	l.mu.Lock()
	fetches := l.fetches
	l.mu.Unlock()
	assert.Equal(t, 2, fetches, "mount plus one committed search")
}

func TestView_SetFilterKeepsSearch(t *testing.T) {
	l := newFakeList(20, func(int) string { return link.StatusActive })
	v := mount(t, l, selection.Filter{selection.KeySearch: "link-1"}, Options{})

	require.NoError(t, v.SetFilter(context.Background(), selection.Filter{"status": link.StatusActive, selection.KeySearch: "ignored"}))
	assert.Equal(t, "link-1", v.Snapshot().Filter.Search())
}

func TestView_CloseCancelsSearch(t *testing.T) {
	l := newFakeList(5, func(int) string { return link.StatusActive })
	v, err := Mount(context.Background(), l.resource(), nil, Options{SearchDelay: time.Hour})
	require.NoError(t, err)

	v.Search("x")
	v.Close()
	assert.False(t, v.SearchPending())
	assert.ErrorIs(t, v.FetchPage(context.Background(), 1), ErrClosed)
	_, err = v.Bulk(context.Background(), selection.ExecutorFunc(func(context.Context, selection.Request) error { return nil }), link.ActionBlock)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestView_BulkSuccessMarksRowsAndRefetches(t *testing.T) {
	l := newFakeList(5, func(int) string { return link.StatusActive })
	v := mount(t, l, nil, Options{})
	require.NoError(t, v.Toggle("link-1"))
	require.NoError(t, v.Toggle("link-3"))

	var during map[string]string
	exec := selection.ExecutorFunc(func(_ context.Context, req selection.Request) error {
		during = rowStatuses(v.Snapshot())
		l.mu.Lock()
		for i := range l.rows {
			if l.rows[i].ID == "link-1" || l.rows[i].ID == "link-3" {
				l.rows[i].Status = link.StatusBlocked
			}
		}
		l.mu.Unlock()
		return nil
	})

	req, err := v.Bulk(context.Background(), exec, link.ActionBlock)
	require.NoError(t, err)
	assert.Equal(t, []string{"link-1", "link-3"}, req.IDs)
	assert.False(t, req.SelectAll)

	assert.Equal(t, link.StatusBlocked, during["link-1"], "targets are marked while the request runs")
	assert.Equal(t, link.StatusActive, during["link-2"])

	snap := v.Snapshot()
	assert.Zero(t, snap.SelectedCount)
	assert.False(t, snap.InFlight)
	assert.Equal(t, link.StatusBlocked, rowStatuses(snap)["link-3"])
	alerts := v.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, selection.LevelInfo, alerts[0].Level)
}

func TestView_BulkSelectAllSendsSnapshot(t *testing.T) {
	l := newFakeList(8, func(int) string { return link.StatusActive })
	v := mount(t, l, selection.Filter{"status": link.StatusActive}, Options{})
	v.SelectAllMatching()

	var got selection.Request
	req, err := v.Bulk(context.Background(), selection.ExecutorFunc(func(_ context.Context, r selection.Request) error {
		got = r
		l.setStatus(link.StatusBlocked)
		return nil
	}), link.ActionBlock)
	require.NoError(t, err)
	assert.Equal(t, req, got)
	assert.True(t, got.SelectAll)
	assert.Nil(t, got.IDs)
	assert.Equal(t, selection.Filter{"status": link.StatusActive}, got.Filter)
	assert.Zero(t, v.Count())
	assert.Equal(t, 0, v.Snapshot().Page.Total, "refetch shows no active links remain")
}

func TestView_FailedBulkKeepsCountAndRestoresRows(t *testing.T) {
	l := newFakeList(5, func(int) string { return link.StatusActive })
	v := mount(t, l, nil, Options{})
	require.NoError(t, v.Toggle("link-0"))
	require.NoError(t, v.Toggle("link-2"))
	before := v.Count()
	fetches := l.fetches

	var during Snapshot
	_, err := v.Bulk(context.Background(), selection.ExecutorFunc(func(context.Context, selection.Request) error {
		during = v.Snapshot()
		return errors.New("server said no")
	}), link.ActionDelete)
	require.ErrorIs(t, err, selection.ErrBulkActionFailed)

	assert.Len(t, during.Rows, 3, "deleted rows are hidden while the request runs")
	assert.True(t, during.InFlight)

	assert.Equal(t, before, v.Count())
	snap := v.Snapshot()
	assert.Len(t, snap.Rows, 5, "rows are restored")
	assert.Equal(t, []string{"link-0", "link-2"}, snap.Selected)
	assert.Equal(t, fetches, l.fetches, "no refetch after failure")

	alerts := v.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, selection.LevelError, alerts[0].Level)
	assert.Contains(t, alerts[0].Text, "server said no")
}

func TestView_EmptySelectionIsRejected(t *testing.T) {
	l := newFakeList(5, func(int) string { return link.StatusActive })
	v := mount(t, l, nil, Options{})
	called := false
	_, err := v.Bulk(context.Background(), selection.ExecutorFunc(func(context.Context, selection.Request) error {
		called = true
		return nil
	}), link.ActionBlock)
	assert.ErrorIs(t, err, selection.ErrEmptySelection)
	assert.False(t, called)
	assert.False(t, v.Snapshot().InFlight)
}

// blockingExec holds a bulk request open until release is closed.
type blockingExec struct {
	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingExec(err error) *blockingExec {
	return &blockingExec{started: make(chan struct{}), release: make(chan struct{}), err: err}
}

func (b *blockingExec) Execute(ctx context.Context, _ selection.Request) error {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.err
}

func TestView_SecondBulkWhileInFlight(t *testing.T) {
	l := newFakeList(5, func(int) string { return link.StatusActive })
	v := mount(t, l, nil, Options{})
	require.NoError(t, v.Toggle("link-0"))

	exec := newBlockingExec(nil)
	done := make(chan error, 1)
	go func() {
		_, err := v.Bulk(context.Background(), exec, link.ActionBlock)
		done <- err
	}()
	<-exec.started

	_, err := v.Bulk(context.Background(), exec, link.ActionDisable)
	assert.ErrorIs(t, err, selection.ErrBulkInFlight)

	close(exec.release)
	require.NoError(t, <-done)
}

func TestView_FilterChangeDuringBulkQueuesReset(t *testing.T) {
	for _, fail := range []bool{false, true} {
		t.Run(fmt.Sprintf("fail=%v", fail), func(t *testing.T) {
			l := newFakeList(10, func(i int) string { return []string{link.StatusActive, link.StatusDisabled}[i%2] })
			v := mount(t, l, nil, Options{})
			require.NoError(t, v.Toggle("link-0"))
			require.NoError(t, v.Toggle("link-1"))

			var execErr error
			if fail {
				execErr = errors.New("boom")
			}
			exec := newBlockingExec(execErr)
			done := make(chan error, 1)
			go func() {
				_, err := v.Bulk(context.Background(), exec, link.ActionBlock)
				done <- err
			}()
			<-exec.started

			require.NoError(t, v.SetFilter(context.Background(), selection.Filter{"status": link.StatusDisabled}))
			mid := v.Snapshot()
			assert.Equal(t, link.StatusDisabled, mid.Filter.Get("status"), "filter applies immediately")
			assert.Equal(t, 5, mid.Page.Total)
			assert.True(t, mid.ResetQueued)
			assert.Equal(t, 2, mid.SelectedCount, "selection survives until the request settles")

			close(exec.release)
			err := <-done
			if fail {
				assert.ErrorIs(t, err, selection.ErrBulkActionFailed)
			} else {
				assert.NoError(t, err)
			}
			after := v.Snapshot()
			assert.False(t, after.ResetQueued)
			assert.Zero(t, after.SelectedCount)
			assert.Equal(t, link.StatusDisabled, after.Filter.Get("status"))
		})
	}
}

func TestView_OverrideIDsKeepSelection(t *testing.T) {
	l := newFakeList(5, func(int) string { return link.StatusActive })
	v := mount(t, l, nil, Options{})
	require.NoError(t, v.Toggle("link-4"))

	req, err := v.Bulk(context.Background(), selection.ExecutorFunc(func(context.Context, selection.Request) error { return nil }),
		link.ActionDisable, selection.WithIDs("link-0", "link-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"link-0", "link-1"}, req.IDs)
	assert.Equal(t, []string{"link-4"}, v.Snapshot().Selected)
}
