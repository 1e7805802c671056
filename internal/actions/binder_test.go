package actions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/user/sitewatch/internal/domain"
	"github.com/user/sitewatch/internal/monitoring"
	"github.com/user/sitewatch/internal/notify"
	"github.com/user/sitewatch/internal/preview"
	"github.com/user/sitewatch/internal/render"
)

const page = `<table><tbody>
<tr data-site-id="s-1" data-status="pending"><td>1</td><td class="site-name">portfolio</td><td>today</td><td></td><td></td></tr>
<tr data-site-id="s-2" data-status="pending"><td>2</td><td class="site-name">blog</td><td>today</td><td></td><td></td></tr>
</tbody></table>`

type fakeSites struct {
	toggle *domain.ToggleResponse
	rename *domain.RenameResponse
	del    *domain.DeleteResponse
	err    error

	renamedTo string
	calls     int
}

func (f *fakeSites) ToggleVisibility(context.Context, string) (*domain.ToggleResponse, error) {
	f.calls++
	return f.toggle, f.err
}

func (f *fakeSites) RenameSite(_ context.Context, _ string, name string) (*domain.RenameResponse, error) {
	f.calls++
	f.renamedTo = name
	return f.rename, f.err
}

func (f *fakeSites) DeleteSite(context.Context, string) (*domain.DeleteResponse, error) {
	f.calls++
	return f.del, f.err
}

type fakeTracker struct{ untracked []string }

func (f *fakeTracker) Untrack(siteID string) bool {
	f.untracked = append(f.untracked, siteID)
	return true
}

type fixture struct {
	binder  *Binder
	table   *render.Table
	sites   *fakeSites
	feed    *notify.Feed
	tracker *fakeTracker
	metrics *monitoring.Metrics
}

// newFixture renders s-1 as a completed, unpublished site and binds it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	table, err := render.NewTableFromString(page)
	if err != nil {
		t.Fatalf("NewTableFromString: %v", err)
	}
	err = table.RenderCompleted(domain.SiteStatus{
		ID: "s-1", Name: "portfolio", Status: domain.JobCompleted,
		OSSURL: "https://cdn.example.com/s-1/index.html",
	})
	if err != nil {
		t.Fatalf("RenderCompleted: %v", err)
	}

	f := &fixture{
		table:   table,
		sites:   &fakeSites{},
		feed:    notify.NewFeed(20, nil, zap.NewNop()),
		tracker: &fakeTracker{},
		metrics: monitoring.NewMetrics(prometheus.NewRegistry()),
	}
	f.binder = NewBinder(Deps{
		Table:     table,
		Sites:     f.sites,
		Previewer: preview.Passthrough{},
		Notifier:  f.feed,
		Tracker:   f.tracker,
		Metrics:   f.metrics,
	})
	if err := f.binder.Bind("s-1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return f
}

func (f *fixture) checked(t *testing.T) bool {
	t.Helper()
	controls, err := f.table.Controls("s-1")
	if err != nil {
		t.Fatalf("Controls: %v", err)
	}
	for _, c := range controls {
		if c.Kind == render.ControlToggle {
			return c.Checked
		}
	}
	t.Fatal("no toggle control")
	return false
}

func TestBindRegistersRenderedControls(t *testing.T) {
	f := newFixture(t)

	got := f.binder.Bound("s-1")
	want := []domain.CommandType{domain.CommandDelete, domain.CommandPreview, domain.CommandRename, domain.CommandTogglePublish}
	if len(got) != len(want) {
		t.Fatalf("Bound = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Bound[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// Rebinding replaces the entry instead of stacking handlers.
	for i := 0; i < 3; i++ {
		if err := f.binder.Bind("s-1"); err != nil {
			t.Fatalf("Bind: %v", err)
		}
	}
	if n := len(f.binder.Bound("s-1")); n != 4 {
		t.Errorf("Bound after rebinds = %d, want 4", n)
	}

	if n := f.binder.BindAll([]string{"s-1", "s-2", "missing"}); n != 1 {
		t.Errorf("BindAll = %d, want 1", n)
	}
}

func TestDispatchUnboundControl(t *testing.T) {
	f := newFixture(t)

	_, err := f.binder.Dispatch(context.Background(), domain.Rename{SiteID: "s-2", Name: "x"})
	if !errors.Is(err, ErrUnboundControl) {
		t.Fatalf("err = %v, want ErrUnboundControl", err)
	}
	if f.sites.calls != 0 {
		t.Error("backend must not be called for an unbound control")
	}
	if got := testutil.ToFloat64(f.metrics.CommandsTotal.WithLabelValues("rename", "unbound")); got != 1 {
		t.Errorf("unbound commands = %v, want 1", got)
	}
}

func TestTogglePublish(t *testing.T) {
	f := newFixture(t)
	f.sites.toggle = &domain.ToggleResponse{Success: true, IsPublished: true, Msg: "Site published"}

	res, err := f.binder.Dispatch(context.Background(), domain.TogglePublish{SiteID: "s-1", Checked: true})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.IsPublished == nil || !*res.IsPublished {
		t.Errorf("result = %+v", res)
	}
	if !f.checked(t) {
		t.Error("switch should be checked")
	}
	html, _ := f.table.HTML()
	if !strings.Contains(html, "Published") {
		t.Error("label should read Published")
	}
	if f.feed.Count(domain.LevelSuccess, "s-1") != 1 {
		t.Error("expected a success notification")
	}
}

func TestTogglePublishRevertsOnFailure(t *testing.T) {
	f := newFixture(t)
	f.sites.toggle = &domain.ToggleResponse{Success: false, Msg: "permission denied"}

	_, err := f.binder.Dispatch(context.Background(), domain.TogglePublish{SiteID: "s-1", Checked: true})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if f.checked(t) {
		t.Error("switch should be reverted to unchecked")
	}
	if f.feed.Count(domain.LevelDanger, "s-1") != 1 {
		t.Error("expected a danger notification")
	}

	f.sites.toggle, f.sites.err = nil, errors.New("connection reset")
	if _, err := f.binder.Dispatch(context.Background(), domain.TogglePublish{SiteID: "s-1", Checked: true}); err == nil {
		t.Fatal("expected transport error")
	}
	if f.checked(t) {
		t.Error("switch should stay unchecked after a transport error")
	}
	if got := testutil.ToFloat64(f.metrics.CommandsTotal.WithLabelValues("toggle_publish", "error")); got != 2 {
		t.Errorf("failed toggles = %v, want 2", got)
	}
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	f.sites.rename = &domain.RenameResponse{Success: true, Msg: "Site renamed", NewName: "folio"}

	if _, err := f.binder.Dispatch(context.Background(), domain.Rename{SiteID: "s-1", Name: "   "}); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("blank name err = %v, want ErrInvalidCommand", err)
	}

	res, err := f.binder.Dispatch(context.Background(), domain.Rename{SiteID: "s-1", Name: " folio "})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if f.sites.renamedTo != "folio" || res.Name != "folio" {
		t.Errorf("renamedTo = %q, result = %+v", f.sites.renamedTo, res)
	}
	controls, _ := f.table.Controls("s-1")
	for _, c := range controls {
		if c.Kind == render.ControlRename && c.Name != "folio" {
			t.Errorf("rename control name = %q, want folio", c.Name)
		}
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.sites.del = &domain.DeleteResponse{Success: true, Msg: "Site deleted"}

	res, err := f.binder.Dispatch(context.Background(), domain.Delete{SiteID: "s-1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Name != "portfolio" {
		t.Errorf("Name = %q, want portfolio", res.Name)
	}
	if f.table.HasRow("s-1") {
		t.Error("row should be removed")
	}
	if len(f.tracker.untracked) != 1 || f.tracker.untracked[0] != "s-1" {
		t.Errorf("untracked = %v", f.tracker.untracked)
	}
	if len(f.binder.Bound("s-1")) != 0 {
		t.Error("deleted row should be unbound")
	}
}

func TestPreviewUsesBoundURL(t *testing.T) {
	f := newFixture(t)

	res, err := f.binder.Dispatch(context.Background(), domain.Preview{SiteID: "s-1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.PreviewURL != "https://cdn.example.com/s-1/index.html" {
		t.Errorf("PreviewURL = %q", res.PreviewURL)
	}
}
