package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/service"
	"github.com/Joseda-hg/lazyplan/internal/store"
)

func TestToggleItemStates(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreatePlain(context.Background(), service.ItemInput{Title: "Toggle status"}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	t.Run("toggle in progress", func(t *testing.T) {
		ui := newLoadedUI(t, svc)

		if err := ui.toggleInProgress(nil, nil); err != nil {
			t.Fatalf("toggle in progress: %v", err)
		}
		if status := plainStatus(t, svc); status != model.StatusInProgress {
			t.Fatalf("expected status IN_PROGRESS, got %q", status)
		}

		if err := ui.toggleInProgress(nil, nil); err != nil {
			t.Fatalf("toggle in progress again: %v", err)
		}
		if status := plainStatus(t, svc); status != model.StatusNew {
			t.Fatalf("expected status NEW, got %q", status)
		}
	})

	t.Run("toggle done", func(t *testing.T) {
		ui := newLoadedUI(t, svc)

		if err := ui.toggleDone(nil, nil); err != nil {
			t.Fatalf("toggle done: %v", err)
		}
		if status := plainStatus(t, svc); status != model.StatusDone {
			t.Fatalf("expected status DONE, got %q", status)
		}
		if err := ui.toggleDone(nil, nil); err != nil {
			t.Fatalf("toggle done again: %v", err)
		}
		if status := plainStatus(t, svc); status != model.StatusNew {
			t.Fatalf("expected status NEW, got %q", status)
		}
	})
}

func TestToggleMemberRollsUpToGroup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	group, err := svc.CreateGroup(ctx, service.ItemInput{Title: "Release"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := svc.CreateMember(ctx, service.ItemInput{Title: "Tag", GroupID: group.ID}); err != nil {
		t.Fatalf("create member: %v", err)
	}

	ui := newLoadedUI(t, svc)
	ui.focus = viewGroups
	ui.selectedGroups = 1
	if err := ui.toggleDone(nil, nil); err != nil {
		t.Fatalf("toggle done: %v", err)
	}

	updated, err := svc.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if updated.Status != model.StatusDone {
		t.Fatalf("expected group DONE, got %q", updated.Status)
	}

	ui.selectedGroups = 0
	if err := ui.toggleDone(nil, nil); err != nil {
		t.Fatalf("toggle group: %v", err)
	}
	if ui.status == "" {
		t.Fatalf("expected status message when toggling a group")
	}
}

func TestAddMemberFromGroupsPane(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	group, err := svc.CreateGroup(ctx, service.ItemInput{Title: "Release"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	ui := newLoadedUI(t, svc)
	if err := ui.addMember(nil, nil); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if ui.form != nil || ui.status == "" {
		t.Fatalf("expected a hint outside the Groups pane")
	}

	ui.status = ""
	ui.focus = viewGroups
	ui.lastList = viewGroups
	if err := ui.addMember(nil, nil); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if ui.form == nil || ui.form.groupID != group.ID || ui.form.kind != model.KindMember {
		t.Fatalf("expected member form for group %d, got %+v", group.ID, ui.form)
	}
	ui.form.fields[fieldTitle].Value = "Announce"
	ui.form.fields[fieldDuration].Value = "45"
	ui.form.fields[fieldStart].Value = "2025-03-01 09:00"

	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ui.form != nil {
		t.Fatalf("expected form to close, status %q", ui.status)
	}
	if len(ui.groupRows) != 2 || ui.groupRows[1].Item.Title != "Announce" || ui.groupRows[1].Depth != 1 {
		t.Fatalf("expected nested member, got %+v", ui.groupRows)
	}
	if end := ui.groupRows[0].Item.EndAt(); end == nil || !end.Equal(time.Date(2025, 3, 1, 9, 45, 0, 0, time.UTC)) {
		t.Fatalf("expected rolled up group end, got %v", end)
	}
}

func TestSubmitFormConflictKeepsForm(t *testing.T) {
	svc := newTestService(t)
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	duration := time.Hour
	if _, err := svc.CreatePlain(context.Background(), service.ItemInput{Title: "busy", StartAt: &start, Duration: &duration}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	ui := newLoadedUI(t, svc)
	if err := ui.addItem(nil, nil); err != nil {
		t.Fatalf("add item: %v", err)
	}
	ui.form.fields[fieldTitle].Value = "overlap"
	ui.form.fields[fieldDuration].Value = "30"
	ui.form.fields[fieldStart].Value = "2025-03-01 09:30"

	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ui.form == nil {
		t.Fatalf("expected form to stay open on conflict")
	}
	if ui.status == "" {
		t.Fatalf("expected conflict in status line")
	}
	if len(svc.ListPlain(context.Background())) != 1 {
		t.Fatalf("conflicting item must not be stored")
	}

	ui.form.fields[fieldStart].Value = "soon"
	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(ui.status, "invalid start") {
		t.Fatalf("expected start parse error, got %q", ui.status)
	}
}

func TestEditKeepsStartSeconds(t *testing.T) {
	svc := newTestService(t)
	start := time.Date(2025, 3, 1, 9, 0, 45, 0, time.UTC)
	duration := 30 * time.Minute
	if _, err := svc.CreatePlain(context.Background(), service.ItemInput{Title: "precise", StartAt: &start, Duration: &duration}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	ui := newLoadedUI(t, svc)
	if err := ui.editItem(nil, nil); err != nil {
		t.Fatalf("edit item: %v", err)
	}
	if got := ui.form.fields[fieldStart].Value; got != "2025-03-01 09:00:45" {
		t.Fatalf("unexpected start field %q", got)
	}
	ui.form.fields[fieldTitle].Value = "renamed"
	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	items := svc.ListPlain(context.Background())
	if items[0].Title != "renamed" || !items[0].StartAt.Equal(start) {
		t.Fatalf("expected start %s kept, got %+v", start, items[0])
	}
}

func TestParseDurationRejectsOverflow(t *testing.T) {
	if _, err := parseDuration("400000000"); err == nil {
		t.Fatalf("expected error for oversized duration")
	}
	if _, err := parseDuration("-1"); err == nil {
		t.Fatalf("expected error for negative duration")
	}
	got, err := parseDuration(" 45 ")
	if err != nil || got == nil || *got != 45*time.Minute {
		t.Fatalf("expected 45m, got %v (%v)", got, err)
	}
}

func TestEditGroupUsesShortForm(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateGroup(context.Background(), service.ItemInput{Title: "Draft"}); err != nil {
		t.Fatalf("create group: %v", err)
	}

	ui := newLoadedUI(t, svc)
	ui.focus = viewGroups
	ui.lastList = viewGroups
	if err := ui.editItem(nil, nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if ui.form == nil || len(ui.form.fields) != 2 {
		t.Fatalf("expected title and description only, got %+v", ui.form)
	}
	ui.form.fields[fieldTitle].Value = "Final"
	if err := ui.submitFormNow(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ui.form != nil || ui.groupRows[0].Item.Title != "Final" {
		t.Fatalf("expected renamed group, status %q", ui.status)
	}
}

func TestCollapseAndDeleteGroup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	group, err := svc.CreateGroup(ctx, service.ItemInput{Title: "Release"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, title := range []string{"one", "two"} {
		if _, err := svc.CreateMember(ctx, service.ItemInput{Title: title, GroupID: group.ID}); err != nil {
			t.Fatalf("create member: %v", err)
		}
	}

	ui := newLoadedUI(t, svc)
	ui.focus = viewGroups
	if len(ui.groupRows) != 3 {
		t.Fatalf("expected group and two members, got %d rows", len(ui.groupRows))
	}
	if err := ui.toggleCollapse(nil, nil); err != nil {
		t.Fatalf("collapse: %v", err)
	}
	if len(ui.groupRows) != 1 {
		t.Fatalf("expected collapsed group, got %d rows", len(ui.groupRows))
	}

	if err := ui.deleteItem(nil, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(ui.groupRows) != 0 || len(svc.ListMembers(ctx)) != 0 {
		t.Fatalf("expected group and members removed")
	}
	if _, ok := ui.collapsed[group.ID]; ok {
		t.Fatalf("expected collapse state cleared")
	}
}

func TestOpenRecordsHistory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for _, title := range []string{"first", "second"} {
		if _, err := svc.CreatePlain(ctx, service.ItemInput{Title: title}); err != nil {
			t.Fatalf("create item: %v", err)
		}
	}

	ui := newLoadedUI(t, svc)
	if len(ui.history) != 0 {
		t.Fatalf("listing must not record history")
	}

	ui.selectedItems = 1
	if err := ui.openItem(nil, nil); err != nil {
		t.Fatalf("open: %v", err)
	}
	ui.selectedItems = 0
	if err := ui.openItem(nil, nil); err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(ui.history) != 2 || ui.history[0].Title != "second" || ui.history[1].Title != "first" {
		t.Fatalf("unexpected history %+v", ui.history)
	}

	ui.focus = viewHistory
	ui.lastList = viewHistory
	if err := ui.moveDown(nil, nil); err != nil {
		t.Fatalf("move: %v", err)
	}
	if selected := ui.selectedItem(); selected == nil || selected.Title != "first" {
		t.Fatalf("expected history selection, got %+v", selected)
	}
	if err := ui.moveDown(nil, nil); err != nil {
		t.Fatalf("move: %v", err)
	}
	if ui.selectedHistory != 1 {
		t.Fatalf("selection must stop at the last row, got %d", ui.selectedHistory)
	}
}

func TestDetailFollowsLastList(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreatePlain(context.Background(), service.ItemInput{Title: "shown"}); err != nil {
		t.Fatalf("create item: %v", err)
	}
	ui := newLoadedUI(t, svc)
	if err := ui.setFocus(nil, viewDetail); err != nil {
		t.Fatalf("focus: %v", err)
	}
	selected := ui.selectedItem()
	if selected == nil || selected.Title != "shown" {
		t.Fatalf("expected detail of the items pane, got %+v", selected)
	}
	lines := ui.detailLines(*selected)
	if lines[0] != "shown" || lines[3] != "Start: unscheduled" {
		t.Fatalf("unexpected detail %q", lines)
	}
}

func TestBuildGroupTree(t *testing.T) {
	group := model.NewGroup("g", "")
	group.ID = 1
	group.Group.MemberIDs = []int64{3, 2}
	second := model.NewMember("b", "", model.StatusNew, 1)
	second.ID = 2
	third := model.NewMember("c", "", model.StatusNew, 1)
	third.ID = 3
	stray := model.NewMember("x", "", model.StatusNew, 9)
	stray.ID = 4

	rows := buildGroupTree([]model.Item{group}, []model.Item{second, third, stray}, nil)
	if len(rows) != 3 || !rows[0].HasChildren || rows[1].Item.ID != 3 || rows[2].Item.ID != 2 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if ownerGroupID(rows[1]) != 1 || ownerGroupID(rows[0]) != 1 {
		t.Fatalf("expected rows to belong to group 1")
	}

	rows = buildGroupTree([]model.Item{group}, []model.Item{second, third}, map[int64]bool{1: true})
	if len(rows) != 1 {
		t.Fatalf("expected collapsed tree, got %d rows", len(rows))
	}
}

func TestCycleStatus(t *testing.T) {
	if got := cycleStatus("NEW", 1); got != "IN_PROGRESS" {
		t.Fatalf("unexpected next status %s", got)
	}
	if got := cycleStatus("NEW", -1); got != "DONE" {
		t.Fatalf("unexpected previous status %s", got)
	}
	if got := cycleStatus("garbage", 1); got != "IN_PROGRESS" {
		t.Fatalf("unknown status should cycle from NEW, got %s", got)
	}
}

func plainStatus(t *testing.T, svc *service.Service) model.Status {
	t.Helper()
	items := svc.ListPlain(context.Background())
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	return items[0].Status
}

func newLoadedUI(t *testing.T, svc *service.Service) *UI {
	t.Helper()
	ui := newUI(svc, nil)
	if err := ui.loadItems(); err != nil {
		t.Fatalf("load items: %v", err)
	}
	return ui
}

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	return service.New(store.New(), nil)
}
