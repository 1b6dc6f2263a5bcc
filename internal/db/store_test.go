package db

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/store"
)

func TestSaveAndLoadSnapshot(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	source := store.New()
	plain, err := source.AddPlain(model.NewPlain("Write tests", "Add coverage", model.StatusInProgress))
	if err != nil {
		t.Fatalf("add plain: %v", err)
	}
	group := source.AddGroup(model.NewGroup("Release", ""))
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	member, err := source.AddMember(model.NewMember("Tag", "", model.StatusDone, group.ID).WithSchedule(start, 90*time.Minute))
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	source.GetMember(member.ID)
	source.GetPlain(plain.ID)

	if err := st.Save(ctx, source.Export()); err != nil {
		t.Fatalf("save: %v", err)
	}

	snap, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(snap.Items))
	}
	if !slices.Equal(snap.History, []int64{member.ID, plain.ID}) {
		t.Fatalf("unexpected history %v", snap.History)
	}

	restored := store.New()
	if err := restored.Import(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	loadedMember, ok := restored.GetMember(member.ID)
	if !ok {
		t.Fatalf("expected member %d", member.ID)
	}
	if loadedMember.GroupID() != group.ID || *loadedMember.Duration != 90*time.Minute || !loadedMember.StartAt.Equal(start) {
		t.Fatalf("unexpected member %+v", loadedMember)
	}
	loadedGroup, _ := restored.GetGroup(group.ID)
	if loadedGroup.Status != model.StatusDone {
		t.Fatalf("expected DONE group, got %s", loadedGroup.Status)
	}
	loadedPlain, _ := restored.GetPlain(plain.ID)
	if loadedPlain.Duration != nil || loadedPlain.StartAt != nil || loadedPlain.Description != "Add coverage" {
		t.Fatalf("unexpected plain item %+v", loadedPlain)
	}
}

func TestSaveReplacesPreviousState(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first := store.Snapshot{
		Items:   []model.Item{{ID: 1, Kind: model.KindPlain, Title: "old", Status: model.StatusNew}},
		History: []int64{1},
	}
	if err := st.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := store.Snapshot{
		Items: []model.Item{{ID: 2, Kind: model.KindPlain, Title: "new", Status: model.StatusNew}},
	}
	if err := st.Save(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	snap, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Items) != 1 || snap.Items[0].Title != "new" {
		t.Fatalf("unexpected items %+v", snap.Items)
	}
	if len(snap.History) != 0 {
		t.Fatalf("expected empty history, got %v", snap.History)
	}
}

func TestLoadEmptyDatabase(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()

	snap, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Items) != 0 || len(snap.History) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestLoadRejectsOversizedDuration(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := st.DB.ExecContext(ctx, `INSERT INTO items(id, kind, title, description, status, duration_minutes) VALUES(1, 'PLAIN', 'p', '', 'NEW', 400000000)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.Load(ctx); err == nil {
		t.Fatalf("expected error for oversized duration")
	}
}

func TestOpenValidatesArguments(t *testing.T) {
	if _, err := Open(DriverSQLite, ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	query := `INSERT INTO history(position, item_id) VALUES(?, ?)`

	if got := NewStore(nil, DriverSQLite).rebind(query); got != query {
		t.Fatalf("sqlite query must be unchanged, got %s", got)
	}
	want := `INSERT INTO history(position, item_id) VALUES($1, $2)`
	if got := NewStore(nil, DriverPostgres).rebind(query); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewStore(db, DriverSQLite), func() {
		_ = db.Close()
	}
}
