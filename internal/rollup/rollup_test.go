package rollup

import (
	"testing"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

var nine = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func member(status model.Status) model.Item {
	return model.NewMember("m", "", status, 1)
}

func TestStatusRules(t *testing.T) {
	cases := []struct {
		name     string
		statuses []model.Status
		want     model.Status
	}{
		{name: "no members", want: model.StatusNew},
		{name: "all new", statuses: []model.Status{model.StatusNew, model.StatusNew}, want: model.StatusNew},
		{name: "all done", statuses: []model.Status{model.StatusDone, model.StatusDone}, want: model.StatusDone},
		{name: "new and done", statuses: []model.Status{model.StatusNew, model.StatusDone}, want: model.StatusInProgress},
		{name: "single in progress", statuses: []model.Status{model.StatusInProgress}, want: model.StatusInProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			members := make([]model.Item, 0, len(tc.statuses))
			for _, s := range tc.statuses {
				members = append(members, member(s))
			}
			if got := Compute(members).Status; got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestTimeSpanUsesOnlyScheduledMembers(t *testing.T) {
	members := []model.Item{
		member(model.StatusNew).WithSchedule(nine.Add(time.Hour), 15*time.Minute),
		member(model.StatusNew).WithSchedule(nine, 30*time.Minute),
		member(model.StatusNew),
	}

	result := Compute(members)
	if result.Duration != 45*time.Minute {
		t.Fatalf("expected 45m, got %s", result.Duration)
	}
	if result.StartAt == nil || !result.StartAt.Equal(nine) {
		t.Fatalf("expected start 09:00, got %v", result.StartAt)
	}
	wantEnd := nine.Add(75 * time.Minute)
	if result.EndAt == nil || !result.EndAt.Equal(wantEnd) {
		t.Fatalf("expected end 10:15, got %v", result.EndAt)
	}
}

func TestNoScheduledMembersClearsSpan(t *testing.T) {
	group := model.NewGroup("g", "").WithSchedule(nine, time.Hour)
	group.Group.EndAt = &nine

	Apply(&group, []model.Item{member(model.StatusDone)})

	if group.Status != model.StatusDone {
		t.Fatalf("expected DONE, got %s", group.Status)
	}
	if group.Duration == nil || *group.Duration != 0 {
		t.Fatalf("expected zero duration, got %v", group.Duration)
	}
	if group.StartAt != nil || group.EndAt() != nil {
		t.Fatalf("expected undefined start and end")
	}
}

func TestTotalDetectsOverflow(t *testing.T) {
	half := time.Duration(model.MaxDurationMinutes) * time.Minute / 2
	first := member(model.StatusNew).WithSchedule(nine, half)
	second := member(model.StatusNew).WithSchedule(nine.Add(half), half)
	third := member(model.StatusNew).WithSchedule(nine.Add(2*half), half)

	if total, ok := Total([]model.Item{first, second}); !ok || total != 2*half {
		t.Fatalf("expected two members to fit, got %s %v", total, ok)
	}
	if _, ok := Total([]model.Item{first, second, third}); ok {
		t.Fatalf("expected overflow for three members")
	}
	if got := Compute([]model.Item{first, second, third}).Duration; got < 0 {
		t.Fatalf("expected a non-negative duration, got %s", got)
	}
}
