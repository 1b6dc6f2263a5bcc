// Package rollup derives a group's status and time span from its members.
package rollup

import (
	"math"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

type Result struct {
	Status   model.Status
	Duration time.Duration
	StartAt  *time.Time
	EndAt    *time.Time
}

// Compute applies the group rules: no members or all NEW gives NEW, all DONE
// gives DONE, any other mix gives IN_PROGRESS. Only members with both a start
// and a duration contribute to the time span.
func Compute(members []model.Item) Result {
	result := Result{Status: status(members)}
	total, ok := Total(members)
	if !ok {
		total = math.MaxInt64
	}
	result.Duration = total

	for _, member := range members {
		start, end, ok := member.Span()
		if !ok {
			continue
		}
		if result.StartAt == nil || start.Before(*result.StartAt) {
			s := start
			result.StartAt = &s
		}
		if result.EndAt == nil || end.After(*result.EndAt) {
			e := end
			result.EndAt = &e
		}
	}

	return result
}

// Total sums the durations of members that have a time span. ok is false when
// the sum does not fit in a time.Duration.
func Total(members []model.Item) (time.Duration, bool) {
	var total time.Duration
	for _, member := range members {
		if _, _, ok := member.Span(); !ok {
			continue
		}
		if *member.Duration > math.MaxInt64-total {
			return 0, false
		}
		total += *member.Duration
	}
	return total, true
}

func status(members []model.Item) model.Status {
	if len(members) == 0 {
		return model.StatusNew
	}

	allDone, allNew := true, true
	for _, member := range members {
		if member.Status != model.StatusDone {
			allDone = false
		}
		if member.Status != model.StatusNew {
			allNew = false
		}
	}

	switch {
	case allDone:
		return model.StatusDone
	case allNew:
		return model.StatusNew
	default:
		return model.StatusInProgress
	}
}

// Apply writes the derived fields of members into group.
func Apply(group *model.Item, members []model.Item) {
	result := Compute(members)
	group.Status = result.Status
	duration := result.Duration
	group.Duration = &duration
	group.StartAt = result.StartAt
	if group.Group == nil {
		group.Group = &model.GroupInfo{}
	}
	group.Group.EndAt = result.EndAt
}
