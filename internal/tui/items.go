package tui

import (
	"fmt"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

// treeRow is one visible line of the Groups pane.
type treeRow struct {
	Item        model.Item
	Depth       int
	HasChildren bool
}

func formatDuration(d *time.Duration) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%dm", int64(*d/time.Minute))
}

func formatStart(t *time.Time) string {
	if t == nil {
		return "unscheduled"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatItemSummary(item model.Item) string {
	return fmt.Sprintf("%s | %s | %s | %s", item.Title, item.Status, formatStart(item.StartAt), formatDuration(item.Duration))
}

// buildGroupTree lists every group followed by its members in the group's
// insertion order. Members of a collapsed group are hidden, and members whose
// group is unknown are dropped.
func buildGroupTree(groups, members []model.Item, collapsed map[int64]bool) []treeRow {
	if len(groups) == 0 {
		return nil
	}

	memberByID := make(map[int64]model.Item, len(members))
	for _, member := range members {
		memberByID[member.ID] = member
	}

	rows := make([]treeRow, 0, len(groups)+len(members))
	for _, group := range groups {
		ids := group.MemberIDs()
		rows = append(rows, treeRow{Item: group, HasChildren: len(ids) > 0})
		if collapsed != nil && collapsed[group.ID] {
			continue
		}
		for _, id := range ids {
			member, ok := memberByID[id]
			if !ok {
				continue
			}
			rows = append(rows, treeRow{Item: member, Depth: 1})
		}
	}
	return rows
}

// ownerGroupID returns the group a row belongs to: the group itself or the
// member's group.
func ownerGroupID(row treeRow) int64 {
	if row.Item.Kind == model.KindGroup {
		return row.Item.ID
	}
	return row.Item.GroupID()
}
