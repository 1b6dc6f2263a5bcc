package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Kind string

const (
	KindPlain  Kind = "PLAIN"
	KindGroup  Kind = "GROUP"
	KindMember Kind = "MEMBER"
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Item is the shared shape of plain items, groups and members. Exactly one of
// Group and Member is set for the matching Kind; plain items carry neither.
type Item struct {
	ID          int64
	Kind        Kind
	Title       string
	Description string
	Status      Status
	Duration    *time.Duration
	StartAt     *time.Time
	Group       *GroupInfo
	Member      *MemberInfo
}

// GroupInfo holds the member ids of a group in insertion order and the
// derived end of its time span.
type GroupInfo struct {
	MemberIDs []int64
	EndAt     *time.Time
}

type MemberInfo struct {
	GroupID int64
}

func NewPlain(title, description string, status Status) Item {
	return Item{Kind: KindPlain, Title: title, Description: description, Status: status}
}

func NewGroup(title, description string) Item {
	return Item{Kind: KindGroup, Title: title, Description: description, Status: StatusNew, Group: &GroupInfo{}}
}

func NewMember(title, description string, status Status, groupID int64) Item {
	return Item{Kind: KindMember, Title: title, Description: description, Status: status, Member: &MemberInfo{GroupID: groupID}}
}

// WithSchedule returns a copy of the item carrying the given start and duration.
func (i Item) WithSchedule(start time.Time, duration time.Duration) Item {
	i.StartAt = &start
	i.Duration = &duration
	return i
}

// EndAt is the derived end of a group, or start+duration for everything else.
func (i Item) EndAt() *time.Time {
	if i.Kind == KindGroup {
		if i.Group == nil || i.Group.EndAt == nil {
			return nil
		}
		end := *i.Group.EndAt
		return &end
	}
	if i.StartAt == nil || i.Duration == nil {
		return nil
	}
	end := i.StartAt.Add(*i.Duration)
	return &end
}

// Span reports the item's [start, end) range; ok is false unless both start
// and duration are set.
func (i Item) Span() (start, end time.Time, ok bool) {
	if i.StartAt == nil || i.Duration == nil {
		return time.Time{}, time.Time{}, false
	}
	return *i.StartAt, i.StartAt.Add(*i.Duration), true
}

func (i Item) GroupID() int64 {
	if i.Member == nil {
		return 0
	}
	return i.Member.GroupID
}

func (i Item) MemberIDs() []int64 {
	if i.Group == nil {
		return nil
	}
	return append([]int64(nil), i.Group.MemberIDs...)
}

func (i Item) Clone() Item {
	out := i
	if i.Duration != nil {
		d := *i.Duration
		out.Duration = &d
	}
	if i.StartAt != nil {
		s := *i.StartAt
		out.StartAt = &s
	}
	if i.Group != nil {
		g := GroupInfo{MemberIDs: append([]int64(nil), i.Group.MemberIDs...)}
		if i.Group.EndAt != nil {
			e := *i.Group.EndAt
			g.EndAt = &e
		}
		out.Group = &g
	}
	if i.Member != nil {
		m := *i.Member
		out.Member = &m
	}
	return out
}

func (i Item) String() string {
	return fmt.Sprintf("%s#%d %q [%s]", strings.ToLower(string(i.Kind)), i.ID, i.Title, i.Status)
}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus accepts the status names in any case; an empty value means NEW.
func ParseStatus(value string) (Status, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return StatusNew, nil
	}
	trimmed = strings.ReplaceAll(trimmed, "-", "_")
	status := Status(trimmed)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

// TimeLayout is the wall-clock form times are written in. Times without a
// zone are read as UTC.
const TimeLayout = "2006-01-02T15:04:05"

var timeLayouts = []string{TimeLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04", time.RFC3339}

// ParseTime reads any accepted layout as UTC truncated to the second, the
// precision times are stored with.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", value)
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// MaxDurationMinutes is the largest minute count a time.Duration can hold.
const MaxDurationMinutes = int64(math.MaxInt64 / int64(time.Minute))

// DurationFromMinutes rejects negative counts and counts that would overflow.
func DurationFromMinutes(minutes int64) (time.Duration, error) {
	if minutes < 0 || minutes > MaxDurationMinutes {
		return 0, fmt.Errorf("duration %d minutes out of range", minutes)
	}
	return time.Duration(minutes) * time.Minute, nil
}

func ParseKind(value string) (Kind, error) {
	switch kind := Kind(strings.ToUpper(strings.TrimSpace(value))); kind {
	case KindPlain, KindGroup, KindMember:
		return kind, nil
	}
	return "", fmt.Errorf("unknown kind %q", value)
}
