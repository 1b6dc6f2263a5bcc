// Package store owns every item, assigns ids and keeps groups, members, the
// schedule index and the read history consistent with each other.
//
// A Store is not safe for concurrent use; callers serialize access.
package store

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/Joseda-hg/lazyplan/internal/history"
	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/rollup"
	"github.com/Joseda-hg/lazyplan/internal/schedule"
)

type Store struct {
	log             *slog.Logger
	historyCapacity int

	nextID  int64
	plain   map[int64]*model.Item
	groups  map[int64]*model.Item
	members map[int64]*model.Item

	history  *history.Tracker
	schedule *schedule.Scheduler
}

type Option func(*Store)

// WithHistoryCapacity caps the read history; zero keeps it unbounded.
func WithHistoryCapacity(capacity int) Option {
	return func(s *Store) {
		s.historyCapacity = capacity
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

type Counts struct {
	Plain     int
	Groups    int
	Members   int
	Scheduled int
	History   int
}

func New(opts ...Option) *Store {
	s := &Store{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	s.history = history.New(s.historyCapacity)
	s.schedule = schedule.New()
	s.reset()
	return s
}

func (s *Store) reset() {
	s.nextID = 1
	s.plain = make(map[int64]*model.Item)
	s.groups = make(map[int64]*model.Item)
	s.members = make(map[int64]*model.Item)
	s.history.Reset()
	s.schedule.Reset()
}

func (s *Store) allocateID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// AddPlain stores a new plain item and returns it with its assigned id.
func (s *Store) AddPlain(item model.Item) (model.Item, error) {
	stored, err := normalize(item, model.KindPlain)
	if err != nil {
		return model.Item{}, err
	}
	if err := s.checkConflict(stored); err != nil {
		return model.Item{}, err
	}

	stored.ID = s.allocateID()
	s.plain[stored.ID] = &stored
	s.index(&stored)
	s.log.Debug("item added", "id", stored.ID, "kind", stored.Kind)
	return stored.Clone(), nil
}

// AddGroup stores a new group. Caller supplied status, time and member ids
// are discarded; a new group has no members.
func (s *Store) AddGroup(item model.Item) model.Item {
	stored := model.Item{
		Kind:        model.KindGroup,
		Title:       item.Title,
		Description: item.Description,
		Group:       &model.GroupInfo{},
	}
	rollup.Apply(&stored, nil)

	stored.ID = s.allocateID()
	s.groups[stored.ID] = &stored
	s.log.Debug("item added", "id", stored.ID, "kind", stored.Kind)
	return stored.Clone()
}

// AddMember stores a new member and attaches it to its group.
func (s *Store) AddMember(item model.Item) (model.Item, error) {
	stored, err := normalize(item, model.KindMember)
	if err != nil {
		return model.Item{}, err
	}
	group, ok := s.groups[stored.Member.GroupID]
	if !ok {
		return model.Item{}, &ReferenceError{GroupID: stored.Member.GroupID}
	}
	if err := s.checkConflict(stored); err != nil {
		return model.Item{}, err
	}
	if err := s.checkTotal(group, stored); err != nil {
		return model.Item{}, err
	}

	stored.ID = s.allocateID()
	s.members[stored.ID] = &stored
	s.index(&stored)
	group.Group.MemberIDs = append(group.Group.MemberIDs, stored.ID)
	s.recompute(group)
	s.log.Debug("item added", "id", stored.ID, "kind", stored.Kind, "group", group.ID)
	return stored.Clone(), nil
}

// UpdatePlain replaces the editable fields of an existing plain item. It
// reports false, and changes nothing, when the id is unknown.
func (s *Store) UpdatePlain(item model.Item) (bool, error) {
	existing, ok := s.plain[item.ID]
	if !ok {
		return false, nil
	}
	if err := s.replaceFields(existing, item); err != nil {
		return true, err
	}
	s.log.Debug("item updated", "id", existing.ID, "kind", existing.Kind)
	return true, nil
}

// UpdateGroup replaces the title and description of a group and refreshes
// its derived fields.
func (s *Store) UpdateGroup(item model.Item) bool {
	existing, ok := s.groups[item.ID]
	if !ok {
		return false
	}
	existing.Title = item.Title
	existing.Description = item.Description
	s.recompute(existing)
	s.log.Debug("item updated", "id", existing.ID, "kind", existing.Kind)
	return true
}

// UpdateMember replaces the editable fields of a member. The owning group is
// fixed at creation and any other value in item is ignored.
func (s *Store) UpdateMember(item model.Item) (bool, error) {
	existing, ok := s.members[item.ID]
	if !ok {
		return false, nil
	}
	if err := s.replaceFields(existing, item); err != nil {
		return true, err
	}
	if group, ok := s.groups[existing.Member.GroupID]; ok {
		s.recompute(group)
	}
	s.log.Debug("item updated", "id", existing.ID, "kind", existing.Kind)
	return true, nil
}

func (s *Store) replaceFields(existing *model.Item, item model.Item) error {
	candidate := existing.Clone()
	candidate.Title = item.Title
	candidate.Description = item.Description
	candidate.Status = item.Status
	candidate.Duration = item.Clone().Duration
	candidate.StartAt = item.Clone().StartAt
	if err := validate(&candidate); err != nil {
		return err
	}
	if err := s.checkConflict(candidate); err != nil {
		return err
	}
	if candidate.Member != nil {
		if group, ok := s.groups[candidate.Member.GroupID]; ok {
			if err := s.checkTotal(group, candidate); err != nil {
				return err
			}
		}
	}

	*existing = candidate
	s.index(existing)
	return nil
}

func (s *Store) RemovePlain(id int64) bool {
	if _, ok := s.plain[id]; !ok {
		return false
	}
	delete(s.plain, id)
	s.forget(id)
	s.log.Debug("item removed", "id", id, "kind", model.KindPlain)
	return true
}

// RemoveGroup deletes a group together with all of its members.
func (s *Store) RemoveGroup(id int64) bool {
	group, ok := s.groups[id]
	if !ok {
		return false
	}
	for _, memberID := range group.Group.MemberIDs {
		delete(s.members, memberID)
		s.forget(memberID)
	}
	delete(s.groups, id)
	s.forget(id)
	s.log.Debug("item removed", "id", id, "kind", model.KindGroup, "members", len(group.Group.MemberIDs))
	return true
}

// RemoveMember deletes a member and detaches it from its group.
func (s *Store) RemoveMember(id int64) bool {
	member, ok := s.members[id]
	if !ok {
		return false
	}
	delete(s.members, id)
	s.forget(id)
	if group, ok := s.groups[member.Member.GroupID]; ok {
		group.Group.MemberIDs = slices.DeleteFunc(group.Group.MemberIDs, func(memberID int64) bool {
			return memberID == id
		})
		s.recompute(group)
	}
	s.log.Debug("item removed", "id", id, "kind", model.KindMember)
	return true
}

func (s *Store) RemoveAllPlain() {
	for id := range s.plain {
		s.forget(id)
	}
	clear(s.plain)
}

func (s *Store) RemoveAllGroups() {
	for id := range s.members {
		s.forget(id)
	}
	for id := range s.groups {
		s.forget(id)
	}
	clear(s.members)
	clear(s.groups)
}

// RemoveAllMembers empties every group and resets their derived fields.
func (s *Store) RemoveAllMembers() {
	for id := range s.members {
		s.forget(id)
	}
	clear(s.members)
	for _, group := range s.groups {
		group.Group.MemberIDs = nil
		s.recompute(group)
	}
}

func (s *Store) GetPlain(id int64) (model.Item, bool) {
	return s.read(s.plain, id)
}

func (s *Store) GetGroup(id int64) (model.Item, bool) {
	return s.read(s.groups, id)
}

func (s *Store) GetMember(id int64) (model.Item, bool) {
	return s.read(s.members, id)
}

// Get looks id up across every kind and records the read.
func (s *Store) Get(id int64) (model.Item, bool) {
	item, ok := s.lookup(id)
	if !ok {
		return model.Item{}, false
	}
	s.history.Record(id)
	return item.Clone(), true
}

// Peek is Get without recording the read.
func (s *Store) Peek(id int64) (model.Item, bool) {
	item, ok := s.lookup(id)
	if !ok {
		return model.Item{}, false
	}
	return item.Clone(), true
}

func (s *Store) read(items map[int64]*model.Item, id int64) (model.Item, bool) {
	item, ok := items[id]
	if !ok {
		return model.Item{}, false
	}
	s.history.Record(id)
	return item.Clone(), true
}

func (s *Store) ListPlain() []model.Item {
	return sortedClones(s.plain)
}

func (s *Store) ListGroups() []model.Item {
	return sortedClones(s.groups)
}

func (s *Store) ListMembers() []model.Item {
	return sortedClones(s.members)
}

// ListGroupMembers returns the members of groupID in insertion order, or an
// empty slice for an unknown group.
func (s *Store) ListGroupMembers(groupID int64) []model.Item {
	group, ok := s.groups[groupID]
	if !ok {
		return []model.Item{}
	}
	result := make([]model.Item, 0, len(group.Group.MemberIDs))
	for _, id := range group.Group.MemberIDs {
		if member, ok := s.members[id]; ok {
			result = append(result, member.Clone())
		}
	}
	return result
}

// Prioritized returns the scheduled items ascending by start time.
func (s *Store) Prioritized() []model.Item {
	return s.resolve(s.schedule.Ordered())
}

// History returns the read items from least to most recent.
func (s *Store) History() []model.Item {
	return s.resolve(s.history.Snapshot())
}

func (s *Store) Counts() Counts {
	return Counts{
		Plain:     len(s.plain),
		Groups:    len(s.groups),
		Members:   len(s.members),
		Scheduled: s.schedule.Len(),
		History:   s.history.Len(),
	}
}

func (s *Store) resolve(ids []int64) []model.Item {
	result := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.lookup(id); ok {
			result = append(result, item.Clone())
		}
	}
	return result
}

func (s *Store) lookup(id int64) (*model.Item, bool) {
	if item, ok := s.plain[id]; ok {
		return item, true
	}
	if item, ok := s.groups[id]; ok {
		return item, true
	}
	item, ok := s.members[id]
	return item, ok
}

func (s *Store) checkConflict(item model.Item) error {
	start, end, ok := item.Span()
	if !ok {
		return nil
	}
	if other, hit := s.schedule.Conflict(schedule.Interval{Start: start, End: end}, item.ID); hit {
		return &ConflictError{ID: item.ID, ConflictingID: other}
	}
	return nil
}

// checkTotal rejects member when the group's summed duration, with member
// added or replaced, would not fit in a time.Duration.
func (s *Store) checkTotal(group *model.Item, member model.Item) error {
	members := make([]model.Item, 0, len(group.Group.MemberIDs)+1)
	for _, id := range group.Group.MemberIDs {
		if existing, ok := s.members[id]; ok && id != member.ID {
			members = append(members, *existing)
		}
	}
	members = append(members, member)
	if _, ok := rollup.Total(members); !ok {
		return invalidf("group %d duration would overflow", group.ID)
	}
	return nil
}

func (s *Store) index(item *model.Item) {
	start, end, ok := item.Span()
	s.schedule.Reindex(item.ID, schedule.Interval{Start: start, End: end}, ok)
}

func (s *Store) forget(id int64) {
	s.history.Evict(id)
	s.schedule.Remove(id)
}

func (s *Store) recompute(group *model.Item) {
	members := make([]model.Item, 0, len(group.Group.MemberIDs))
	for _, id := range group.Group.MemberIDs {
		if member, ok := s.members[id]; ok {
			members = append(members, *member)
		}
	}
	rollup.Apply(group, members)
}

func sortedClones(items map[int64]*model.Item) []model.Item {
	ids := slices.Sorted(maps.Keys(items))
	result := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		result = append(result, items[id].Clone())
	}
	return result
}

// normalize copies item into a fresh value of the given kind, dropping the id
// and any payload that belongs to another kind.
func normalize(item model.Item, kind model.Kind) (model.Item, error) {
	stored := item.Clone()
	stored.ID = 0
	stored.Kind = kind
	stored.Group = nil
	if kind != model.KindMember {
		stored.Member = nil
	} else if stored.Member == nil {
		stored.Member = &model.MemberInfo{}
	}
	if err := validate(&stored); err != nil {
		return model.Item{}, err
	}
	return stored, nil
}

func validate(item *model.Item) error {
	if item.Status == "" {
		item.Status = model.StatusNew
	}
	if !item.Status.Valid() {
		return invalidf("unknown status %q", item.Status)
	}
	if item.Duration != nil && *item.Duration < 0 {
		return invalidf("negative duration %s", *item.Duration)
	}
	return nil
}
