package store

import (
	"github.com/Joseda-hg/lazyplan/internal/model"
)

// Snapshot is the full persisted state: every item and the history order.
type Snapshot struct {
	Items   []model.Item
	History []int64
}

// Export lists plain items, then groups, then members, each ascending by id,
// followed by the history order. It does not record any reads.
func (s *Store) Export() Snapshot {
	items := make([]model.Item, 0, len(s.plain)+len(s.groups)+len(s.members))
	items = append(items, sortedClones(s.plain)...)
	items = append(items, sortedClones(s.groups)...)
	items = append(items, sortedClones(s.members)...)
	return Snapshot{Items: items, History: s.history.Snapshot()}
}

// Import replaces the store contents with snap, keeping the stored ids. Groups
// are loaded before anything else so members can be attached in any order.
// On error the store is left empty.
func (s *Store) Import(snap Snapshot) error {
	s.reset()
	if err := s.load(snap); err != nil {
		s.reset()
		return err
	}
	s.log.Debug("snapshot imported", "items", len(snap.Items), "history", s.history.Len())
	return nil
}

func (s *Store) load(snap Snapshot) error {
	var maxID int64
	seen := make(map[int64]struct{}, len(snap.Items))
	claim := func(item model.Item) error {
		if item.ID <= 0 {
			return invalidf("item id %d must be positive", item.ID)
		}
		if _, dup := seen[item.ID]; dup {
			return invalidf("duplicate item id %d", item.ID)
		}
		seen[item.ID] = struct{}{}
		maxID = max(maxID, item.ID)
		return nil
	}

	for _, item := range snap.Items {
		if item.Kind != model.KindGroup {
			continue
		}
		if err := claim(item); err != nil {
			return err
		}
		s.groups[item.ID] = &model.Item{
			ID:          item.ID,
			Kind:        model.KindGroup,
			Title:       item.Title,
			Description: item.Description,
			Group:       &model.GroupInfo{},
		}
	}

	for _, item := range snap.Items {
		switch item.Kind {
		case model.KindGroup:
			continue
		case model.KindPlain, model.KindMember:
		default:
			return invalidf("item %d has unknown kind %q", item.ID, item.Kind)
		}
		if err := claim(item); err != nil {
			return err
		}
		stored, err := normalize(item, item.Kind)
		if err != nil {
			return err
		}
		stored.ID = item.ID
		if err := s.checkConflict(stored); err != nil {
			return err
		}

		if stored.Kind == model.KindPlain {
			s.plain[stored.ID] = &stored
			s.index(&stored)
			continue
		}
		group, ok := s.groups[stored.Member.GroupID]
		if !ok {
			return &ReferenceError{GroupID: stored.Member.GroupID}
		}
		if err := s.checkTotal(group, stored); err != nil {
			return err
		}
		s.members[stored.ID] = &stored
		s.index(&stored)
		group.Group.MemberIDs = append(group.Group.MemberIDs, stored.ID)
	}

	for _, group := range s.groups {
		s.recompute(group)
	}
	for _, id := range snap.History {
		if _, ok := s.lookup(id); ok {
			s.history.Record(id)
		}
	}
	s.nextID = maxID + 1
	return nil
}
