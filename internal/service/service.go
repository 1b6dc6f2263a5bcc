// Package service serializes access to a store.Store and saves a snapshot
// through the configured backend after every successful mutation. The web
// server and the TUI share one Service.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/store"
)

var ErrNotFound = errors.New("not found")

type Backend interface {
	Load(ctx context.Context) (store.Snapshot, error)
	Save(ctx context.Context, snap store.Snapshot) error
}

// Recorder receives the outcome of every operation.
type Recorder interface {
	ObserveOp(op string, err error)
	SetCounts(counts store.Counts)
}

type Service struct {
	mu       sync.Mutex
	store    *store.Store
	backend  Backend
	log      *slog.Logger
	recorder Recorder
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// New wraps st. A nil backend keeps everything in memory.
func New(st *store.Store, backend Backend, opts ...Option) *Service {
	s := &Service{store: st, backend: backend, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ItemInput struct {
	Title       string
	Description string
	Status      string
	Duration    *time.Duration
	StartAt     *time.Time
	GroupID     int64
}

func (in ItemInput) item(kind model.Kind) (model.Item, error) {
	if kind == model.KindGroup {
		return model.NewGroup(in.Title, in.Description), nil
	}
	status, err := model.ParseStatus(in.Status)
	if err != nil {
		return model.Item{}, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	item := model.Item{
		Kind:        kind,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Duration:    in.Duration,
		StartAt:     in.StartAt,
	}
	if kind == model.KindMember {
		item.Member = &model.MemberInfo{GroupID: in.GroupID}
	}
	return item.Clone(), nil
}

// Load replaces the store contents with the backend snapshot.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.load(ctx)
	s.observe("load", err)
	return err
}

func (s *Service) load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	snap, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := s.store.Import(snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	counts := s.store.Counts()
	s.log.Info("snapshot loaded", "plain", counts.Plain, "groups", counts.Groups, "members", counts.Members, "history", counts.History)
	return nil
}

// Flush saves the current state, including read history, which ordinary
// reads do not persist.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.persist(ctx)
	s.observe("flush", err)
	return err
}

// Replace imports snap and saves it through the backend. An invalid snapshot
// leaves the current state untouched.
func (s *Service) Replace(ctx context.Context, snap store.Snapshot) error {
	return s.mutate(ctx, "replace", func() (bool, error) {
		if err := store.New().Import(snap); err != nil {
			return false, fmt.Errorf("import snapshot: %w", err)
		}
		return true, s.store.Import(snap)
	})
}

func (s *Service) Export(ctx context.Context) store.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Export()
}

func (s *Service) CreatePlain(ctx context.Context, in ItemInput) (model.Item, error) {
	var created model.Item
	err := s.mutate(ctx, "create_plain", func() (bool, error) {
		item, err := in.item(model.KindPlain)
		if err != nil {
			return false, err
		}
		created, err = s.store.AddPlain(item)
		return err == nil, err
	})
	return created, err
}

func (s *Service) CreateGroup(ctx context.Context, in ItemInput) (model.Item, error) {
	var created model.Item
	err := s.mutate(ctx, "create_group", func() (bool, error) {
		item, _ := in.item(model.KindGroup)
		created = s.store.AddGroup(item)
		return true, nil
	})
	return created, err
}

func (s *Service) CreateMember(ctx context.Context, in ItemInput) (model.Item, error) {
	var created model.Item
	err := s.mutate(ctx, "create_member", func() (bool, error) {
		item, err := in.item(model.KindMember)
		if err != nil {
			return false, err
		}
		created, err = s.store.AddMember(item)
		return err == nil, err
	})
	return created, err
}

func (s *Service) UpdatePlain(ctx context.Context, id int64, in ItemInput) (model.Item, error) {
	return s.update(ctx, "update_plain", id, in, model.KindPlain, s.store.UpdatePlain)
}

func (s *Service) UpdateMember(ctx context.Context, id int64, in ItemInput) (model.Item, error) {
	return s.update(ctx, "update_member", id, in, model.KindMember, s.store.UpdateMember)
}

// UpdateGroup changes the title and description only.
func (s *Service) UpdateGroup(ctx context.Context, id int64, in ItemInput) (model.Item, error) {
	return s.update(ctx, "update_group", id, in, model.KindGroup, func(item model.Item) (bool, error) {
		return s.store.UpdateGroup(item), nil
	})
}

func (s *Service) update(ctx context.Context, op string, id int64, in ItemInput, kind model.Kind, apply func(model.Item) (bool, error)) (model.Item, error) {
	var updated model.Item
	err := s.mutate(ctx, op, func() (bool, error) {
		item, err := in.item(kind)
		if err != nil {
			return false, err
		}
		item.ID = id
		ok, err := apply(item)
		if !ok {
			return false, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
		}
		if err != nil {
			return false, err
		}
		updated, _ = s.store.Peek(id)
		return true, nil
	})
	return updated, err
}

// DeletePlain reports whether anything was removed; unknown ids are not an
// error.
func (s *Service) DeletePlain(ctx context.Context, id int64) (bool, error) {
	return s.remove(ctx, "delete_plain", func() bool { return s.store.RemovePlain(id) })
}

func (s *Service) DeleteGroup(ctx context.Context, id int64) (bool, error) {
	return s.remove(ctx, "delete_group", func() bool { return s.store.RemoveGroup(id) })
}

func (s *Service) DeleteMember(ctx context.Context, id int64) (bool, error) {
	return s.remove(ctx, "delete_member", func() bool { return s.store.RemoveMember(id) })
}

func (s *Service) remove(ctx context.Context, op string, fn func() bool) (bool, error) {
	var removed bool
	err := s.mutate(ctx, op, func() (bool, error) {
		removed = fn()
		return removed, nil
	})
	return removed, err
}

func (s *Service) DeleteAllPlain(ctx context.Context) error {
	return s.mutate(ctx, "delete_all_plain", func() (bool, error) {
		s.store.RemoveAllPlain()
		return true, nil
	})
}

func (s *Service) DeleteAllGroups(ctx context.Context) error {
	return s.mutate(ctx, "delete_all_groups", func() (bool, error) {
		s.store.RemoveAllGroups()
		return true, nil
	})
}

func (s *Service) DeleteAllMembers(ctx context.Context) error {
	return s.mutate(ctx, "delete_all_members", func() (bool, error) {
		s.store.RemoveAllMembers()
		return true, nil
	})
}

func (s *Service) GetPlain(ctx context.Context, id int64) (model.Item, error) {
	return s.get("get_plain", id, s.store.GetPlain)
}

func (s *Service) GetGroup(ctx context.Context, id int64) (model.Item, error) {
	return s.get("get_group", id, s.store.GetGroup)
}

func (s *Service) GetMember(ctx context.Context, id int64) (model.Item, error) {
	return s.get("get_member", id, s.store.GetMember)
}

// GetAny looks id up regardless of kind.
func (s *Service) GetAny(ctx context.Context, id int64) (model.Item, error) {
	return s.get("get", id, s.store.Get)
}

func (s *Service) get(op string, id int64, lookup func(int64) (model.Item, bool)) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := lookup(id)
	var err error
	if !ok {
		err = fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	s.observe(op, err)
	return item, err
}

func (s *Service) ListPlain(ctx context.Context) []model.Item {
	return s.list(s.store.ListPlain)
}

func (s *Service) ListGroups(ctx context.Context) []model.Item {
	return s.list(s.store.ListGroups)
}

func (s *Service) ListMembers(ctx context.Context) []model.Item {
	return s.list(s.store.ListMembers)
}

// ListGroupMembers returns an empty list for an unknown group.
func (s *Service) ListGroupMembers(ctx context.Context, groupID int64) []model.Item {
	return s.list(func() []model.Item { return s.store.ListGroupMembers(groupID) })
}

func (s *Service) Prioritized(ctx context.Context) []model.Item {
	return s.list(s.store.Prioritized)
}

func (s *Service) History(ctx context.Context) []model.Item {
	return s.list(s.store.History)
}

func (s *Service) Counts(ctx context.Context) store.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Counts()
}

func (s *Service) list(fn func() []model.Item) []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// mutate runs fn under the lock and saves when fn reports a change. A failed
// save is returned but the in-memory change stays applied; the next
// successful save writes it.
func (s *Service) mutate(ctx context.Context, op string, fn func() (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := fn()
	if err == nil && changed {
		err = s.persist(ctx)
	}
	if err != nil {
		s.log.Debug("operation failed", "op", op, "err", err)
	}
	s.observe(op, err)
	return err
}

func (s *Service) persist(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Save(ctx, s.store.Export()); err != nil {
		s.log.Error("save snapshot", "err", err)
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Service) observe(op string, err error) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveOp(op, err)
	s.recorder.SetCounts(s.store.Counts())
}
