package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/store"
)

// Store keeps a full snapshot in the items and history tables. Every Save
// rewrites both tables in one transaction.
type Store struct {
	DB     *sql.DB
	driver string
}

func NewStore(db *sql.DB, driver string) *Store {
	return &Store{DB: db, driver: driver}
}

func (s *Store) Load(ctx context.Context) (store.Snapshot, error) {
	items, err := s.loadItems(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	history, err := s.loadHistory(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.Snapshot{Items: items, History: history}, nil
}

func (s *Store) loadItems(ctx context.Context) ([]model.Item, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, kind, title, description, status, duration_minutes, start_at, group_id FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	return items, nil
}

func (s *Store) loadHistory(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT item_id FROM history ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return ids, nil
}

func scanItem(rows *sql.Rows) (model.Item, error) {
	var (
		id          int64
		kind        string
		title       string
		description string
		status      string
		minutes     sql.NullInt64
		startAt     sql.NullString
		groupID     sql.NullInt64
	)
	if err := rows.Scan(&id, &kind, &title, &description, &status, &minutes, &startAt, &groupID); err != nil {
		return model.Item{}, fmt.Errorf("scan item: %w", err)
	}

	parsedKind, err := model.ParseKind(kind)
	if err != nil {
		return model.Item{}, fmt.Errorf("item %d: %w", id, err)
	}
	item := model.Item{
		ID:          id,
		Kind:        parsedKind,
		Title:       title,
		Description: description,
		Status:      model.Status(status),
	}
	if minutes.Valid {
		duration, err := model.DurationFromMinutes(minutes.Int64)
		if err != nil {
			return model.Item{}, fmt.Errorf("item %d: %w", id, err)
		}
		item.Duration = &duration
	}
	if startAt.Valid && startAt.String != "" {
		parsed, err := model.ParseTime(startAt.String)
		if err != nil {
			return model.Item{}, fmt.Errorf("item %d: %w", id, err)
		}
		item.StartAt = &parsed
	}

	switch parsedKind {
	case model.KindGroup:
		item.Group = &model.GroupInfo{}
	case model.KindMember:
		if !groupID.Valid {
			return model.Item{}, fmt.Errorf("item %d: member without group", id)
		}
		item.Member = &model.MemberInfo{GroupID: groupID.Int64}
	}
	return item, nil
}

func (s *Store) Save(ctx context.Context, snap store.Snapshot) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	insertItem := s.rebind(`INSERT INTO items(id, kind, title, description, status, duration_minutes, start_at, group_id) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, item := range snap.Items {
		var minutes sql.NullInt64
		if item.Duration != nil {
			minutes = sql.NullInt64{Int64: int64(*item.Duration / time.Minute), Valid: true}
		}
		var startAt sql.NullString
		if item.StartAt != nil {
			startAt = sql.NullString{String: model.FormatTime(*item.StartAt), Valid: true}
		}
		var groupID sql.NullInt64
		if item.Member != nil {
			groupID = sql.NullInt64{Int64: item.Member.GroupID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insertItem, item.ID, string(item.Kind), item.Title, item.Description, string(item.Status), minutes, startAt, groupID); err != nil {
			return fmt.Errorf("insert item %d: %w", item.ID, err)
		}
	}

	insertHistory := s.rebind(`INSERT INTO history(position, item_id) VALUES(?, ?)`)
	for position, id := range snap.History {
		if _, err := tx.ExecContext(ctx, insertHistory, position, id); err != nil {
			return fmt.Errorf("insert history %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
