package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/service"
	"github.com/Joseda-hg/lazyplan/internal/store"
)

// resource binds one kind of item to its service operations.
type resource struct {
	name      string
	list      func(context.Context) []model.Item
	create    func(context.Context, service.ItemInput) (model.Item, error)
	get       func(context.Context, int64) (model.Item, error)
	update    func(context.Context, int64, service.ItemInput) (model.Item, error)
	remove    func(context.Context, int64) (bool, error)
	removeAll func(context.Context) error
}

func (s *Server) resources() []resource {
	return []resource{
		{
			name:      "items",
			list:      s.svc.ListPlain,
			create:    s.svc.CreatePlain,
			get:       s.svc.GetPlain,
			update:    s.svc.UpdatePlain,
			remove:    s.svc.DeletePlain,
			removeAll: s.svc.DeleteAllPlain,
		},
		{
			name:      "groups",
			list:      s.svc.ListGroups,
			create:    s.svc.CreateGroup,
			get:       s.svc.GetGroup,
			update:    s.svc.UpdateGroup,
			remove:    s.svc.DeleteGroup,
			removeAll: s.svc.DeleteAllGroups,
		},
		{
			name:      "members",
			list:      s.svc.ListMembers,
			create:    s.svc.CreateMember,
			get:       s.svc.GetMember,
			update:    s.svc.UpdateMember,
			remove:    s.svc.DeleteMember,
			removeAll: s.svc.DeleteAllMembers,
		},
	}
}

type itemOut struct {
	ID              int64   `json:"id"`
	Kind            string  `json:"kind"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Status          string  `json:"status"`
	DurationMinutes *int64  `json:"duration_minutes,omitempty"`
	StartTime       *string `json:"start_time,omitempty"`
	EndTime         *string `json:"end_time,omitempty"`
	GroupID         *int64  `json:"group_id,omitempty"`
	MemberIDs       []int64 `json:"member_ids,omitempty"`
}

// itemIn is the request body for create and update. A POST carrying a
// non-zero id updates that item instead of creating one.
type itemIn struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Status          string  `json:"status"`
	DurationMinutes *int64  `json:"duration_minutes"`
	StartTime       *string `json:"start_time"`
	GroupID         int64   `json:"group_id"`
}

func toOut(item model.Item) itemOut {
	out := itemOut{
		ID:          item.ID,
		Kind:        string(item.Kind),
		Title:       item.Title,
		Description: item.Description,
		Status:      string(item.Status),
		MemberIDs:   item.MemberIDs(),
	}
	if item.Duration != nil {
		minutes := int64(*item.Duration / time.Minute)
		out.DurationMinutes = &minutes
	}
	if item.StartAt != nil {
		start := model.FormatTime(*item.StartAt)
		out.StartTime = &start
	}
	if end := item.EndAt(); end != nil {
		formatted := model.FormatTime(*end)
		out.EndTime = &formatted
	}
	if item.Member != nil {
		groupID := item.Member.GroupID
		out.GroupID = &groupID
	}
	return out
}

func toOutList(items []model.Item) []itemOut {
	out := make([]itemOut, 0, len(items))
	for _, item := range items {
		out = append(out, toOut(item))
	}
	return out
}

func (in itemIn) input() (service.ItemInput, error) {
	result := service.ItemInput{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		GroupID:     in.GroupID,
	}
	if in.DurationMinutes != nil {
		duration, err := model.DurationFromMinutes(*in.DurationMinutes)
		if err != nil {
			return service.ItemInput{}, fmt.Errorf("%w: %v", store.ErrInvalid, err)
		}
		result.Duration = &duration
	}
	if in.StartTime != nil && *in.StartTime != "" {
		start, err := model.ParseTime(*in.StartTime)
		if err != nil {
			return service.ItemInput{}, fmt.Errorf("%w: %v", store.ErrInvalid, err)
		}
		result.StartAt = &start
	}
	return result, nil
}

func (s *Server) listHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toOutList(res.list(r.Context())))
	}
}

func (s *Server) createHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body itemIn
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		in, err := body.input()
		if err != nil {
			s.writeErr(w, r, err)
			return
		}

		var item model.Item
		if body.ID != 0 {
			item, err = res.update(r.Context(), body.ID, in)
		} else {
			item, err = res.create(r.Context(), in)
		}
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toOut(item))
	}
}

func (s *Server) getHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		item, err := res.get(r.Context(), id)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toOut(item))
	}
}

func (s *Server) updateHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var body itemIn
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		in, err := body.input()
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		item, err := res.update(r.Context(), id, in)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toOut(item))
	}
}

func (s *Server) deleteHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		removed, err := res.remove(r.Context(), id)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

func (s *Server) deleteAllHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := res.removeAll(r.Context()); err != nil {
			s.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
	}
}

func (s *Server) groupMembersHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toOutList(s.svc.ListGroupMembers(r.Context(), id)))
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toOutList(s.svc.History(r.Context())))
}

func (s *Server) prioritizedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toOutList(s.svc.Prioritized(r.Context())))
}

func pathID(r *http.Request) (int64, error) {
	value := r.PathValue("id")
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidID(value)
	}
	return id, nil
}

// writeErr maps service and store errors to status codes. Conflicts and
// dangling group references are 406 Not Acceptable.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrReference):
		writeError(w, http.StatusNotAcceptable, err.Error())
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
