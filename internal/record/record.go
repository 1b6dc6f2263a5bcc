// Package record reads and writes the flat line format: one csv line per
// item, a blank separator line, then the history ids.
package record

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/store"
)

type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("record line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Encode writes snap as
//
//	id,kind,title,status,description,durationMinutes,startTime[,groupId]
//
// lines, a blank line and the comma separated history ids.
func Encode(w io.Writer, snap store.Snapshot) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	for _, item := range snap.Items {
		if err := cw.Write(fields(item)); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	ids := make([]string, 0, len(snap.History))
	for _, id := range snap.History {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	bw.WriteString("\n")
	bw.WriteString(strings.Join(ids, ","))
	bw.WriteString("\n")
	return bw.Flush()
}

func fields(item model.Item) []string {
	var duration, start string
	if item.Duration != nil {
		duration = strconv.FormatInt(int64(*item.Duration/time.Minute), 10)
	}
	if item.StartAt != nil {
		start = model.FormatTime(*item.StartAt)
	}
	out := []string{
		strconv.FormatInt(item.ID, 10),
		string(item.Kind),
		item.Title,
		string(item.Status),
		item.Description,
		duration,
		start,
	}
	if item.Kind == model.KindMember {
		out = append(out, strconv.FormatInt(item.GroupID(), 10))
	}
	return out
}

// Decode parses the output of Encode. Lines with only the first five fields,
// and member lines with just a trailing group id, are accepted as unscheduled
// items. Derived group values are not read.
func Decode(r io.Reader) (store.Snapshot, error) {
	var snap store.Snapshot
	var section strings.Builder
	br := bufio.NewReader(r)
	quotes, line, historyStart := 0, 0, 0

	for {
		text, err := br.ReadString('\n')
		if text != "" {
			line++
			switch {
			case historyStart > 0:
				ids, perr := parseHistory(text)
				if perr != nil {
					return store.Snapshot{}, &ParseError{Line: line, Err: perr}
				}
				snap.History = append(snap.History, ids...)
			case quotes%2 == 0 && strings.TrimRight(text, "\r\n") == "":
				historyStart = line
			default:
				quotes += strings.Count(text, `"`)
				section.WriteString(text)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return store.Snapshot{}, err
		}
	}

	cr := csv.NewReader(strings.NewReader(section.String()))
	cr.FieldsPerRecord = -1
	for {
		values, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return store.Snapshot{}, &ParseError{Line: csvErr.Line, Err: csvErr.Err}
			}
			return store.Snapshot{}, err
		}
		item, err := parseItem(values)
		if err != nil {
			lineNo, _ := cr.FieldPos(0)
			return store.Snapshot{}, &ParseError{Line: lineNo, Err: err}
		}
		snap.Items = append(snap.Items, item)
	}
	return snap, nil
}

func parseItem(values []string) (model.Item, error) {
	if len(values) < 5 {
		return model.Item{}, fmt.Errorf("expected at least 5 fields, got %d", len(values))
	}
	id, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return model.Item{}, fmt.Errorf("invalid id %q", values[0])
	}
	kind, err := model.ParseKind(values[1])
	if err != nil {
		return model.Item{}, err
	}
	status, err := model.ParseStatus(values[3])
	if err != nil {
		return model.Item{}, err
	}
	item := model.Item{ID: id, Kind: kind, Title: values[2], Status: status, Description: values[4]}

	rest := values[5:]
	switch kind {
	case model.KindGroup:
		item.Group = &model.GroupInfo{}
		return item, nil
	case model.KindMember:
		var groupField string
		switch len(rest) {
		case 1:
			groupField, rest = rest[0], nil
		case 3:
			groupField, rest = rest[2], rest[:2]
		default:
			return model.Item{}, fmt.Errorf("member line has %d fields", len(values))
		}
		groupID, err := strconv.ParseInt(groupField, 10, 64)
		if err != nil {
			return model.Item{}, fmt.Errorf("invalid group id %q", groupField)
		}
		item.Member = &model.MemberInfo{GroupID: groupID}
	default:
		if len(rest) != 0 && len(rest) != 2 {
			return model.Item{}, fmt.Errorf("item line has %d fields", len(values))
		}
	}

	if len(rest) == 2 {
		if rest[0] != "" {
			minutes, err := strconv.ParseInt(rest[0], 10, 64)
			if err != nil {
				return model.Item{}, fmt.Errorf("invalid duration %q", rest[0])
			}
			duration, err := model.DurationFromMinutes(minutes)
			if err != nil {
				return model.Item{}, err
			}
			item.Duration = &duration
		}
		if rest[1] != "" {
			start, err := model.ParseTime(rest[1])
			if err != nil {
				return model.Item{}, err
			}
			item.StartAt = &start
		}
	}
	return item, nil
}

func parseHistory(text string) ([]int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	parts := strings.Split(text, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid history id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
