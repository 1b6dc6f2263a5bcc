package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/service"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldDescription
	fieldStatus
	fieldDuration
	fieldStart
)

const startLayout = "2006-01-02 15:04"

// formatFormStart keeps seconds only when the stored time has them, so saving
// an untouched form leaves the start unchanged.
func formatFormStart(t time.Time) string {
	t = t.UTC()
	if t.Second() != 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format(startLayout)
}

func buildFormFields(item *model.Item) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Status (space/←→)"},
		{Label: "Duration (minutes)"},
		{Label: "Start (YYYY-MM-DD HH:MM)"},
	}

	if item == nil {
		fields[fieldStatus].Value = string(model.StatusNew)
		return fields
	}

	fields[fieldTitle].Value = item.Title
	fields[fieldDescription].Value = item.Description
	fields[fieldStatus].Value = string(item.Status)
	if item.Duration != nil {
		fields[fieldDuration].Value = strconv.FormatInt(int64(*item.Duration/time.Minute), 10)
	}
	if item.StartAt != nil {
		fields[fieldStart].Value = formatFormStart(*item.StartAt)
	}
	return fields
}

// parseFormFields reads a full item form or the shorter group form.
func parseFormFields(fields []formField) (service.ItemInput, error) {
	duration, err := parseDuration(fieldValue(fields, fieldDuration))
	if err != nil {
		return service.ItemInput{}, err
	}

	start, err := parseStart(fieldValue(fields, fieldStart))
	if err != nil {
		return service.ItemInput{}, err
	}

	return service.ItemInput{
		Title:       strings.TrimSpace(fieldValue(fields, fieldTitle)),
		Description: strings.TrimSpace(fieldValue(fields, fieldDescription)),
		Status:      strings.TrimSpace(fieldValue(fields, fieldStatus)),
		Duration:    duration,
		StartAt:     start,
	}, nil
}

func fieldValue(fields []formField, index int) string {
	if index >= len(fields) {
		return ""
	}
	return fields[index].Value
}

func parseDuration(value string) (*time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	minutes, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration")
	}
	duration, err := model.DurationFromMinutes(minutes)
	if err != nil {
		return nil, fmt.Errorf("invalid duration")
	}
	return &duration, nil
}

func parseStart(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := model.ParseTime(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid start time")
	}
	return &parsed, nil
}

// inputFromItem carries an item's current fields so a toggle only changes the
// status.
func inputFromItem(item model.Item) service.ItemInput {
	return service.ItemInput{
		Title:       item.Title,
		Description: item.Description,
		Status:      string(item.Status),
		Duration:    item.Duration,
		StartAt:     item.StartAt,
		GroupID:     item.GroupID(),
	}
}
