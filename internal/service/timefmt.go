package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sakif/event-board/internal/apperror"
)

// ISOLayout is the stored form of event times: UTC with milliseconds, the
// same shape JavaScript's Date.toISOString produces.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

const dateLayout = "2006-01-02"

// Inputs carrying their own offset.
var zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}

// Inputs without an offset, read in the configured zone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	dateLayout,
}

// NormalizeTime parses an event time and returns it in ISOLayout (UTC).
func NormalizeTime(s string, loc *time.Location) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return formatISO(t), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return formatISO(t), nil
		}
	}
	return "", apperror.ValidationFailed("time", fmt.Sprintf("Invalid time %q", s))
}

// DayBounds converts optional YYYY-MM-DD bounds into inclusive ISO strings:
// from becomes 00:00:00.000 and to becomes 23:59:59.999 of that day in loc.
func DayBounds(from, to string, loc *time.Location) (string, string, error) {
	var lo, hi string
	if from = strings.TrimSpace(from); from != "" {
		d, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return "", "", apperror.ValidationFailed("from", fmt.Sprintf("Invalid date %q, want YYYY-MM-DD", from))
		}
		lo = formatISO(d)
	}
	if to = strings.TrimSpace(to); to != "" {
		d, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return "", "", apperror.ValidationFailed("to", fmt.Sprintf("Invalid date %q, want YYYY-MM-DD", to))
		}
		end := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
		hi = formatISO(end)
	}
	return lo, hi, nil
}

func formatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}
