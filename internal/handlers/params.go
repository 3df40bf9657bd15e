package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var errInvalidDate = errors.New("invalid date")

// parseDate accepts a calendar date (2025-06-10) or an RFC 3339 timestamp.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidDate
}

// nullableDate tells an absent JSON field from an explicit null.
type nullableDate struct {
	Set   bool
	Value *time.Time
}

func (d *nullableDate) UnmarshalJSON(data []byte) error {
	d.Set = true
	if string(data) == "null" {
		d.Value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errInvalidDate
	}
	if strings.TrimSpace(raw) == "" {
		d.Value = nil
		return nil
	}

	t, err := parseDate(raw)
	if err != nil {
		return err
	}
	d.Value = &t
	return nil
}

// queryUint reads an optional positive integer query parameter
func queryUint(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
