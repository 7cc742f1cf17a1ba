package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "recall/internal/platform/errors"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts epoch milliseconds (number or digit string),
// ISO-8601 strings and {"seconds","nanoseconds"} objects. Results are
// truncated to the millisecond so inclusive bucket ends at .999 hold.
// Zone-less ISO values are read in loc; nil means the process local zone.
func ParseTimestamp(raw json.RawMessage, loc *time.Location) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("%w: missing timestamp", apperrors.ErrMalformedRecord)
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedRecord, err)
		}
		return ParseTimestampString(s, loc)
	case '{':
		var obj struct {
			Seconds     *int64 `json:"seconds"`
			Nanoseconds int64  `json:"nanoseconds"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Seconds == nil {
			return time.Time{}, fmt.Errorf("%w: unreadable timestamp object", apperrors.ErrMalformedRecord)
		}
		return time.Unix(*obj.Seconds, obj.Nanoseconds).Truncate(time.Millisecond), nil
	default:
		var ms float64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedRecord, err)
		}
		return fromEpochMillis(ms)
	}
}

// ParseTimestampString handles the textual forms: epoch-ms digits or ISO-8601.
func ParseTimestampString(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", apperrors.ErrMalformedRecord)
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpochMillis(ms)
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", apperrors.ErrMalformedRecord, s)
}

func fromEpochMillis(ms float64) (time.Time, error) {
	if ms <= 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, fmt.Errorf("%w: non-positive epoch %v", apperrors.ErrMalformedRecord, ms)
	}
	return time.UnixMilli(int64(ms)), nil
}

// EpochMillis is the canonical stored form of a timestamp.
func EpochMillis(t time.Time) json.RawMessage {
	return json.RawMessage(strconv.FormatInt(t.UnixMilli(), 10))
}
