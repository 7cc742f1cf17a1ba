package domain

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "recall/internal/platform/errors"
)

// RawRecord is the wire and storage shape of a record as game screens and
// remote stores produce it. Numeric fields are pointers so that absent values
// can be told apart from zero.
type RawRecord struct {
	ID             string          `json:"id,omitempty"`
	UserID         string          `json:"userId,omitempty"`
	Category       string          `json:"category"`
	TotalQuestions *int            `json:"totalQuestions"`
	CorrectAnswers *int            `json:"correctAnswers"`
	Skipped        *int            `json:"skipped"`
	TotalTime      *float64        `json:"totalTime"`
	Timestamp      json.RawMessage `json:"timestamp"`
}

// Normalize converts a raw record, reading zone-less timestamps in loc. Any
// missing numeric field or unreadable timestamp yields ErrMalformedRecord.
func Normalize(raw RawRecord, loc *time.Location) (Record, error) {
	if raw.TotalQuestions == nil || raw.CorrectAnswers == nil || raw.TotalTime == nil {
		return Record{}, fmt.Errorf("%w: missing numeric field", apperrors.ErrMalformedRecord)
	}
	ts, err := ParseTimestamp(raw.Timestamp, loc)
	if err != nil {
		return Record{}, err
	}
	skipped := 0
	if raw.Skipped != nil {
		skipped = *raw.Skipped
	}
	record := Record{
		ID:             raw.ID,
		UserID:         raw.UserID,
		Category:       raw.Category,
		TotalQuestions: *raw.TotalQuestions,
		CorrectAnswers: *raw.CorrectAnswers,
		Skipped:        skipped,
		TotalTime:      *raw.TotalTime,
		Timestamp:      ts,
	}
	if err := record.Validate(); err != nil {
		return Record{}, err
	}
	return record, nil
}

// NormalizeAll keeps the well-formed records and counts the rest.
func NormalizeAll(raws []RawRecord, loc *time.Location) ([]Record, int) {
	out := make([]Record, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		record, err := Normalize(raw, loc)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, record)
	}
	return out, dropped
}

// ToRaw renders a record in the stored form, timestamp as epoch milliseconds.
func ToRaw(r Record) RawRecord {
	total, correct, skipped, spent := r.TotalQuestions, r.CorrectAnswers, r.Skipped, r.TotalTime
	return RawRecord{
		ID:             r.ID,
		UserID:         r.UserID,
		Category:       r.Category,
		TotalQuestions: &total,
		CorrectAnswers: &correct,
		Skipped:        &skipped,
		TotalTime:      &spent,
		Timestamp:      EpochMillis(r.Timestamp),
	}
}
