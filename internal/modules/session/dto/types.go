package dto

import "time"

type Record struct {
	ID             string
	Category       string
	TotalQuestions int
	CorrectAnswers int
	Skipped        int
	TotalTime      float64
	Timestamp      time.Time
}

type FetchInput struct {
	PeriodHint string
}

type FetchOutput struct {
	Records   []Record
	Tier      string
	Label     string
	Connected bool
}

type RecordInput struct {
	Category       string
	TotalQuestions int
	CorrectAnswers int
	Skipped        int
	TotalTime      float64
	Timestamp      time.Time
}

type RecordOutput struct {
	Record         Record
	RemoteAccepted bool
}

// SeedInput carries a JSON array of raw records.
type SeedInput struct {
	Payload []byte
}

// SeedOutput reports a bulk import of raw records into the remote store.
type SeedOutput struct {
	Imported int
	Dropped  int
}
