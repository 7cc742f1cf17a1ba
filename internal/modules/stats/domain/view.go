package domain

import "time"

// Snapshot is a record set with its provenance, as delivered by the
// session source.
type Snapshot struct {
	Samples   []Sample
	Tier      string
	Label     string
	Connected bool
}

// View is everything one publish carries.
type View struct {
	Period      Period
	Buckets     []Bucket
	Overall     Metrics
	PerCategory map[Category]Metrics
	Series      map[Category][]Metrics
	RecordCount int
	NoData      bool
	Source      Snapshot
	ComputedAt  time.Time
}
