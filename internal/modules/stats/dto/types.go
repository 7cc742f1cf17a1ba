package dto

import "time"

type Metrics struct {
	Accuracy       int `json:"accuracy"`
	AvgTimePerCard int `json:"avg_time_per_card"`
	CardsReviewed  int `json:"cards_reviewed"`
	CardsSkipped   int `json:"cards_skipped"`
}

type Bucket struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StatsOutput is one published view. Series holds per-category accuracy
// per bucket; CategorySeries holds the full metrics per bucket.
type StatsOutput struct {
	UserID         string               `json:"user_id"`
	Period         string               `json:"period"`
	Overall        Metrics              `json:"overall"`
	PerCategory    map[string]Metrics   `json:"per_category"`
	Series         map[string][]int     `json:"series"`
	CategorySeries map[string][]Metrics `json:"category_series"`
	Buckets        []Bucket             `json:"buckets"`
	DataSource     string               `json:"data_source"`
	Connected      bool                 `json:"connected"`
	NoData         bool                 `json:"no_data"`
	RecordCount    int                  `json:"record_count"`
	ComputedAt     time.Time            `json:"computed_at"`
}

type PeriodInput struct {
	Period string
	Start  time.Time
	End    time.Time
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
	ID             string
	Timestamp      time.Time
	RemoteAccepted bool
}
