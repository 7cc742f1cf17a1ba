package out

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	statsdto "recall/internal/modules/stats/dto"
	statsout "recall/internal/modules/stats/port/out"
	"recall/internal/platform/markdown"
	"recall/internal/platform/slug"
)

var reportBlock = markdown.ManagedBlock{
	Start: "<!-- recall:stats:start -->",
	End:   "<!-- recall:stats:end -->",
}

const reportSchema = 1

// categoryOrder matches the dashboard. Unknown keys are skipped.
var categoryOrder = []string{"people", "places", "objects", "category-match", "other"}

// MarkdownReportSink writes reports/stats-<period>.md. Text outside the
// managed block survives rewrites.
type MarkdownReportSink struct {
	dir string
}

var _ statsout.StatsSink = (*MarkdownReportSink)(nil)

func NewMarkdownReportSink(dataDir string) *MarkdownReportSink {
	return &MarkdownReportSink{dir: filepath.Join(dataDir, "reports")}
}

func (s *MarkdownReportSink) Path(period string) string {
	return filepath.Join(s.dir, "stats-"+slug.Make(period)+".md")
}

func (s *MarkdownReportSink) OnStatsUpdated(_ context.Context, out statsdto.StatsOutput) error {
	path := s.Path(out.Period)
	body := "# Stats: " + out.Period + "\n"
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		_, prev, splitErr := markdown.SplitFrontmatter(string(existing))
		if splitErr != nil {
			return fmt.Errorf("read stats report: %w", splitErr)
		}
		body = prev
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read stats report: %w", err)
	}

	meta := []markdown.Field{
		{Key: "schema_version", Value: reportSchema},
		{Key: "user_id", Value: out.UserID},
		{Key: "period", Value: out.Period},
		{Key: "data_source", Value: out.DataSource},
		{Key: "connected", Value: out.Connected},
		{Key: "record_count", Value: out.RecordCount},
		{Key: "computed_at", Value: out.ComputedAt.Format(time.RFC3339)},
	}
	body = reportBlock.Replace(body, renderReport(out))
	rendered, err := markdown.RenderFrontmatter(meta, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write stats report: %w", err)
	}
	return nil
}

func renderReport(out statsdto.StatsOutput) string {
	if out.NoData {
		return fmt.Sprintf("No Data (%s)", out.DataSource)
	}
	overall := markdown.Table(
		[]string{"Accuracy", "Avg time / card", "Cards reviewed", "Cards skipped"},
		[][]string{{
			strconv.Itoa(out.Overall.Accuracy) + "%",
			strconv.Itoa(out.Overall.AvgTimePerCard) + "s",
			strconv.Itoa(out.Overall.CardsReviewed),
			strconv.Itoa(out.Overall.CardsSkipped),
		}},
	)

	headers := []string{"Category"}
	for _, b := range out.Buckets {
		headers = append(headers, b.Label)
	}
	rows := [][]string{}
	for _, c := range categoryOrder {
		series, ok := out.Series[c]
		if !ok {
			continue
		}
		row := []string{c}
		for _, acc := range series {
			row = append(row, strconv.Itoa(acc)+"%")
		}
		rows = append(rows, row)
	}
	return fmt.Sprintf("Source: %s\n\n%s\n\n## Accuracy by category\n\n%s", out.DataSource, overall, markdown.Table(headers, rows))
}
