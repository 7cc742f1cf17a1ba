package out_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	statsout "recall/internal/modules/stats/adapter/out"
	statsdto "recall/internal/modules/stats/dto"
	apperrors "recall/internal/platform/errors"
	"recall/internal/platform/markdown"
)

func sampleOutput() statsdto.StatsOutput {
	return statsdto.StatsOutput{
		UserID:      "u1",
		Period:      "week",
		Overall:     statsdto.Metrics{Accuracy: 87, AvgTimePerCard: 10, CardsReviewed: 15, CardsSkipped: 1},
		PerCategory: map[string]statsdto.Metrics{"people": {Accuracy: 87}},
		Series:      map[string][]int{"people": {87, 0}, "places": {0, 0}},
		Buckets: []statsdto.Bucket{
			{Key: "2025-03-03", Label: "Mon 3"},
			{Key: "2025-03-04", Label: "Tue 4"},
		},
		DataSource:  "Live",
		Connected:   true,
		RecordCount: 2,
		ComputedAt:  time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteSnapshotSinkUpsertsLatest(t *testing.T) {
	t.Parallel()
	sink, err := statsout.NewSQLiteSnapshotSink(filepath.Join(t.TempDir(), ".recall", "recall.db"))
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer sink.Close()
	ctx := context.Background()

	if _, err := sink.Latest(ctx, "u1", "week"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	out := sampleOutput()
	if err := sink.OnStatsUpdated(ctx, out); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	out.RecordCount = 3
	out.DataSource = "Cached"
	if err := sink.OnStatsUpdated(ctx, out); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	latest, err := sink.Latest(ctx, "u1", "week")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.RecordCount != 3 || latest.DataSource != "Cached" || latest.Series["people"][0] != 87 {
		t.Fatalf("unexpected latest snapshot: %+v", latest)
	}
}

func TestMarkdownReportSinkKeepsUserNotes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sink := statsout.NewMarkdownReportSink(dir)
	ctx := context.Background()
	if err := sink.OnStatsUpdated(ctx, sampleOutput()); err != nil {
		t.Fatalf("write report: %v", err)
	}
	path := filepath.Join(dir, "reports", "stats-week.md")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	meta, body, err := markdown.SplitFrontmatter(string(raw))
	if err != nil {
		t.Fatalf("split frontmatter: %v", err)
	}
	if meta["period"] != "week" || meta["data_source"] != "Live" {
		t.Fatalf("unexpected frontmatter: %+v", meta)
	}
	if !strings.Contains(body, "| people | 87% | 0% |") || !strings.Contains(body, "| Mon 3 | Tue 4 |") {
		t.Fatalf("missing accuracy table:\n%s", body)
	}

	if err := os.WriteFile(path, []byte(string(raw)+"\nMy own note.\n"), 0o644); err != nil {
		t.Fatalf("append note: %v", err)
	}
	next := sampleOutput()
	next.NoData = true
	next.DataSource = "Fallback"
	if err := sink.OnStatsUpdated(ctx, next); err != nil {
		t.Fatalf("rewrite report: %v", err)
	}
	raw, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("reread report: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "My own note.") || !strings.Contains(content, "No Data (Fallback)") {
		t.Fatalf("expected note kept and block replaced:\n%s", content)
	}
	if strings.Contains(content, "| people | 87% |") {
		t.Fatalf("old block survived rewrite:\n%s", content)
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	t.Parallel()
	calls := 0
	ok := statsout.FuncSink(func(context.Context, statsdto.StatsOutput) error { calls++; return nil })
	bad := statsout.FuncSink(func(context.Context, statsdto.StatsOutput) error { calls++; return errors.New("disk full") })
	err := statsout.NewMultiSink(ok, nil, bad, ok).OnStatsUpdated(context.Background(), sampleOutput())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected every sink called, got %d", calls)
	}
}

func TestNotifySinkFiresOnTierChange(t *testing.T) {
	t.Parallel()
	var titles []string
	sink := statsout.NewNotifySink(func(title, _ string) error {
		titles = append(titles, title)
		return nil
	})
	ctx := context.Background()
	for _, step := range []struct {
		source    string
		connected bool
	}{
		{"Live", true},
		{"Live", true},
		{"Fallback", false},
		{"Fallback", false},
		{"Live", true},
	} {
		out := sampleOutput()
		out.DataSource, out.Connected = step.source, step.connected
		if err := sink.OnStatsUpdated(ctx, out); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if len(titles) != 2 || titles[0] != "recall: offline" || titles[1] != "recall: back online" {
		t.Fatalf("unexpected notifications: %v", titles)
	}

	failing := statsout.NewNotifySink(func(string, string) error { return errors.New("no bus") })
	_ = failing.OnStatsUpdated(ctx, sampleOutput())
	next := sampleOutput()
	next.DataSource = "Cached"
	if err := failing.OnStatsUpdated(ctx, next); err == nil || !strings.Contains(err.Error(), "no bus") {
		t.Fatalf("expected notifier error, got %v", err)
	}
}
