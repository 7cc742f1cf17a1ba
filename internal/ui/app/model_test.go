package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	statsdto "recall/internal/modules/stats/dto"
	"recall/internal/ui/app"
)

type fakeStats struct {
	periods   []string
	recorded  []statsdto.RecordInput
	recordErr error
	current   statsdto.StatsOutput
	has       bool
}

func (f *fakeStats) SetPeriod(_ context.Context, period string) error {
	f.periods = append(f.periods, period)
	return nil
}

func (f *fakeStats) Record(_ context.Context, input statsdto.RecordInput) (statsdto.RecordOutput, error) {
	f.recorded = append(f.recorded, input)
	if f.recordErr != nil {
		return statsdto.RecordOutput{ID: "s1"}, f.recordErr
	}
	return statsdto.RecordOutput{ID: "s1", RemoteAccepted: true}, nil
}

func (f *fakeStats) Current() (statsdto.StatsOutput, bool) {
	return f.current, f.has
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func typeText(model tea.Model, text string) tea.Model {
	for _, r := range text {
		if r == ' ' {
			model, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		model, _ = model.Update(keyPress(r))
	}
	return model
}

func TestPeriodKeyAsksCoordinator(t *testing.T) {
	t.Parallel()
	stats := &fakeStats{}
	var model tea.Model = app.NewModel("local", stats)

	model, cmd := model.Update(keyPress('3'))
	if cmd == nil {
		t.Fatalf("expected a period command")
	}
	model, _ = model.Update(cmd())
	if len(stats.periods) != 1 || stats.periods[0] != "month" {
		t.Fatalf("unexpected period calls: %v", stats.periods)
	}
	if !strings.Contains(model.View(), "[3 Month]") {
		t.Fatalf("month not highlighted:\n%s", model.View())
	}
}

func TestStatsMsgRendersView(t *testing.T) {
	t.Parallel()
	var model tea.Model = app.NewModel("local", &fakeStats{})
	if !strings.Contains(model.View(), "loading") {
		t.Fatalf("expected loading placeholder:\n%s", model.View())
	}

	model, _ = model.Update(app.StatsMsg{Out: statsdto.StatsOutput{
		Period:      "week",
		DataSource:  "Cached",
		Overall:     statsdto.Metrics{Accuracy: 75, AvgTimePerCard: 4, CardsReviewed: 8},
		PerCategory: map[string]statsdto.Metrics{"people": {Accuracy: 75, CardsReviewed: 8}},
		Series:      map[string][]int{"people": {75, 0}},
		Buckets:     []statsdto.Bucket{{Key: "a", Label: "Mon 3"}, {Key: "b", Label: "Tue 4"}},
		RecordCount: 2,
		ComputedAt:  time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC),
	}})
	view := model.View()
	for _, want := range []string{"Cached", "75%", "People", "Mon 3", "updated 09:30:00", "[2 Week]"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Places") {
		t.Fatalf("empty categories should be hidden until details are toggled:\n%s", view)
	}
	model, _ = model.Update(keyPress('d'))
	if !strings.Contains(model.View(), "Places") {
		t.Fatalf("details toggle did not show empty categories")
	}
}

func TestNoDataAndQuit(t *testing.T) {
	t.Parallel()
	stats := &fakeStats{has: true, current: statsdto.StatsOutput{Period: "today", DataSource: "Fallback", NoData: true}}
	var model tea.Model = app.NewModel("local", stats)
	if !strings.Contains(model.View(), "No Data") {
		t.Fatalf("expected no-data notice:\n%s", model.View())
	}
	_, cmd := model.Update(keyPress('q'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestRecordEntrySendsSessionToCoordinator(t *testing.T) {
	t.Parallel()
	stats := &fakeStats{}
	var model tea.Model = app.NewModel("local", stats)

	model, _ = model.Update(keyPress('r'))
	if !strings.Contains(model.View(), "Record session") {
		t.Fatalf("expected entry line:\n%s", model.View())
	}
	// Period keys are text while entering.
	model = typeText(model, "places 3/4 12.5 1")
	if len(stats.periods) != 0 {
		t.Fatalf("digits changed the period: %v", stats.periods)
	}
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected a record command")
	}
	model, _ = model.Update(cmd())

	want := statsdto.RecordInput{Category: "places", CorrectAnswers: 3, TotalQuestions: 4, TotalTime: 12.5, Skipped: 1}
	if len(stats.recorded) != 1 || stats.recorded[0] != want {
		t.Fatalf("expected %+v, got %+v", want, stats.recorded)
	}
	view := model.View()
	if strings.Contains(view, "Record session") || !strings.Contains(view, "recorded s1") {
		t.Fatalf("expected entry closed and confirmation:\n%s", view)
	}
}

func TestRecordEntryRejectsBadScoreAndCancels(t *testing.T) {
	t.Parallel()
	stats := &fakeStats{}
	var model tea.Model = app.NewModel("local", stats)

	model, _ = model.Update(keyPress('r'))
	model = typeText(model, "people seven")
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || len(stats.recorded) != 0 {
		t.Fatalf("bad entry must not be recorded")
	}
	if !strings.Contains(model.View(), "not correct/total") || !strings.Contains(model.View(), "Record session") {
		t.Fatalf("expected error with entry still open:\n%s", model.View())
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if strings.Contains(model.View(), "Record session") {
		t.Fatalf("esc did not close the entry line")
	}
	if _, cmd := model.Update(keyPress('2')); cmd == nil {
		t.Fatalf("period keys should work again after cancel")
	}
}

func TestRecordFailureIsReported(t *testing.T) {
	t.Parallel()
	stats := &fakeStats{recordErr: errors.New("quota exceeded")}
	var model tea.Model = app.NewModel("local", stats)

	model, _ = model.Update(keyPress('r'))
	model = typeText(model, "objects 1/2")
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model, _ = model.Update(cmd())
	if !strings.Contains(model.View(), "in view only: quota exceeded") {
		t.Fatalf("expected durable failure in status:\n%s", model.View())
	}
}
