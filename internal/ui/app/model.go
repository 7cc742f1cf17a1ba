package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	statsdto "recall/internal/modules/stats/dto"
	"recall/internal/ui/theme"
)

type statsPort interface {
	SetPeriod(ctx context.Context, period string) error
	Record(ctx context.Context, input statsdto.RecordInput) (statsdto.RecordOutput, error)
	Current() (statsdto.StatsOutput, bool)
}

// StatsMsg carries one published view into the program.
type StatsMsg struct {
	Out statsdto.StatsOutput
}

type periodSetMsg struct {
	period string
	err    error
}

type recordedMsg struct {
	out statsdto.RecordOutput
	err error
}

var periods = []struct {
	key, period, label string
}{
	{"1", "today", "Today"},
	{"2", "week", "Week"},
	{"3", "month", "Month"},
	{"4", "all", "All"},
	{"5", "last7", "Last 7 days"},
}

var categoryOrder = []string{"people", "places", "objects", "category-match", "other"}

var categoryLabels = map[string]string{
	"people":         "People",
	"places":         "Places",
	"objects":        "Objects",
	"category-match": "Category Match",
	"other":          "Other",
}

const sparkRunes = "▁▂▃▄▅▆▇█"

// Model is the stats dashboard. Views arrive as StatsMsg; key presses change
// the period or, after r, enter a finished session.
type Model struct {
	stats   statsPort
	userID  string
	out     statsdto.StatsOutput
	hasOut  bool
	period  string
	status  string
	width   int
	showAll bool

	entering bool
	entry    []rune
}

func NewModel(userID string, stats statsPort) Model {
	m := Model{stats: stats, userID: userID, period: "last7", status: "waiting for data"}
	if out, ok := stats.Current(); ok {
		m.out, m.hasOut = out, true
		m.period = out.Period
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case StatsMsg:
		m.out, m.hasOut = msg.Out, true
		m.period = msg.Out.Period
		m.status = "updated " + msg.Out.ComputedAt.Format("15:04:05")

	case periodSetMsg:
		if msg.err != nil {
			m.status = "period change failed: " + msg.err.Error()
		} else {
			m.status = "period: " + msg.period
		}

	case recordedMsg:
		switch {
		case msg.err != nil && msg.out.ID != "":
			m.status = "recorded " + msg.out.ID + " in view only: " + msg.err.Error()
		case msg.err != nil:
			m.status = "record failed: " + msg.err.Error()
		case msg.out.RemoteAccepted:
			m.status = "recorded " + msg.out.ID
		default:
			m.status = "recorded " + msg.out.ID + " locally"
		}

	case tea.KeyMsg:
		if m.entering {
			return m.updateEntry(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "d":
			m.showAll = !m.showAll
		case "r":
			m.entering, m.entry = true, nil
		default:
			for _, p := range periods {
				if msg.String() == p.key {
					m.period = p.period
					m.status = "loading " + p.label
					return m, m.setPeriodCmd(p.period)
				}
			}
		}
	}
	return m, nil
}

func (m Model) setPeriodCmd(period string) tea.Cmd {
	return func() tea.Msg {
		err := m.stats.SetPeriod(context.Background(), period)
		return periodSetMsg{period: period, err: err}
	}
}

func (m Model) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.entering, m.entry = false, nil
		m.status = "record cancelled"
	case tea.KeyEnter:
		input, err := parseEntry(string(m.entry))
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.entering, m.entry = false, nil
		m.status = "recording " + input.Category
		return m, m.recordCmd(input)
	case tea.KeyBackspace:
		if len(m.entry) > 0 {
			m.entry = m.entry[:len(m.entry)-1]
		}
	case tea.KeySpace:
		m.entry = append(m.entry, ' ')
	case tea.KeyRunes:
		m.entry = append(m.entry, msg.Runes...)
	}
	return m, nil
}

func (m Model) recordCmd(input statsdto.RecordInput) tea.Cmd {
	return func() tea.Msg {
		out, err := m.stats.Record(context.Background(), input)
		return recordedMsg{out: out, err: err}
	}
}

const entryHint = "category correct/total [seconds] [skipped]"

// parseEntry reads "places 7/10 42 1". Seconds and skipped are optional.
func parseEntry(line string) (statsdto.RecordInput, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 4 {
		return statsdto.RecordInput{}, errors.New("expected " + entryHint)
	}
	correctText, totalText, ok := strings.Cut(fields[1], "/")
	if !ok {
		return statsdto.RecordInput{}, fmt.Errorf("score %q is not correct/total", fields[1])
	}
	correct, err := strconv.Atoi(correctText)
	if err != nil {
		return statsdto.RecordInput{}, fmt.Errorf("correct answers %q: not a number", correctText)
	}
	total, err := strconv.Atoi(totalText)
	if err != nil {
		return statsdto.RecordInput{}, fmt.Errorf("total questions %q: not a number", totalText)
	}
	input := statsdto.RecordInput{Category: fields[0], CorrectAnswers: correct, TotalQuestions: total}
	if len(fields) > 2 {
		if input.TotalTime, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return statsdto.RecordInput{}, fmt.Errorf("seconds %q: not a number", fields[2])
		}
	}
	if len(fields) > 3 {
		if input.Skipped, err = strconv.Atoi(fields[3]); err != nil {
			return statsdto.RecordInput{}, fmt.Errorf("skipped %q: not a number", fields[3])
		}
	}
	return input, nil
}

func (m Model) View() string {
	sections := []string{m.renderHeader(), m.renderPeriods()}
	if !m.hasOut {
		sections = append(sections, theme.Pane.Render(theme.Muted.Render("loading…")))
	} else if m.out.NoData {
		sections = append(sections, theme.Pane.Render(theme.Hot.Render("No Data")+"\n"+theme.Muted.Render("source: "+m.out.DataSource)))
	} else {
		sections = append(sections, m.renderOverall(), m.renderSeries())
	}
	if m.entering {
		sections = append(sections, theme.PaneActive.Render(theme.Title.Render("Record session")+"\n> "+string(m.entry)+"█\n"+theme.Muted.Render(entryHint+"  ·  enter save  esc cancel")))
	}
	sections = append(sections, theme.Muted.Render(m.status+"  ·  1-5 period  r record  d details  q quit"))
	style := theme.App
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderHeader() string {
	title := theme.Title.Render("recall") + theme.Muted.Render("  "+m.userID)
	if !m.hasOut {
		return title
	}
	return title + "  " + theme.SourceBadge(m.out.DataSource, m.out.Connected)
}

func (m Model) renderPeriods() string {
	parts := make([]string, 0, len(periods))
	for _, p := range periods {
		label := p.key + " " + p.label
		if p.period == m.period {
			parts = append(parts, theme.Hot.Render("["+label+"]"))
			continue
		}
		parts = append(parts, theme.Muted.Render(" "+label+" "))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderOverall() string {
	o := m.out.Overall
	cells := []string{
		metricCell("Accuracy", fmt.Sprintf("%d%%", o.Accuracy)),
		metricCell("Avg / card", fmt.Sprintf("%ds", o.AvgTimePerCard)),
		metricCell("Reviewed", fmt.Sprintf("%d", o.CardsReviewed)),
		metricCell("Skipped", fmt.Sprintf("%d", o.CardsSkipped)),
		metricCell("Sessions", fmt.Sprintf("%d", m.out.RecordCount)),
	}
	return theme.PaneActive.Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
}

func metricCell(label, value string) string {
	return lipgloss.NewStyle().Width(14).Render(theme.Muted.Render(label) + "\n" + theme.Title.Render(value))
}

func (m Model) renderSeries() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Accuracy by category"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(16).Render(""))
	for _, bucket := range m.out.Buckets {
		b.WriteString(theme.Muted.Render(padLabel(bucket.Label)))
	}
	b.WriteString("\n")
	for _, key := range categoryOrder {
		series := m.out.Series[key]
		per := m.out.PerCategory[key]
		if !m.showAll && per.CardsReviewed == 0 {
			continue
		}
		style := lipgloss.NewStyle().Foreground(theme.CategoryColor(key))
		b.WriteString(style.Width(16).Render(categoryLabels[key]))
		for _, acc := range series {
			b.WriteString(style.Render(padLabel(fmt.Sprintf("%s%3d", spark(acc), acc))))
		}
		b.WriteString(theme.Muted.Render(fmt.Sprintf("  %d%%", per.Accuracy)))
		b.WriteString("\n")
	}
	return theme.Pane.Render(strings.TrimSuffix(b.String(), "\n"))
}

func padLabel(s string) string {
	return lipgloss.NewStyle().Width(9).Render(s)
}

func spark(accuracy int) string {
	runes := []rune(sparkRunes)
	idx := accuracy * (len(runes) - 1) / 100
	if idx < 0 {
		idx = 0
	}
	if idx >= len(runes) {
		idx = len(runes) - 1
	}
	return string(runes[idx])
}
