package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"coselect/internal/bench"
)

type progressModel struct {
	title   string
	events  <-chan bench.Event
	spinner spinner.Model
	prog    progress.Model
	items   []scenarioItem
	index   map[string]int
	width   int
	done    bool
	failed  bool
}

type scenarioItem struct {
	name      string
	status    bench.Status
	iteration int
	total     int
}

type eventMsg bench.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders per-scenario
// benchmark progress until events is closed.
func NewProgressModel(title string, scenarios []string, events <-chan bench.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]scenarioItem, 0, len(scenarios))
	index := make(map[string]int, len(scenarios))
	for i, name := range scenarios {
		items = append(items, scenarioItem{name: name, status: bench.StatusQueued})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(bench.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	switch {
	case m.done && m.failed:
		header = fmt.Sprintf("failed: %s", header)
	case m.done:
		header = fmt.Sprintf("done: %s", header)
	default:
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth, countWidth = 10, 14
	nameWidth := max(m.width-statusWidth-countWidth-6, 12)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, item.status))
		count := ""
		if item.total > 0 {
			count = fmt.Sprintf("%d/%d", item.iteration, item.total)
		}
		fmt.Fprintf(&b, "  %s %-*s %*s\n", status, nameWidth, truncate(item.name, nameWidth), countWidth, count)
	}

	b.WriteString("\n")
	if m.done && !m.failed {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev bench.Event) tea.Cmd {
	idx, ok := m.index[ev.Scenario]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	item.status = ev.Status
	if ev.Total > 0 {
		item.total = ev.Total
	}
	if ev.Iteration > item.iteration {
		item.iteration = ev.Iteration
	}
	if ev.Status == bench.StatusError {
		m.failed = true
	}
	return m.prog.SetPercent(m.fraction())
}

func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		switch {
		case item.status == bench.StatusDone || item.status == bench.StatusError:
			total += 1.0
		case item.total > 0:
			total += float64(item.iteration) / float64(item.total)
		}
	}
	return total / float64(len(m.items))
}

func styleStatus(status bench.Status) lipgloss.Style {
	switch status {
	case bench.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case bench.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case bench.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	// The tail counts toward width.
	return runewidth.Truncate(value, width, "...")
}
