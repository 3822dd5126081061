package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wmbusgo/wmbusdecode/internal/session"
)

const dashboardRefreshInterval = time.Second

// Dashboard is a bubbletea model listing the meters a decode session has
// seen: id, driver, name, and time since last telegram.
type Dashboard struct {
	sess    *session.DecoderSession
	meters  []session.MeterSummary
	width   int
	height  int
	now     time.Time
	stopped bool
}

// NewDashboard creates a Dashboard model reading live from sess.
func NewDashboard(sess *session.DecoderSession) *Dashboard {
	return &Dashboard{sess: sess, width: GetTerminalWidth()}
}

type tickMsg time.Time

func (d *Dashboard) Init() tea.Cmd {
	return tea.Tick(dashboardRefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = m.Width, m.Height
		return d, nil
	case tea.KeyMsg:
		switch m.String() {
		case "q", "ctrl+c", "esc":
			d.stopped = true
			return d, tea.Quit
		}
		return d, nil
	case tickMsg:
		d.meters = d.sess.Snapshot()
		d.now = time.Time(m)
		return d, tea.Tick(dashboardRefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
	default:
		return d, nil
	}
}

func (d *Dashboard) View() string {
	if d.stopped {
		return ""
	}

	header := NewHeader("wmbusdecode", "wmbusdecode tui", map[string]string{
		"meters": fmt.Sprintf("%d", len(d.meters)),
	}).SetWidth(d.width)

	var b strings.Builder
	b.WriteString(header.Render())
	b.WriteString("\n\n")

	if len(d.meters) == 0 {
		b.WriteString(StepPendingStyle.Render("  waiting for telegrams..."))
		b.WriteString("\n")
		b.WriteString(StepNoteStyle.Render("  (press q to quit)"))
		return b.String()
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Left,
		ResultKeyStyle.Render("ID"),
		ResultKeyStyle.Render("DRIVER"),
		ResultKeyStyle.Render("NAME"),
		ResultKeyStyle.Render("LAST SEEN"),
	)
	b.WriteString("  " + headerRow + "\n")

	for _, ms := range d.meters {
		ago := "-"
		if !ms.LastSeen.IsZero() {
			ago = d.now.Sub(ms.LastSeen).Truncate(time.Second).String() + " ago"
		}
		row := lipgloss.JoinHorizontal(lipgloss.Left,
			ResultValueStyle.Width(15).Render(ms.ID),
			ResultValueStyle.Width(15).Render(ms.Driver),
			ResultValueStyle.Width(15).Render(ms.Name),
			ResultValueStyle.Render(ago),
		)
		b.WriteString("  " + row + "\n")
	}

	b.WriteString("\n")
	b.WriteString(StepNoteStyle.Render("  (press q to quit)"))
	return b.String()
}
