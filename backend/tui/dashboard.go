package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/services"
	"cwatch-dashboard/backend/system"
)

// Controller is the aggregator surface the dashboard drives.
type Controller interface {
	Refresh(ctx context.Context, trigger services.Trigger) services.RefreshResult
	Block(ctx context.Context, ip string) services.MutationResult
	Unblock(ctx context.Context, ip string) services.MutationResult
	MarkSafe(ctx context.Context, ip string) services.MutationResult
}

// Tabs of the lower panel
const (
	TabSuspicious = iota
	TabBlocked
	TabActivity
	tabCount
)

var tabNames = [tabCount]string{"Suspicious", "Blocked", "Activity"}

// StateMsg carries a committed view-state.
type StateMsg models.ViewState

// StreamClosedMsg is sent when the aggregator stops.
type StreamClosedMsg struct{}

// MutationMsg carries the result of a block, unblock or mark-safe.
type MutationMsg services.MutationResult

// RefreshMsg carries the result of a manual refresh.
type RefreshMsg services.RefreshResult

type TickMsg time.Time

// DashboardModel renders the aggregator's view-state in the terminal
type DashboardModel struct {
	Ctrl    Controller
	Updates <-chan models.ViewState
	Clock   system.Clock

	State      models.ViewState
	Tab        int
	Suspicious table.Model
	Blocked    table.Model
	Activity   table.Model
	Notice     string
	Busy       bool
	Width      int
	Height     int
}

func NewDashboardModel(ctrl Controller, updates <-chan models.ViewState, clock system.Clock) DashboardModel {
	if clock == nil {
		clock = system.NewRealClock()
	}
	ipColumns := []table.Column{
		{Title: "IP", Width: 18},
		{Title: "Reason", Width: 34},
		{Title: "CC", Width: 3},
		{Title: "Time", Width: 19},
	}
	return DashboardModel{
		Ctrl:       ctrl,
		Updates:    updates,
		Clock:      clock,
		State:      models.NewViewState(),
		Suspicious: newTable(ipColumns, true),
		Blocked:    newTable(ipColumns, false),
		Activity: newTable([]table.Column{
			{Title: "IP", Width: 18},
			{Title: "Reason", Width: 34},
			{Title: "Time", Width: 19},
			{Title: "Status", Width: 10},
		}, false),
	}
}

func newTable(columns []table.Column, focused bool) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(focused),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorDeep).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorIce).
		Background(ColorDeep).
		Bold(false)
	t.SetStyles(s)
	return t
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.waitForState(), m.tick())
}

// waitForState blocks on the subscription until the next state arrives.
func (m DashboardModel) waitForState() tea.Cmd {
	if m.Updates == nil {
		return nil
	}
	updates := m.Updates
	return func() tea.Msg {
		state, ok := <-updates
		if !ok {
			return StreamClosedMsg{}
		}
		return StateMsg(state)
	}
}

func (m DashboardModel) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		m.setState(models.ViewState(msg))
		return m, m.waitForState()

	case StreamClosedMsg:
		return m, tea.Quit

	case MutationMsg:
		m.Busy = false
		if msg.Err != nil {
			m.Notice = StyleStatusBad.Render(fmt.Sprintf("%s %s failed: %s", msg.Action, msg.IP, msg.Error))
		} else {
			m.Notice = StyleStatusGood.Render(fmt.Sprintf("%s %s done", msg.Action, msg.IP))
		}
		return m, nil

	case RefreshMsg:
		m.Busy = false
		if msg.Err != nil {
			m.Notice = StyleStatusWarn.Render("refresh failed: " + msg.Error)
		} else {
			m.Notice = ""
		}
		return m, nil

	case TickMsg:
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.Tab = (m.Tab + 1) % tabCount
		m.focusTab()
		return m, nil
	case "shift+tab":
		m.Tab = (m.Tab + tabCount - 1) % tabCount
		m.focusTab()
		return m, nil
	case "r":
		if m.Busy {
			return m, nil
		}
		m.Busy = true
		m.Notice = StyleSubtitle.Render("refreshing…")
		ctrl := m.Ctrl
		return m, func() tea.Msg {
			return RefreshMsg(ctrl.Refresh(context.Background(), services.TriggerManual))
		}
	case "b":
		return m.mutateSelected(TabSuspicious, m.Ctrl.Block)
	case "s":
		return m.mutateSelected(TabSuspicious, m.Ctrl.MarkSafe)
	case "u":
		return m.mutateSelected(TabBlocked, m.Ctrl.Unblock)
	}

	var cmd tea.Cmd
	switch m.Tab {
	case TabSuspicious:
		m.Suspicious, cmd = m.Suspicious.Update(msg)
	case TabBlocked:
		m.Blocked, cmd = m.Blocked.Update(msg)
	case TabActivity:
		m.Activity, cmd = m.Activity.Update(msg)
	}
	return m, cmd
}

// mutateSelected runs action on the IP under the cursor of tab.
func (m DashboardModel) mutateSelected(tab int, action func(context.Context, string) services.MutationResult) (tea.Model, tea.Cmd) {
	if m.Tab != tab || m.Busy {
		return m, nil
	}
	ip := m.SelectedIP()
	if ip == "" {
		return m, nil
	}
	m.Busy = true
	m.Notice = StyleSubtitle.Render("working on " + ip + "…")
	return m, func() tea.Msg {
		return MutationMsg(action(context.Background(), ip))
	}
}

// SelectedIP returns the IP under the cursor of the active IP tab.
func (m DashboardModel) SelectedIP() string {
	var (
		records []models.IPRecord
		cursor  int
	)
	switch m.Tab {
	case TabSuspicious:
		records, cursor = m.State.Suspicious, m.Suspicious.Cursor()
	case TabBlocked:
		records, cursor = m.State.Blocked, m.Blocked.Cursor()
	default:
		return ""
	}
	if cursor < 0 || cursor >= len(records) {
		return ""
	}
	return records[cursor].IP
}

func (m *DashboardModel) focusTab() {
	m.Suspicious.Blur()
	m.Blocked.Blur()
	m.Activity.Blur()
	switch m.Tab {
	case TabSuspicious:
		m.Suspicious.Focus()
	case TabBlocked:
		m.Blocked.Focus()
	case TabActivity:
		m.Activity.Focus()
	}
}

func (m *DashboardModel) setState(state models.ViewState) {
	m.State = state
	m.Suspicious.SetRows(ipRows(state.Suspicious))
	m.Blocked.SetRows(ipRows(state.Blocked))

	rows := make([]table.Row, len(state.Activity))
	for i, a := range state.Activity {
		rows[i] = table.Row{a.IP, a.Reason, displayTime(a.Time), a.NormalizedStatus()}
	}
	m.Activity.SetRows(rows)
}

func ipRows(records []models.IPRecord) []table.Row {
	rows := make([]table.Row, len(records))
	for i, r := range records {
		when := r.Timestamp()
		if t, ok := r.Time(); ok {
			when = formatTime(t)
		}
		rows[i] = table.Row{r.IP, r.Reason, r.Country, when}
	}
	return rows
}

func displayTime(raw string) string {
	t, ok := models.ParseAPITime(raw)
	if !ok {
		return raw
	}
	return formatTime(t)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func (m DashboardModel) View() string {
	header := StyleHeader.Render("CWatch Dashboard")

	if m.State.Phase == models.PhaseUninitialized || m.State.Phase.Loading() {
		return lipgloss.JoinVertical(lipgloss.Left, header, "", "Loading dashboard data...")
	}

	s := m.State.Stats
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		statCard("Total Requests", humanize.Comma(s.TotalRequests)),
		statCard("Today", humanize.Comma(s.RequestsToday)),
		statCard("Last Hour", humanize.Comma(s.RequestsHour)),
		statCard("Req/s", fmt.Sprintf("%.2f", s.RequestsPerSecond)),
		statCard("Suspicious", humanize.Comma(s.SuspiciousIPs)),
		statCard("Blocked", humanize.Comma(s.BlockedIPs)),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		cards,
		m.trafficView(),
		m.tabsView(),
		m.tableView(),
		m.footerView(),
	)
}

func statCard(label, value string) string {
	return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
		StyleSubtitle.Render(label),
		StyleValue.Render(value),
	))
}

func (m DashboardModel) trafficView() string {
	series := m.State.Traffic
	title := StyleTitle.Render("Traffic (last 24 hours)")
	if len(series) == 0 {
		return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, title, StyleSubtitle.Render("no data")))
	}

	data := make([]int64, len(series))
	for i, p := range series {
		data[i] = p.Requests
	}
	line := StyleChart.Render(sparkline(data))
	axis := fmt.Sprintf("%s%s%s", series[0].Time, strings.Repeat(" ", max(len(series)-10, 1)), series[len(series)-1].Time)

	summary := fmt.Sprintf("total %s", humanize.Comma(services.SeriesTotal(series)))
	if peak, ok := services.PeakHour(series); ok {
		summary += fmt.Sprintf(" · peak %s at %s", humanize.Comma(peak.Requests), peak.Time)
	}

	return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		line,
		StyleSubtitle.Render(axis),
		StyleSubtitle.Render(summary),
	))
}

func (m DashboardModel) tabsView() string {
	counts := [tabCount]int{len(m.State.Suspicious), len(m.State.Blocked), len(m.State.Activity)}
	tabs := make([]string, tabCount)
	for i := range tabs {
		label := fmt.Sprintf("%s (%d)", tabNames[i], counts[i])
		if i == m.Tab {
			tabs[i] = StyleTabActive.Render(label)
		} else {
			tabs[i] = StyleTabInactive.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m DashboardModel) tableView() string {
	switch m.Tab {
	case TabBlocked:
		if len(m.State.Blocked) == 0 {
			return StyleSubtitle.Render("No blocked IPs")
		}
		return m.Blocked.View()
	case TabActivity:
		if len(m.State.Activity) == 0 {
			return StyleSubtitle.Render("No recent activity")
		}
		return m.Activity.View()
	default:
		if len(m.State.Suspicious) == 0 {
			return StyleSubtitle.Render("No suspicious IPs")
		}
		return m.Suspicious.View()
	}
}

func (m DashboardModel) footerView() string {
	updated := "never"
	if !m.State.LastUpdated.IsZero() {
		updated = humanize.RelTime(m.State.LastUpdated, m.Clock.Now(), "ago", "from now")
	}
	status := StyleSubtitle.Render("Last updated: " + updated)
	if m.State.Stale {
		status = StyleStatusBad.Render("STALE") + " " + status + " " + StyleStatusWarn.Render(m.State.LastError)
	}

	help := StyleSubtitle.Render("tab switch · r refresh · b block · s mark safe · u unblock · q quit")
	lines := []string{status}
	if m.Notice != "" {
		lines = append(lines, m.Notice)
	}
	lines = append(lines, help)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// sparkline renders one block character per value, scaled to the maximum.
func sparkline(data []int64) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{' ', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	var peak int64
	for _, v := range data {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	var sb strings.Builder
	for _, v := range data {
		if v < 0 {
			v = 0
		}
		idx := int(float64(v) / float64(peak) * float64(len(chars)-1))
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}
