package sim

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"v2x-sim/internal/config"
	"v2x-sim/internal/network"
	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// threatMsg carries a newly generated threat.
type threatMsg struct {
	line string
	th   threat.Threat
}

// snapshotMsg carries the observation after a tick.
type snapshotMsg struct{ Snapshot }

// adminMsg reports admin API status.
type adminMsg struct{ active bool }

type setControllerMsg struct{ c Controller }

const (
	maxLogLines         = 1000
	maxSectionHeightPct = 0.3
	threatTableRows     = 8
)

// TUIWriter renders the simulation in a bubbletea console and lets the
// operator issue commands.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter. Only vehicles that are not normal are
// logged to keep the console readable.
func (w *TUIWriter) Write(row telemetry.TelemetryRow) error {
	if row.Status == telemetry.VehicleNormal {
		return nil
	}
	w.program.Send(logMsg{line: formatTelemetry(row)})
	return nil
}

// WriteBatch outputs multiple telemetry rows.
func (w *TUIWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteThreat implements ThreatWriter.
func (w *TUIWriter) WriteThreat(t threat.Threat) error {
	w.program.Send(threatMsg{line: formatThreat(t), th: t})
	return nil
}

// WriteSnapshot implements SnapshotWriter.
func (w *TUIWriter) WriteSnapshot(s Snapshot) error {
	w.program.Send(snapshotMsg{s})
	return nil
}

// WriteCommand implements CommandWriter.
func (w *TUIWriter) WriteCommand(ev telemetry.CommandEventRow) error {
	w.program.Send(logMsg{line: formatCommand(ev)})
	return nil
}

// SetAdminStatus updates the admin API indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetController registers the command surface used by key bindings.
func (w *TUIWriter) SetController(c Controller) {
	w.program.Send(setControllerMsg{c: c})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg            *config.SimulationConfig
	table          table.Model
	threats        table.Model
	vp             viewport.Model
	logs           []string
	snap           Snapshot
	threatIDs      []string
	ctrl           Controller
	admin          bool
	wrap           bool
	autoscroll     bool
	summary        bool
	help           bool
	showCategories bool
	remediate      textinput.Model
	remediateOpen  bool
	header         string
	headerHeight   int
	height         int
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	if cfg == nil {
		cfg = config.Defaults()
	}
	cols := []table.Column{
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
	}
	rows := []table.Row{
		{"Vehicles", fmt.Sprintf("%d", cfg.VehicleCount), "Roadside Units", fmt.Sprintf("%d", cfg.RSUCount)},
		{"Tick Interval", cfg.TickInterval.String(), "Threat Probability", fmt.Sprintf("%.2f", cfg.ThreatProbability)},
		{"Threat History", fmt.Sprintf("%d", cfg.ThreatHistoryCap), "Max Speed (km/h)", fmt.Sprintf("%.0f", cfg.MaxSpeedKmh)},
		{"Mutual Range", fmt.Sprintf("%t", cfg.MutualRange), "Reset Resumes", fmt.Sprintf("%t", cfg.ResetResumes)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))

	threatCols := []table.Column{
		{Title: "ID", Width: 24},
		{Title: "Category", Width: 22},
		{Title: "Sev", Width: 6},
		{Title: "Conf", Width: 5},
		{Title: "Source", Width: 7},
		{Title: "RSU", Width: 7},
		{Title: "Mit", Width: 3},
	}
	th := table.New(table.WithColumns(threatCols), table.WithHeight(threatTableRows), table.WithFocused(true))

	return tuiModel{
		cfg:            cfg,
		table:          t,
		threats:        th,
		vp:             viewport.New(0, 0),
		autoscroll:     true,
		showCategories: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		tableWidth := msg.Width
		if m.showCategories {
			tableWidth = msg.Width / 2
		}
		m.table.SetWidth(tableWidth)
		m.threats.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.remediateOpen {
			switch msg.Type {
			case tea.KeyEnter:
				id := strings.TrimSpace(m.remediate.Value())
				if id != "" && m.ctrl != nil {
					go m.ctrl.RemediateVehicle(id)
				}
				m.remediateOpen = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.remediateOpen = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.remediate, cmd = m.remediate.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p", " ":
			if m.ctrl != nil {
				go m.ctrl.ToggleRun()
			}
			return m, nil
		case "r":
			if m.ctrl != nil {
				go m.ctrl.Reset()
			}
			return m, nil
		case "d":
			if id := m.selectedThreat(); id != "" && m.ctrl != nil {
				go m.ctrl.DismissThreat(id)
			}
			return m, nil
		case "x":
			if id := m.selectedThreat(); id != "" && m.ctrl != nil {
				go m.ctrl.MitigateThreat(id)
			}
			return m, nil
		case "v":
			m.remediate = textinput.New()
			m.remediate.Placeholder = "vehicle id, e.g. V-001"
			m.remediate.Focus()
			m.remediateOpen = true
			m.updateViewportHeight()
			return m, nil
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "c":
			m.showCategories = !m.showCategories
			if m.showCategories {
				m.table.SetWidth(m.vp.Width / 2)
			} else {
				m.table.SetWidth(m.vp.Width)
			}
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "t":
			m.summary = !m.summary
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		case "j", "k", "down", "up":
			var cmd tea.Cmd
			m.threats, cmd = m.threats.Update(msg)
			return m, cmd
		}
		if !m.autoscroll {
			switch msg.String() {
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case logMsg:
		m.appendLog(msg.line)
	case threatMsg:
		m.appendLog(msg.line)
	case snapshotMsg:
		m.snap = msg.Snapshot
		m.refreshThreats()
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
	case adminMsg:
		m.admin = msg.active
	case setControllerMsg:
		m.ctrl = msg.c
	}
	return m, nil
}

func (m *tuiModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m tuiModel) selectedThreat() string {
	i := m.threats.Cursor()
	if i < 0 || i >= len(m.threatIDs) {
		return ""
	}
	return m.threatIDs[i]
}

func (m *tuiModel) refreshThreats() {
	rows := make([]table.Row, 0, len(m.snap.Threats))
	ids := make([]string, 0, len(m.snap.Threats))
	for _, t := range m.snap.Threats {
		mit := ""
		if t.Mitigated {
			mit = "✓"
		}
		rows = append(rows, table.Row{
			t.ID,
			string(t.Category),
			string(t.Severity),
			fmt.Sprintf("%.2f", t.Confidence),
			t.SourceID,
			t.Evidence.DetectedBy,
			mit,
		})
		ids = append(ids, t.ID)
	}
	m.threats.SetRows(rows)
	m.threatIDs = ids
	if c := m.threats.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.threats.SetCursor(len(rows) - 1)
	}
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	threatHeight := 1 + lipgloss.Height(m.threats.View())
	dialogHeight := 0
	if m.remediateOpen {
		dialogHeight = 2
	}
	h := m.height - m.headerHeight - bottomHeight - threatHeight - dialogHeight - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Threats:",
		m.threats.View(),
	}
	if m.remediateOpen {
		sections = append(sections, divider, "Remediate vehicle: "+m.remediate.View())
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	if !m.showCategories {
		return tableView
	}
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, renderCategoryTree(m.snap.Metrics.ThreatsByType))
}

func renderCategoryTree(counts map[threat.Category]int) string {
	var b strings.Builder
	b.WriteString("Threats by category\n")
	for i, c := range threat.Categories {
		prefix := "├─"
		if i == len(threat.Categories)-1 {
			prefix = "└─"
		}
		fmt.Fprintf(&b, "%s %-22s %d\n", prefix, c, counts[c])
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) renderSummary() string {
	a := threat.Summarize(m.snap.Threats, m.snap.Timestamp)
	var sevParts []string
	for _, s := range threat.Severities {
		sevParts = append(sevParts, fmt.Sprintf("%s%s=%d%s", severityColor(s), s, a.BySeverity[s], colorReset))
	}
	statuses := map[telemetry.VehicleStatus]int{}
	for _, v := range m.snap.Vehicles {
		statuses[v.Status]++
	}
	var stParts []string
	for st, n := range statuses {
		stParts = append(stParts, fmt.Sprintf("%s%s=%d%s", statusColor(st), st, n, colorReset))
	}
	sort.Strings(stParts)
	var hist []string
	for _, n := range a.Confidence[7:] {
		hist = append(hist, fmt.Sprintf("%d", n))
	}
	return fmt.Sprintf("%sSUMMARY%s active=%d mitigated=%d %s [%s] conf(0.7-1.0)=[%s]",
		colorBlue, colorReset, a.Active, a.Mitigated,
		strings.Join(sevParts, " "), strings.Join(stParts, " "), strings.Join(hist, ","))
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	mt := m.snap.Metrics
	state := fmt.Sprintf("%sSTATE%s tick=%d %shealth=%d (%s)%s vehicles=%d rsus=%d threats=%d compromised=%d %smsgs=%d/%d%s latency=%.1fms",
		colorBlue, colorReset, m.snap.Tick,
		healthColor(mt.NetworkHealth), mt.NetworkHealth, network.HealthBand(mt.NetworkHealth), colorReset,
		mt.TotalVehicles, mt.ActiveRSUs, mt.ThreatsDetected, mt.CompromisedNodes,
		colorGreen, mt.MessagesReceived, mt.MessagesSent, colorReset, mt.AverageLatencyMs)
	if m.snap.Phase != "" {
		state += fmt.Sprintf(" %sphase=%s%s", colorMagenta, m.snap.Phase, colorReset)
	}
	line := fmt.Sprintf("%s | Running %s | Admin API %s | Wrap %s | Scroll %s | Summary %s | Help %s",
		state, indicator(m.snap.Running), indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.summary), indicator(m.help))
	if m.summary {
		return fmt.Sprintf("%s\n%s", m.renderSummary(), line)
	}
	return line
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q      quit",
		" p/space pause or resume the simulation",
		" r      reset the population",
		" j/k    select threat",
		" d      dismiss selected threat",
		" x      mark selected threat mitigated",
		" v      remediate a vehicle by id",
		" w      toggle wrap for the log",
		" s      toggle auto-scroll",
		" c      toggle category tree",
		" t      toggle summary footer",
		" h/?    toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" pgdown/pgup       scroll the log a page",
	}
	return strings.Join(lines, "\n")
}
