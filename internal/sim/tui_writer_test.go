package sim

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"v2x-sim/internal/network"
	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

type ctrlCall struct {
	op string
	id string
}

// chanController records controller calls made from TUI goroutines.
type chanController struct{ calls chan ctrlCall }

func newChanController() *chanController {
	return &chanController{calls: make(chan ctrlCall, 8)}
}

func (c *chanController) ToggleRun() bool {
	c.calls <- ctrlCall{op: "toggle"}
	return true
}
func (c *chanController) Reset() { c.calls <- ctrlCall{op: "reset"} }
func (c *chanController) DismissThreat(id string) bool {
	c.calls <- ctrlCall{op: "dismiss", id: id}
	return true
}
func (c *chanController) MitigateThreat(id string) bool {
	c.calls <- ctrlCall{op: "mitigate", id: id}
	return true
}
func (c *chanController) RemediateVehicle(id string) bool {
	c.calls <- ctrlCall{op: "remediate", id: id}
	return true
}

func (c *chanController) expect(t *testing.T, op, id string) {
	t.Helper()
	select {
	case got := <-c.calls:
		if got.op != op || got.id != id {
			t.Fatalf("expected %s(%q), got %s(%q)", op, id, got.op, got.id)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", op)
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}

	normal := telemetry.TelemetryRow{VehicleID: "V-001", Status: telemetry.VehicleNormal, Timestamp: time.Unix(0, 0).UTC()}
	if err := w.Write(normal); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(p.msgs) != 0 {
		t.Fatalf("normal vehicles should not be logged")
	}
	suspicious := normal
	suspicious.Status = telemetry.VehicleSuspicious
	if err := w.WriteBatch([]telemetry.TelemetryRow{normal, suspicious}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if _, ok := p.msgs[0].(logMsg); !ok {
		t.Fatalf("expected logMsg, got %T", p.msgs[0])
	}
	if err := w.WriteThreat(threat.Threat{ID: "T-1", Category: threat.GPSSpoofing}); err != nil {
		t.Fatalf("threat: %v", err)
	}
	if _, ok := p.msgs[1].(threatMsg); !ok {
		t.Fatalf("expected threatMsg, got %T", p.msgs[1])
	}
	if err := w.WriteSnapshot(Snapshot{Tick: 3}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if sm, ok := p.msgs[2].(snapshotMsg); !ok || sm.Tick != 3 {
		t.Fatalf("expected snapshotMsg, got %#v", p.msgs[2])
	}
	if err := w.WriteCommand(telemetry.CommandEventRow{Command: telemetry.CommandReset}); err != nil {
		t.Fatalf("command: %v", err)
	}
	if _, ok := p.msgs[3].(logMsg); !ok {
		t.Fatalf("expected logMsg for command, got %T", p.msgs[3])
	}
	w.SetAdminStatus(true)
	if _, ok := p.msgs[4].(adminMsg); !ok {
		t.Fatalf("expected adminMsg, got %T", p.msgs[4])
	}
	w.SetController(newChanController())
	if _, ok := p.msgs[5].(setControllerMsg); !ok {
		t.Fatalf("expected setControllerMsg, got %T", p.msgs[5])
	}
}

func TestWrapToggle(t *testing.T) {
	m := newTUIModel(nil)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 60})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "one two three four five six"})
	m = mi.(tuiModel)
	if strings.Count(m.vp.View(), "one") != 1 {
		t.Fatalf("log line missing from viewport")
	}
	mi, _ = m.Update(keyRune('w'))
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	lines := strings.Split(m.vp.View(), "\n")
	if len(lines) < 2 || !strings.Contains(lines[1], "five") {
		t.Fatalf("expected wrapped content on second line, got %q", lines)
	}
}

func TestScrollToggle(t *testing.T) {
	m := newTUIModel(nil)
	m.vp.Height = 1
	m.vp.Width = 20
	mi, _ := m.Update(logMsg{line: "l1"})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "l2"})
	m = mi.(tuiModel)
	if m.vp.YOffset != 1 {
		t.Fatalf("expected YOffset 1, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(keyRune('s'))
	m = mi.(tuiModel)
	if m.autoscroll {
		t.Fatalf("autoscroll should be off")
	}
	mi, _ = m.Update(logMsg{line: "l3"})
	m = mi.(tuiModel)
	if m.vp.YOffset != 1 {
		t.Fatalf("expected YOffset unchanged, got %d", m.vp.YOffset)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	m = mi.(tuiModel)
	if m.vp.YOffset != 0 {
		t.Fatalf("expected YOffset 0 after pgup, got %d", m.vp.YOffset)
	}
}

func TestLogBufferBounded(t *testing.T) {
	m := newTUIModel(nil)
	for i := 0; i < maxLogLines+10; i++ {
		m.appendLog("line")
	}
	if len(m.logs) != maxLogLines {
		t.Fatalf("expected %d log lines, got %d", maxLogLines, len(m.logs))
	}
}

func TestSnapshotPopulatesThreatTable(t *testing.T) {
	m := newTUIModel(nil)
	snap := Snapshot{
		Tick: 7,
		Threats: []threat.Threat{
			{ID: "T-2", Category: threat.DoSAttack, Severity: threat.SeverityHigh},
			{ID: "T-1", Category: threat.ReplayAttack, Severity: threat.SeverityLow, Mitigated: true},
		},
		Metrics: network.Metrics{NetworkHealth: 55, ThreatsByType: map[threat.Category]int{threat.DoSAttack: 1, threat.ReplayAttack: 1}},
	}
	mi, _ := m.Update(snapshotMsg{snap})
	m = mi.(tuiModel)
	if len(m.threats.Rows()) != 2 {
		t.Fatalf("expected 2 threat rows, got %d", len(m.threats.Rows()))
	}
	if m.selectedThreat() != "T-2" {
		t.Fatalf("expected newest threat selected, got %q", m.selectedThreat())
	}
	if !strings.Contains(m.header, string(threat.DoSAttack)) {
		t.Fatalf("category tree missing from header")
	}
	bottom := m.renderBottom()
	if !strings.Contains(bottom, "tick=7") || !strings.Contains(bottom, "critical") {
		t.Fatalf("unexpected state line: %q", bottom)
	}

	mi, _ = m.Update(keyRune('c'))
	m = mi.(tuiModel)
	if strings.Contains(m.header, "Threats by category") {
		t.Fatalf("category tree should be hidden")
	}
}

func TestKeysDriveController(t *testing.T) {
	ctrl := newChanController()
	m := newTUIModel(nil)
	mi, _ := m.Update(setControllerMsg{c: ctrl})
	m = mi.(tuiModel)
	mi, _ = m.Update(snapshotMsg{Snapshot{Threats: []threat.Threat{{ID: "T-9"}, {ID: "T-8"}}}})
	m = mi.(tuiModel)

	mi, _ = m.Update(keyRune('p'))
	m = mi.(tuiModel)
	ctrl.expect(t, "toggle", "")

	mi, _ = m.Update(keyRune('r'))
	m = mi.(tuiModel)
	ctrl.expect(t, "reset", "")

	mi, _ = m.Update(keyRune('j'))
	m = mi.(tuiModel)
	mi, _ = m.Update(keyRune('x'))
	m = mi.(tuiModel)
	ctrl.expect(t, "mitigate", "T-8")

	mi, _ = m.Update(keyRune('k'))
	m = mi.(tuiModel)
	mi, _ = m.Update(keyRune('d'))
	m = mi.(tuiModel)
	ctrl.expect(t, "dismiss", "T-9")

	mi, _ = m.Update(keyRune('v'))
	m = mi.(tuiModel)
	if !m.remediateOpen {
		t.Fatalf("remediate dialog should be open")
	}
	for _, r := range "V-004" {
		mi, _ = m.Update(keyRune(r))
		m = mi.(tuiModel)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = mi.(tuiModel)
	if m.remediateOpen {
		t.Fatalf("remediate dialog should close on enter")
	}
	ctrl.expect(t, "remediate", "V-004")
}

func TestHelpToggle(t *testing.T) {
	m := newTUIModel(nil)
	mi, _ := m.Update(keyRune('?'))
	m = mi.(tuiModel)
	if !strings.Contains(m.View(), "Key Bindings") {
		t.Fatalf("help view not rendered")
	}
	mi, _ = m.Update(keyRune('?'))
	m = mi.(tuiModel)
	if m.help {
		t.Fatalf("help should be closed")
	}
}

func TestQuitKey(t *testing.T) {
	m := newTUIModel(nil)
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}
