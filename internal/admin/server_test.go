package admin

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"v2x-sim/internal/config"
	"v2x-sim/internal/sim"
	"v2x-sim/internal/threat"
)

type testEnv struct {
	sim *sim.Simulator
	srv *Server
	hub *Hub
	exp *Exporter
}

func newTestEnv(t *testing.T, threatProb float64) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	cfg.VehicleCount = 6
	cfg.RSUCount = 3
	cfg.ThreatProbability = threatProb
	cfg.SuspiciousProbability = 1
	hub := NewHub()
	exp := NewExporter()
	mw := sim.NewMultiWriter(nil, []sim.ThreatWriter{hub, exp})
	s := sim.NewSimulator("test-cluster", cfg, mw, mw, rand.New(rand.NewSource(3)), nil)
	return &testEnv{sim: s, srv: NewServer(s, hub, exp), hub: hub, exp: exp}
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

// command posts to path and returns the applied flag of a 200 response.
func (e *testEnv) command(t *testing.T, path string) bool {
	t.Helper()
	w := e.do(t, http.MethodPost, path)
	if w.Code != http.StatusOK {
		t.Fatalf("POST %s: expected 200, got %d", path, w.Code)
	}
	var body map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	applied, ok := body["applied"]
	if !ok {
		t.Fatalf("POST %s: missing applied field", path)
	}
	return applied
}

func TestHandleToggle(t *testing.T) {
	env := newTestEnv(t, 0)
	w := env.do(t, http.MethodPost, "/toggle")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["running"] || env.sim.Running() {
		t.Fatalf("expected simulator paused")
	}
	env.do(t, http.MethodPost, "/toggle")
	if !env.sim.Running() {
		t.Fatalf("expected simulator running again")
	}
	if w := env.do(t, http.MethodGet, "/toggle"); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /toggle should be rejected, got %d", w.Code)
	}
}

func TestSnapshotAndMetrics(t *testing.T) {
	env := newTestEnv(t, 1)
	env.sim.Tick(context.Background())

	w := env.do(t, http.MethodGet, "/snapshot")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap sim.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Tick != 1 || len(snap.Vehicles) != 6 || len(snap.RSUs) != 3 || len(snap.Threats) != 1 {
		t.Fatalf("unexpected snapshot: tick=%d vehicles=%d rsus=%d threats=%d", snap.Tick, len(snap.Vehicles), len(snap.RSUs), len(snap.Threats))
	}

	w = env.do(t, http.MethodGet, "/metrics")
	var m struct {
		Health  string `json:"health"`
		Metrics struct {
			ThreatsDetected int `json:"threats_detected"`
		} `json:"metrics"`
	}
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if m.Metrics.ThreatsDetected != 1 || m.Health == "" {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestThreatCommands(t *testing.T) {
	env := newTestEnv(t, 1)
	env.sim.Tick(context.Background())
	env.sim.Tick(context.Background())
	snap := env.sim.Snapshot()
	first, second := snap.Threats[0].ID, snap.Threats[1].ID

	if !env.command(t, "/threats/"+first+"/mitigate") {
		t.Fatalf("mitigate should apply")
	}
	if env.command(t, "/threats/"+first+"/mitigate") {
		t.Fatalf("repeat mitigate should be a no-op")
	}
	w := env.do(t, http.MethodGet, "/threats?active=true")
	var active []threat.Threat
	if err := json.NewDecoder(w.Body).Decode(&active); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(active) != 1 || active[0].ID != second {
		t.Fatalf("expected only %s active, got %+v", second, active)
	}

	if !env.command(t, "/threats/"+second+"/dismiss") {
		t.Fatalf("dismiss should apply")
	}
	if env.command(t, "/threats/T-missing/dismiss") {
		t.Fatalf("unknown dismiss should be a no-op")
	}
	if env.command(t, "/threats/T-missing/mitigate") {
		t.Fatalf("unknown mitigate should be a no-op")
	}
	if got := len(env.sim.Snapshot().Threats); got != 1 {
		t.Fatalf("expected 1 threat left, got %d", got)
	}

	w = env.do(t, http.MethodGet, "/commands")
	var cmds []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&cmds); err != nil {
		t.Fatalf("decode commands: %v", err)
	}
	if len(cmds) != 5 {
		t.Fatalf("expected 5 audit entries, got %d", len(cmds))
	}
	if w := env.do(t, http.MethodGet, "/commands?since=yesterday"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad since: expected 400, got %d", w.Code)
	}
}

func TestRemediateAndReset(t *testing.T) {
	env := newTestEnv(t, 0)
	if !env.command(t, "/vehicles/V-001/remediate") {
		t.Fatalf("remediate should apply")
	}
	if env.command(t, "/vehicles/V-404/remediate") {
		t.Fatalf("unknown vehicle should be a no-op")
	}
	env.sim.Tick(context.Background())
	if w := env.do(t, http.MethodPost, "/reset"); w.Code != http.StatusNoContent {
		t.Fatalf("reset: expected 204, got %d", w.Code)
	}
	if tick := env.sim.Snapshot().Tick; tick != 0 {
		t.Fatalf("expected tick 0 after reset, got %d", tick)
	}
}

func TestAnalyticsAndIndex(t *testing.T) {
	env := newTestEnv(t, 1)
	for i := 0; i < 4; i++ {
		env.sim.Tick(context.Background())
	}
	w := env.do(t, http.MethodGet, "/analytics")
	var a threat.Analytics
	if err := json.NewDecoder(w.Body).Decode(&a); err != nil {
		t.Fatalf("decode analytics: %v", err)
	}
	if a.Total != 4 || a.Active != 4 || len(a.Recent) != 4 {
		t.Fatalf("unexpected analytics: total=%d active=%d recent=%d", a.Total, a.Active, len(a.Recent))
	}

	w = env.do(t, http.MethodGet, "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "test-cluster") {
		t.Fatalf("index did not render: %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/config"); w.Code != http.StatusOK {
		t.Fatalf("config: expected 200, got %d", w.Code)
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	env := newTestEnv(t, 1)
	env.sim.Tick(context.Background())
	env.sim.ToggleRun()

	w := env.do(t, http.MethodGet, "/metrics/prom")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"v2x_tick 1",
		"v2x_vehicles 6",
		"v2x_threats_generated_total{",
		`v2x_commands_total{applied="true",command="toggle_run"} 1`,
		`v2x_messages_per_minute{direction="sent"} 360`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestWebsocketFeed(t *testing.T) {
	env := newTestEnv(t, 1)
	env.sim.Tick(context.Background())

	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() Message {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}
	if m := read(); m.Type != MessageSnapshot {
		t.Fatalf("expected latest snapshot on connect, got %q", m.Type)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	env.sim.Tick(context.Background())
	if m := read(); m.Type != MessageThreat {
		t.Fatalf("expected threat message, got %q", m.Type)
	}
	m := read()
	if m.Type != MessageSnapshot {
		t.Fatalf("expected snapshot message, got %q", m.Type)
	}
	data, _ := m.Data.(map[string]any)
	if data["tick"] != float64(2) {
		t.Fatalf("expected tick 2, got %v", data["tick"])
	}

	env.hub.Close()
	if env.hub.Clients() != 0 {
		t.Fatalf("expected no clients after close")
	}
}

type statusRecorder struct{ states chan bool }

func (s *statusRecorder) SetAdminStatus(l bool) { s.states <- l }

func TestStartShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t, 0)
	status := &statusRecorder{states: make(chan bool, 2)}
	env.srv.Status = status

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- env.srv.Start(ctx, addr) }()

	select {
	case up := <-status.states:
		if !up {
			t.Fatalf("expected listening status")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not start")
	}
	resp, err := http.Get("http://" + addr + "/snapshot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
	if up := <-status.states; up {
		t.Fatalf("expected stopped status")
	}
}
