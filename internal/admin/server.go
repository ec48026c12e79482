package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"v2x-sim/internal/logging"
	"v2x-sim/internal/sim"
	"v2x-sim/internal/threat"
)

// Server exposes the simulator's observation feed and command surface over
// HTTP.
type Server struct {
	Sim *sim.Simulator
	// Status, when set, is told whether the API is listening.
	Status   sim.AdminStatusWriter
	hub      *Hub
	exporter *Exporter
	tpl      *template.Template
	mux      *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

// NewServer builds the admin API. hub and exporter may be nil, in which case
// /ws and /metrics/prom are not served.
func NewServer(s *sim.Simulator, hub *Hub, exporter *Exporter) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	srv := &Server{Sim: s, hub: hub, exporter: exporter, tpl: tpl, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /threats", s.handleThreats)
	s.mux.HandleFunc("GET /analytics", s.handleAnalytics)
	s.mux.HandleFunc("GET /commands", s.handleCommands)
	s.mux.HandleFunc("GET /config", s.handleConfig)
	s.mux.HandleFunc("POST /toggle", s.handleToggle)
	s.mux.HandleFunc("POST /reset", s.handleReset)
	s.mux.HandleFunc("POST /threats/{id}/dismiss", s.handleDismiss)
	s.mux.HandleFunc("POST /threats/{id}/mitigate", s.handleMitigate)
	s.mux.HandleFunc("POST /vehicles/{id}/remediate", s.handleRemediate)
	if s.hub != nil {
		s.mux.Handle("GET /ws", s.hub)
	}
	if s.exporter != nil {
		s.mux.Handle("GET /metrics/prom", s.exporter.Handler())
	}
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("admin shutdown failed", "err", err)
		}
		if s.hub != nil {
			s.hub.Close()
		}
	}()

	log.Info("admin API listening", "addr", ln.Addr().String())
	if s.Status != nil {
		s.Status.SetAdminStatus(true)
		defer s.Status.SetAdminStatus(false)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, snap); err != nil {
		logging.FromContext(r.Context()).Error("render index failed", "err", err)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Snapshot())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":    snap.Tick,
		"running": snap.Running,
		"health":  snap.Health,
		"metrics": snap.Metrics,
	})
}

// handleThreats lists the history, newest first. ?active=true drops mitigated
// threats.
func (s *Server) handleThreats(w http.ResponseWriter, r *http.Request) {
	threats := s.Sim.Snapshot().Threats
	if r.URL.Query().Get("active") == "true" {
		active := make([]threat.Threat, 0, len(threats))
		for _, t := range threats {
			if !t.Mitigated {
				active = append(active, t)
			}
		}
		threats = active
	}
	writeJSON(w, http.StatusOK, threats)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	writeJSON(w, http.StatusOK, threat.Summarize(snap.Threats, snap.Timestamp))
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")
	if since == "" {
		writeJSON(w, http.StatusOK, s.Sim.Commands())
		return
	}
	ts, err := time.Parse(time.RFC3339, since)
	if err != nil {
		writeError(w, http.StatusBadRequest, "since must be RFC3339")
		return
	}
	writeJSON(w, http.StatusOK, s.Sim.CommandsSince(ts))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.GetConfig())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.Sim.ToggleRun()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Sim.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	writeApplied(w, s.Sim.DismissThreat(r.PathValue("id")))
}

func (s *Server) handleMitigate(w http.ResponseWriter, r *http.Request) {
	writeApplied(w, s.Sim.MitigateThreat(r.PathValue("id")))
}

func (s *Server) handleRemediate(w http.ResponseWriter, r *http.Request) {
	writeApplied(w, s.Sim.RemediateVehicle(r.PathValue("id")))
}

// writeApplied reports whether a command changed state. Unknown ids and
// repeated commands are no-ops, not errors.
func writeApplied(w http.ResponseWriter, applied bool) {
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}
