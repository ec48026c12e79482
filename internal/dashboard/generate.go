package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Tables names the GreptimeDB tables the dashboards query.
type Tables struct {
	Telemetry string
	Threats   string
	State     string
}

// DefaultTables returns the table names the simulator writes to.
func DefaultTables() Tables {
	state := os.Getenv("GREPTIMEDB_STATE_TABLE")
	if state == "" {
		state = "v2x_network_state"
	}
	return Tables{
		Telemetry: telemetry.TelemetryTableName,
		Threats:   threat.ThreatTableName,
		State:     state,
	}
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// Templates read the datasource uid from the environment through the env func.
func Render(outDir string, tables Tables) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, tables); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
