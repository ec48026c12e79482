package sim

import (
	"encoding/json"
	"os"

	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

// FileWriter writes vehicle telemetry, threats, network state and commands
// to JSONL files.
type FileWriter struct {
	files     []*os.File
	teleEnc   *json.Encoder
	threatEnc *json.Encoder
	stateEnc  *json.Encoder
	cmdEnc    *json.Encoder
}

// FilePaths names the JSONL files a FileWriter produces. Empty paths other
// than Telemetry disable that log.
type FilePaths struct {
	Telemetry string
	Threats   string
	State     string
	Commands  string
}

// NewFileWriter creates a FileWriter.
func NewFileWriter(paths FilePaths) (*FileWriter, error) {
	fw := &FileWriter{}
	open := func(path string) (*json.Encoder, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		fw.files = append(fw.files, f)
		return json.NewEncoder(f), nil
	}
	var err error
	if fw.teleEnc, err = open(paths.Telemetry); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.threatEnc, err = open(paths.Threats); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.stateEnc, err = open(paths.State); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.cmdEnc, err = open(paths.Commands); err != nil {
		fw.Close()
		return nil, err
	}
	return fw, nil
}

// Write logs a single telemetry row.
func (f *FileWriter) Write(row telemetry.TelemetryRow) error {
	if f.teleEnc == nil {
		return nil
	}
	return f.teleEnc.Encode(row)
}

// WriteBatch logs multiple telemetry rows.
func (f *FileWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteThreat logs a single threat, if enabled.
func (f *FileWriter) WriteThreat(t threat.Threat) error {
	if f.threatEnc == nil {
		return nil
	}
	return f.threatEnc.Encode(t)
}

// WriteState logs a network state row, if enabled.
func (f *FileWriter) WriteState(row telemetry.NetworkStateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// WriteCommand logs a command event, if enabled.
func (f *FileWriter) WriteCommand(ev telemetry.CommandEventRow) error {
	if f.cmdEnc == nil {
		return nil
	}
	return f.cmdEnc.Encode(ev)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range f.files {
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	f.files = nil
	return err
}
