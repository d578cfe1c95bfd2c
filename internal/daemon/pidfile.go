// Package daemon tracks the background API server process. The serve
// start/stop/status commands use a PID file under the state directory to
// find and signal a detached `corates serve`.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PIDFile records the process id of the detached server.
type PIDFile struct {
	Path string
}

// NewPIDFile returns a PIDFile at the given path. Nothing is written
// until Write or WritePID is called.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process's PID.
func (p *PIDFile) Write() error {
	return p.WritePID(os.Getpid())
}

// WritePID records the given PID.
func (p *PIDFile) WritePID(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read returns the recorded PID.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// Remove deletes the PID file.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}
