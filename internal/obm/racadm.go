// Package obm talks to out-of-band management controllers.
package obm

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sigreer/raidgod/internal/shell"
)

// emptyValue is what racadm prints for a field with no value
const emptyValue = "::"

// SysInfo is the parsed output of racadm getsysinfo: section name to
// key/value pairs. Empty values are nil.
type SysInfo map[string]map[string]*string

// Get returns a value, or "" when the section, key or value is missing
func (s SysInfo) Get(section, key string) string {
	if v := s[section][key]; v != nil {
		return *v
	}
	return ""
}

// RACError reports a racadm failure
type RACError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *RACError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("racadm %s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("error running racadm command: %s, code %d", e.Command, e.ExitCode)
}

func (e *RACError) Unwrap() error { return e.Err }

// SimpleRAC runs racadm locally
type SimpleRAC struct {
	path   string
	runner shell.Runner
}

// NewSimpleRAC locates the racadm binary
func NewSimpleRAC(binary string, runner shell.Runner) (*SimpleRAC, error) {
	if binary == "" {
		binary = "racadm"
	}
	path, err := runner.LookPath(binary)
	if err != nil {
		return nil, &RACError{Command: "lookup " + binary, Err: err}
	}
	return &SimpleRAC{path: path, runner: runner}, nil
}

// Run executes a racadm command and returns stdout
func (r *SimpleRAC) Run(ctx context.Context, command string) (string, error) {
	log.WithFields(log.Fields{"binary": r.path, "command": command}).Debug("running racadm")

	res, err := r.runner.Run(ctx, r.path, strings.Fields(command)...)
	if err != nil {
		return "", &RACError{Command: command, Err: err}
	}
	if res.ExitCode != 0 {
		return "", &RACError{Command: command, ExitCode: res.ExitCode}
	}
	return res.Stdout, nil
}

// GetSysInfo runs racadm getsysinfo and parses it
func (r *SimpleRAC) GetSysInfo(ctx context.Context) (SysInfo, error) {
	out, err := r.Run(ctx, "getsysinfo")
	if err != nil {
		return nil, err
	}
	return ParseSysInfo(out), nil
}

// ParseSysInfo parses getsysinfo output. Section headers are lines ending in
// a colon without an equals sign; lines before the first header are ignored.
func ParseSysInfo(out string) SysInfo {
	info := SysInfo{}
	var section string

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.Contains(line, "=") && strings.HasSuffix(trimmed, ":") {
			section = strings.TrimSuffix(trimmed, ":")
			info[section] = map[string]*string{}
			continue
		}
		if section == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if value == emptyValue {
			info[section][key] = nil
			continue
		}
		info[section][key] = &value
	}
	return info
}
