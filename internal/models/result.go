// internal/models/result.go

package models

import "time"

// ExecutionResult is the outcome of one remote command, foreground or
// detached. It is constructed once per call and never mutated afterwards.
// PID is zero when the remote process identifier could not be determined;
// dispatch success and PID retrieval are tracked separately, so a missing
// PID shows up as a warning in Error on an otherwise successful result.
type ExecutionResult struct {
	Success        bool   `json:"success"`
	PID            int    `json:"pid,omitempty"`
	ExitCode       int    `json:"exit_code"`
	Output         string `json:"output"`
	Error          string `json:"error,omitempty"`
	Session        string `json:"session,omitempty"`
	ConnectionInfo string `json:"connection_info"`
}

// DispatchOptions selects how a detached command is launched.
type DispatchOptions struct {
	// Session names the tmux session to run the command in. When empty the
	// command is detached with nohup and its PID read from a shell sentinel.
	Session string
	// LogPath receives the command's combined output, opened in append mode.
	// Empty means the output is discarded.
	LogPath string
}

// Step is one ordered unit of an environment setup or teardown sequence.
type Step struct {
	Name     string
	Target   string
	Command  string
	Session  string
	LogPath  string
	Wait     time.Duration
	Critical bool
	// Foreground runs the command to completion instead of detaching it.
	Foreground bool
}

// StepResult records the outcome of one step.
type StepResult struct {
	Name    string `json:"name"`
	Target  string `json:"target"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	PID     int    `json:"pid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EnvironmentResult aggregates a setup or teardown run. OverallSuccess is
// true only if every non-skipped step succeeded.
type EnvironmentResult struct {
	OverallSuccess bool         `json:"overall_success"`
	Steps          []StepResult `json:"steps"`
}
