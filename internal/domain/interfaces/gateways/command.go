package gateways

import (
	"context"
	"time"
)

// Command is a single external program invocation
type Command struct {
	Name        string
	Args        []string
	Dir         string
	Env         map[string]string
	Timeout     time.Duration
	Description string
}

// CommandResult is the structured outcome of an external invocation
type CommandResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// CommandRunner executes external programs
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) *CommandResult
}
