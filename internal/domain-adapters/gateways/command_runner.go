// Package gateways implements the domain gateway interfaces against the
// network, the filesystem and external packaging tools.
package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ochairo/reposync/internal/domain/entities"
	"github.com/ochairo/reposync/internal/domain/interfaces"
	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
)

// ExecRunner runs external programs directly (no shell) and reports structured results
type ExecRunner struct {
	defaultTimeout time.Duration
	dryRun         bool
	logger         interfaces.Logger
}

// ExecRunnerConfig holds configuration for the runner
type ExecRunnerConfig struct {
	DefaultTimeout time.Duration
	// DryRun logs each command instead of executing it
	DryRun bool
}

// NewExecRunner creates a new command runner
func NewExecRunner(config ExecRunnerConfig, logger interfaces.Logger) *ExecRunner {
	timeout := config.DefaultTimeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &ExecRunner{
		defaultTimeout: timeout,
		dryRun:         config.DryRun,
		logger:         logger,
	}
}

// Run executes cmd and captures its exit status and output
func (r *ExecRunner) Run(ctx context.Context, cmd gateways.Command) *gateways.CommandResult {
	startTime := time.Now()
	result := &gateways.CommandResult{}

	line := commandLine(cmd)
	if r.dryRun {
		r.logger.Info("dry run, not executing", interfaces.F("command", line))
		result.Success = true
		return result
	}

	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: program and arguments come from configuration, not from feed data
	c := exec.CommandContext(execCtx, cmd.Name, cmd.Args...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		env := os.Environ()
		for key, value := range cmd.Env {
			env = append(env, fmt.Sprintf("%s=%s", key, value))
		}
		c.Env = env
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	r.logger.Debug("executing", interfaces.F("command", line), interfaces.F("step", cmd.Description))

	err := c.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			result.Error = fmt.Errorf("%s timed out after %v", cmd.Name, timeout)
			result.ExitCode = -1
		default:
			result.ExitCode = -1
		}
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}

// runTool executes cmd and converts an unsuccessful result into an ExternalToolFailure
func runTool(ctx context.Context, runner gateways.CommandRunner, cmd gateways.Command) error {
	result := runner.Run(ctx, cmd)
	if result.Success {
		return nil
	}
	return &entities.ExternalToolFailure{
		Tool:     cmd.Name,
		Args:     cmd.Args,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
		Err:      result.Error,
	}
}

func commandLine(cmd gateways.Command) string {
	return strings.TrimSpace(cmd.Name + " " + strings.Join(cmd.Args, " "))
}
