// Package sandbox runs COMMAND steps as isolated child processes. Each
// invocation spawns its own child with a curated environment; children
// never inherit the daemon's environment.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// curatedVars are the host variables a child may inherit.
var curatedVars = []string{"PATH", "HOME", "LANG", "TMPDIR"}

// CuratedEnv builds the default child environment from the host
// allowlist. Everything else in the daemon's environment stays hidden.
func CuratedEnv() []string {
	env := make([]string, 0, len(curatedVars))
	for _, name := range curatedVars {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

// Result is one command invocation's outcome. A non-zero exit code is
// data, not an error; callers feed it through verification.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes one shell command to completion.
type Runner interface {
	Run(ctx context.Context, command string) (Result, error)
}

// ProcessSandbox runs commands through the system shell with a curated
// environment. Concurrent invocations are independent.
type ProcessSandbox struct {
	env []string
	dir string
	log *logrus.Logger
}

// NewProcessSandbox builds a sandbox passing env to every child. A nil
// env becomes the empty environment so host variables never leak.
func NewProcessSandbox(env []string, log *logrus.Logger) *ProcessSandbox {
	if env == nil {
		env = []string{}
	}
	return &ProcessSandbox{env: env, log: log}
}

// Run executes command via `sh -c` and captures both output streams.
// The context cancels the child; that surfaces as an error, while a
// clean non-zero exit surfaces in the Result.
func (s *ProcessSandbox) Run(ctx context.Context, command string) (Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = s.env
	cmd.Dir = s.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		// A context kill also surfaces as an ExitError ("signal:
		// killed"), so the context check must come first.
		if ctx.Err() != nil {
			return Result{ExitCode: -1}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			s.log.WithField("component", "sandbox").Debugf("command exited with code %d: %s", result.ExitCode, firstLine(stderr.String()))
			return result, nil
		}
		return Result{ExitCode: -1}, fmt.Errorf("failed to run command: %w", err)
	}

	return result, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
