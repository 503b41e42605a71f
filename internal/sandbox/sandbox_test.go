package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivay00001/RemotePilot/pkg/logger"
)

func TestCuratedEnv_AllowlistOnly(t *testing.T) {
	t.Setenv("SANDBOX_LEAK_CHECK", "leaked")
	t.Setenv("HOME", "/tmp/sandbox-home")

	env := CuratedEnv()
	assert.Contains(t, env, "HOME=/tmp/sandbox-home")
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "SANDBOX_LEAK_CHECK="), "host variables outside the allowlist must not appear: %s", kv)
	}
}

func TestProcessSandbox_Run(t *testing.T) {
	s := NewProcessSandbox(nil, logger.CreateTestLogger())

	res, err := s.Run(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, res.Stderr)
}

func TestProcessSandbox_Run_NonZeroExitIsData(t *testing.T) {
	s := NewProcessSandbox(nil, logger.CreateTestLogger())

	res, err := s.Run(context.Background(), "echo oops >&2; exit 3")
	require.NoError(t, err, "a clean non-zero exit is not a runner error")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestProcessSandbox_Run_CuratedEnvironment(t *testing.T) {
	t.Setenv("SANDBOX_LEAK_CHECK", "leaked")
	s := NewProcessSandbox([]string{"ALLOWED=yes"}, logger.CreateTestLogger())

	res, err := s.Run(context.Background(), "echo \"$ALLOWED:$SANDBOX_LEAK_CHECK\"")
	require.NoError(t, err)
	assert.Equal(t, "yes:\n", res.Stdout, "children see only the curated environment")
}

func TestProcessSandbox_Run_ContextCancellation(t *testing.T) {
	s := NewProcessSandbox(nil, logger.CreateTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Run(ctx, "sleep 30")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second, "cancellation kills the child promptly")
}
