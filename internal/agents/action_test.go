package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivay00001/RemotePilot/internal/browse"
	"github.com/Shivay00001/RemotePilot/internal/sandbox"
	"github.com/Shivay00001/RemotePilot/pkg/logger"
	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// fakeDesktop records GUI calls.
type fakeDesktop struct {
	clicks  []string
	typed   []string
	hotkeys [][]string
	err     error
}

func (f *fakeDesktop) Click(x, y int) error {
	f.clicks = append(f.clicks, fmt.Sprintf("%d,%d", x, y))
	return f.err
}

func (f *fakeDesktop) Type(ctx context.Context, text string, interval time.Duration) error {
	f.typed = append(f.typed, text)
	return f.err
}

func (f *fakeDesktop) Hotkey(keys []string) error {
	f.hotkeys = append(f.hotkeys, keys)
	return f.err
}

func (f *fakeDesktop) Screenshot() ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png-bytes"), nil
}

// fakeSandbox scripts shell results.
type fakeSandbox struct {
	result   sandbox.Result
	err      error
	commands []string
}

func (f *fakeSandbox) Run(ctx context.Context, command string) (sandbox.Result, error) {
	f.commands = append(f.commands, command)
	return f.result, f.err
}

// fakeBrowser scripts page content.
type fakeBrowser struct {
	content   string
	err       error
	opened    []string
	selectors []string
}

func (f *fakeBrowser) Open(ctx context.Context, url string) (string, error) {
	f.opened = append(f.opened, url)
	return f.content, f.err
}

func (f *fakeBrowser) Click(ctx context.Context, selector string) error {
	f.selectors = append(f.selectors, selector)
	return f.err
}

func newTestAction(d *fakeDesktop, s *fakeSandbox, b *fakeBrowser) *Action {
	return NewAction(d, s, func() browse.Browser { return b }, 100, time.Millisecond, logger.CreateTestLogger())
}

func TestAction_Execute_Command(t *testing.T) {
	sb := &fakeSandbox{result: sandbox.Result{ExitCode: 0, Stdout: "ok"}}
	a := newTestAction(&fakeDesktop{}, sb, &fakeBrowser{})

	res := a.Execute(context.Background(), types.CommandStep{Value: "echo ok"})
	require.True(t, res.OK())
	assert.Equal(t, "Command executed: echo ok (exit 0)", res.Detail)
	assert.Equal(t, []string{"echo ok"}, sb.commands)
}

func TestAction_Execute_CommandNonZeroExit(t *testing.T) {
	sb := &fakeSandbox{result: sandbox.Result{ExitCode: 2, Stderr: "no such file\n"}}
	a := newTestAction(&fakeDesktop{}, sb, &fakeBrowser{})

	res := a.Execute(context.Background(), types.CommandStep{Value: "cat missing"})
	assert.False(t, res.OK())
	assert.Equal(t, "command exited with code 2: no such file", res.Err)
	assert.Equal(t, "Command executed: cat missing (exit 2)", res.Detail)
}

func TestAction_Execute_DesktopSteps(t *testing.T) {
	d := &fakeDesktop{}
	a := newTestAction(d, &fakeSandbox{}, &fakeBrowser{})

	res := a.Execute(context.Background(), types.ClickStep{X: 10, Y: 20})
	require.True(t, res.OK())
	assert.Equal(t, "Clicked at 10, 20", res.Detail)

	res = a.Execute(context.Background(), types.TypeStep{Value: "hello"})
	require.True(t, res.OK())
	assert.Equal(t, "Typed: hello", res.Detail)

	res = a.Execute(context.Background(), types.HotkeyStep{Value: "ctrl+shift+t"})
	require.True(t, res.OK())
	assert.Equal(t, "Pressed: ctrl+shift+t", res.Detail)

	assert.Equal(t, []string{"10,20"}, d.clicks)
	assert.Equal(t, []string{"hello"}, d.typed)
	assert.Equal(t, [][]string{{"ctrl", "shift", "t"}}, d.hotkeys)
}

func TestAction_Execute_DesktopFailure(t *testing.T) {
	d := &fakeDesktop{err: errors.New("no display")}
	a := newTestAction(d, &fakeSandbox{}, &fakeBrowser{})

	res := a.Execute(context.Background(), types.ClickStep{X: 1, Y: 1})
	assert.False(t, res.OK())
	assert.Equal(t, "no display", res.Err)
}

func TestAction_Execute_Browse(t *testing.T) {
	b := &fakeBrowser{content: strings.Repeat("x", 500)}
	a := newTestAction(&fakeDesktop{}, &fakeSandbox{}, b)

	res := a.Execute(context.Background(), types.BrowseStep{URL: "https://example.com"})
	require.True(t, res.OK())
	assert.Equal(t, "Navigated to https://example.com", res.Detail)
	assert.Len(t, res.Content, 100, "page content is truncated to the limit")
	assert.Equal(t, []string{"https://example.com"}, b.opened)
}

func TestAction_Execute_ClickBrowser(t *testing.T) {
	b := &fakeBrowser{}
	a := newTestAction(&fakeDesktop{}, &fakeSandbox{}, b)

	res := a.Execute(context.Background(), types.ClickBrowserStep{Selector: "#submit"})
	require.True(t, res.OK())
	assert.Equal(t, "Clicked browser element: #submit", res.Detail)
	assert.Equal(t, []string{"#submit"}, b.selectors)
}

func TestAction_Execute_BrowserIsShared(t *testing.T) {
	created := 0
	b := &fakeBrowser{}
	a := NewAction(&fakeDesktop{}, &fakeSandbox{}, func() browse.Browser {
		created++
		return b
	}, 100, time.Millisecond, logger.CreateTestLogger())

	a.Execute(context.Background(), types.BrowseStep{URL: "https://one.example"})
	a.Execute(context.Background(), types.ClickBrowserStep{Selector: ".two"})
	assert.Equal(t, 1, created, "browser context is created once and reused")
}

func TestAction_Execute_Wait(t *testing.T) {
	a := newTestAction(&fakeDesktop{}, &fakeSandbox{}, &fakeBrowser{})

	start := time.Now()
	res := a.Execute(context.Background(), types.WaitStep{Seconds: 0.05})
	require.True(t, res.OK())
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, "Waited 0.05s", res.Detail)
}

func TestAction_Execute_WaitCancelled(t *testing.T) {
	a := newTestAction(&fakeDesktop{}, &fakeSandbox{}, &fakeBrowser{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := a.Execute(ctx, types.WaitStep{Seconds: 30})
	assert.False(t, res.OK())
	assert.Equal(t, context.Canceled.Error(), res.Err)
}

func TestAction_Execute_InvalidStep(t *testing.T) {
	a := newTestAction(&fakeDesktop{}, &fakeSandbox{}, &fakeBrowser{})

	res := a.Execute(context.Background(), types.InvalidStep{Reason: "unknown action: TELEPORT"})
	assert.False(t, res.OK())
	assert.Equal(t, "Invalid step: unknown action: TELEPORT", res.Err)
}
