package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/internal/browse"
	"github.com/Shivay00001/RemotePilot/internal/desktop"
	"github.com/Shivay00001/RemotePilot/internal/sandbox"
	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// Action dispatches one plan step to the matching driver: shell
// commands to the sandbox, GUI input to the desktop driver, page
// navigation to the browser. The browser is created on first use and
// shared for the daemon's lifetime; browserMu serializes access so
// concurrent tasks cannot interleave navigations.
type Action struct {
	desktop      desktop.Driver
	sandbox      sandbox.Runner
	contentLimit int
	typeInterval time.Duration
	log          *logrus.Logger

	browserMu  sync.Mutex
	browser    browse.Browser
	newBrowser func() browse.Browser
}

// NewAction wires the drivers. newBrowser is called lazily on the
// first browser step.
func NewAction(d desktop.Driver, s sandbox.Runner, newBrowser func() browse.Browser, contentLimit int, typeInterval time.Duration, log *logrus.Logger) *Action {
	return &Action{
		desktop:      d,
		sandbox:      s,
		newBrowser:   newBrowser,
		contentLimit: contentLimit,
		typeInterval: typeInterval,
		log:          log,
	}
}

// Execute runs one step. Failures are reported in the result rather
// than as an error so the lifecycle loop can let verification decide
// whether to pivot.
func (a *Action) Execute(ctx context.Context, step types.Step) types.ActionResult {
	switch s := step.(type) {
	case types.BrowseStep:
		return a.openPage(ctx, s.URL)
	case types.ClickBrowserStep:
		return a.clickSelector(ctx, s.Selector)
	case types.ClickStep:
		if err := a.desktop.Click(s.X, s.Y); err != nil {
			return errorResult(err)
		}
		return successResult(fmt.Sprintf("Clicked at %d, %d", s.X, s.Y))
	case types.TypeStep:
		if err := a.desktop.Type(ctx, s.Value, a.typeInterval); err != nil {
			return errorResult(err)
		}
		return successResult(fmt.Sprintf("Typed: %s", s.Value))
	case types.HotkeyStep:
		if err := a.desktop.Hotkey(strings.Split(s.Value, "+")); err != nil {
			return errorResult(err)
		}
		return successResult(fmt.Sprintf("Pressed: %s", s.Value))
	case types.WaitStep:
		select {
		case <-time.After(time.Duration(s.Seconds * float64(time.Second))):
		case <-ctx.Done():
			return errorResult(ctx.Err())
		}
		return successResult(fmt.Sprintf("Waited %ss", s.ValueString()))
	case types.CommandStep:
		return a.runCommand(ctx, s.Value)
	case types.InvalidStep:
		return types.ActionResult{Status: "error", Err: fmt.Sprintf("Invalid step: %s", s.Reason)}
	default:
		return types.ActionResult{Status: "error", Err: fmt.Sprintf("Unknown action: %s", step.Tag())}
	}
}

func (a *Action) openPage(ctx context.Context, url string) types.ActionResult {
	a.browserMu.Lock()
	defer a.browserMu.Unlock()
	if a.browser == nil {
		a.browser = a.newBrowser()
	}
	content, err := a.browser.Open(ctx, url)
	if err != nil {
		return errorResult(err)
	}
	return types.ActionResult{
		Status:  "success",
		Detail:  fmt.Sprintf("Navigated to %s", url),
		Content: truncate(content, a.contentLimit),
	}
}

func (a *Action) clickSelector(ctx context.Context, selector string) types.ActionResult {
	a.browserMu.Lock()
	defer a.browserMu.Unlock()
	if a.browser == nil {
		a.browser = a.newBrowser()
	}
	if err := a.browser.Click(ctx, selector); err != nil {
		return errorResult(err)
	}
	return successResult(fmt.Sprintf("Clicked browser element: %s", selector))
}

func (a *Action) runCommand(ctx context.Context, command string) types.ActionResult {
	res, err := a.sandbox.Run(ctx, command)
	if err != nil {
		return errorResult(err)
	}
	detail := fmt.Sprintf("Command executed: %s (exit %d)", command, res.ExitCode)
	if res.ExitCode != 0 {
		return types.ActionResult{
			Status: "error",
			Detail: detail,
			Err:    fmt.Sprintf("command exited with code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)),
		}
	}
	return successResult(detail)
}

func successResult(detail string) types.ActionResult {
	return types.ActionResult{Status: "success", Detail: detail}
}

func errorResult(err error) types.ActionResult {
	return types.ActionResult{Status: "error", Err: err.Error()}
}
