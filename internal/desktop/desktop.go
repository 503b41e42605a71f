// Package desktop abstracts screen capture and input injection. The
// daemon core only depends on the Driver interface; platform bindings
// are injected at the composition root.
package desktop

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoDisplay is returned by drivers that cannot capture a screen.
var ErrNoDisplay = errors.New("no display available")

// Driver performs native GUI actions on the host.
type Driver interface {
	// Click move-and-clicks at absolute screen coordinates.
	Click(x, y int) error
	// Type writes text with a fixed per-character interval.
	Type(ctx context.Context, text string, interval time.Duration) error
	// Hotkey presses the given keys as one combination.
	Hotkey(keys []string) error
	// Screenshot captures the screen as PNG bytes.
	Screenshot() ([]byte, error)
}

// Headless is the default driver for hosts without a display. Input
// actions are logged and acknowledged; capture reports ErrNoDisplay,
// which the verifier treats as a failed verification.
type Headless struct {
	log *logrus.Logger
}

func NewHeadless(log *logrus.Logger) *Headless {
	return &Headless{log: log}
}

func (h *Headless) Click(x, y int) error {
	h.log.WithField("component", "desktop").Debugf("headless click at %d, %d", x, y)
	return nil
}

func (h *Headless) Type(ctx context.Context, text string, interval time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.log.WithField("component", "desktop").Debugf("headless type: %s", text)
	return nil
}

func (h *Headless) Hotkey(keys []string) error {
	h.log.WithField("component", "desktop").Debugf("headless hotkey: %s", strings.Join(keys, "+"))
	return nil
}

func (h *Headless) Screenshot() ([]byte, error) {
	return nil, ErrNoDisplay
}
