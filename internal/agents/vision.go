package agents

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/internal/desktop"
)

// Vision captures the screen and asks the vision model about it.
type Vision struct {
	llm    VisionModel
	screen desktop.Driver
	model  string
	log    *logrus.Logger
}

func NewVision(llm VisionModel, screen desktop.Driver, model string, log *logrus.Logger) *Vision {
	return &Vision{llm: llm, screen: screen, model: model, log: log}
}

// Analyze screenshots the display and sends instruction alongside the
// image. An empty instruction asks for a brief description.
func (v *Vision) Analyze(ctx context.Context, instruction string) (string, error) {
	img, err := v.screen.Screenshot()
	if err != nil {
		return "", fmt.Errorf("failed to capture screen: %w", err)
	}

	prompt := instruction
	if prompt == "" {
		prompt = "Describe this image briefly."
	}

	v.log.WithField("component", "vision").Debugf("analyzing screen with %s", v.model)
	desc, err := v.llm.Vision(ctx, v.model, prompt, base64.StdEncoding.EncodeToString(img))
	if err != nil {
		return "", fmt.Errorf("failed to analyze screen: %w", err)
	}
	return desc, nil
}
