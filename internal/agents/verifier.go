package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// ScreenAnalyzer is the slice of the vision collaborator the verifier
// needs.
type ScreenAnalyzer interface {
	Analyze(ctx context.Context, instruction string) (string, error)
}

// Verifier decides whether an expectation holds on-screen by asking
// the vision model and substring-matching its answer.
type Verifier struct {
	vision ScreenAnalyzer
	log    *logrus.Logger
}

func NewVerifier(vision ScreenAnalyzer, log *logrus.Logger) *Verifier {
	return &Verifier{vision: vision, log: log}
}

// Verify captures the screen and asks whether expectation holds. The
// model's answer counts as verified when it contains YES or TRUE,
// case-insensitive.
func (v *Verifier) Verify(ctx context.Context, expectation string) (types.VerifyResult, error) {
	v.log.WithField("component", "verifier").Debugf("verifying visually: %s", expectation)

	instruction := fmt.Sprintf("Verify: %s. Return JSON with 'match' (bool) and 'reason' (string).", expectation)
	desc, err := v.vision.Analyze(ctx, instruction)
	if err != nil {
		return types.VerifyResult{}, fmt.Errorf("vision verification failed: %w", err)
	}

	upper := strings.ToUpper(desc)
	return types.VerifyResult{
		Verified: strings.Contains(upper, "YES") || strings.Contains(upper, "TRUE"),
		Details:  desc,
	}, nil
}
