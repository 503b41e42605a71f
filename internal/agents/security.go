package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// denylist holds the stage-1 patterns. Matching any of them against a
// step value or the concatenated plan blocks execution outright.
var denylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rm\s+-rf`),
	regexp.MustCompile(`(?i)del\s+/s`),
	regexp.MustCompile(`(?i)rd\s+/s`),
	regexp.MustCompile(`(?i)format\s+`),
	regexp.MustCompile(`(?i)mkfs`),
	regexp.MustCompile(`(?i)sudo\s+`),
	regexp.MustCompile(`(?i)dd\s+if=`),
	regexp.MustCompile(`(?i):\(\)\{ :\|:& \};:`),
}

// Security screens plans before execution: a regex denylist pass over
// every step, then an optional model-based intent check that only runs
// when the plan contains a shell command.
type Security struct {
	llm     Completer
	model   string
	timeout time.Duration
	log     *logrus.Logger
}

// NewSecurity builds the screener. llm may be nil to disable the
// stage-2 intent check.
func NewSecurity(llm Completer, model string, timeout time.Duration, log *logrus.Logger) *Security {
	return &Security{llm: llm, model: model, timeout: timeout, log: log}
}

// Screen applies both stages and returns the verdict. It never returns
// an error: stage 1 is pure, and stage-2 failures fall back to the
// stage-1 verdict.
func (s *Security) Screen(ctx context.Context, plan types.Plan) types.SecurityVerdict {
	for _, step := range plan {
		val := step.ValueString()
		for _, pattern := range denylist {
			if pattern.MatchString(val) {
				return types.SecurityVerdict{
					Status: types.SecurityBlocked,
					Reason: fmt.Sprintf("Dangerous step: %s", val),
				}
			}
		}
	}

	joined := strings.Join(plan.Values(), " ")
	for _, pattern := range denylist {
		if pattern.MatchString(joined) {
			return types.SecurityVerdict{
				Status: types.SecurityBlocked,
				Reason: fmt.Sprintf("Dangerous command pattern: %s", pattern.String()),
			}
		}
	}

	if plan.HasCommand() && s.llm != nil {
		return s.checkIntent(ctx, plan)
	}
	return types.SecurityVerdict{Status: types.SecuritySafe}
}

// checkIntent asks the model to classify the plan. A timeout or
// transport error is treated as SAFE since stage 1 already passed.
func (s *Security) checkIntent(ctx context.Context, plan types.Plan) types.SecurityVerdict {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, err := json.Marshal(plan)
	if err != nil {
		return types.SecurityVerdict{Status: types.SecuritySafe}
	}
	prompt := fmt.Sprintf("Analyze this automation command for malicious intent or destructive potential: %s. Return ONLY 'SAFE' or 'MALICIOUS' and a brief reason.", content)

	verdict, err := s.llm.Complete(ctx, s.model, prompt, false)
	if err != nil {
		s.log.WithField("component", "security").Debugf("intent check skipped: %v", err)
		return types.SecurityVerdict{Status: types.SecuritySafe}
	}
	if strings.Contains(strings.ToUpper(verdict), "MALICIOUS") {
		return types.SecurityVerdict{
			Status: types.SecurityBlocked,
			Reason: "LLM flagged potential danger.",
		}
	}
	return types.SecurityVerdict{Status: types.SecuritySafe}
}
