package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// Research condenses the text gathered by BROWSE steps into a single
// summary at the end of a task.
type Research struct {
	llm          Completer
	model        string
	contentLimit int
	log          *logrus.Logger
}

func NewResearch(llm Completer, model string, contentLimit int, log *logrus.Logger) *Research {
	return &Research{llm: llm, model: model, contentLimit: contentLimit, log: log}
}

// Synthesize asks the model for a JSON summary of the collected pages.
func (r *Research) Synthesize(ctx context.Context, topic string, pages []string) (types.ResearchSummary, error) {
	prompt := fmt.Sprintf(`You are a Research Analyst.
Topic: %s

Below is content from multiple web pages.
Synthesize a comprehensive summary of the findings.
Be concise but thorough.

Content:
%s

Output JSON ONLY:
{
  "summary": "...",
  "key_findings": ["...", "..."],
  "sources_analyzed": %d
}`, topic, truncate(strings.Join(pages, " "), r.contentLimit), len(pages))

	raw, err := r.llm.Complete(ctx, r.model, prompt, true)
	if err != nil {
		return types.ResearchSummary{}, fmt.Errorf("failed to synthesize research: %w", err)
	}

	var summary types.ResearchSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return types.ResearchSummary{}, fmt.Errorf("failed to parse research summary: %w", err)
	}
	return summary, nil
}
