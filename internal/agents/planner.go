package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkoukk/tiktoken-go"
	"github.com/sirupsen/logrus"

	"github.com/Shivay00001/RemotePilot/internal/memory"
	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// fewShotTokenBudget caps the retrieved-history block of the planning
// prompt so long memories cannot crowd out the goal and catalog.
const fewShotTokenBudget = 1024

// Retriever supplies similar past (goal, plan) pairs for few-shot
// context. The semantic memory store satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, goal string, topK int) ([]memory.Entry, error)
}

// Planner converts a natural-language goal into an ordered plan of
// atomic actions, and produces replacement plans after a failed step.
type Planner struct {
	llm        Completer
	memory     Retriever
	model      string
	topK       int
	stepSchema string
	log        *logrus.Logger
}

// NewPlanner builds a planner. mem may be nil when semantic memory is
// disabled.
func NewPlanner(llm Completer, mem Retriever, model string, topK int, log *logrus.Logger) *Planner {
	return &Planner{
		llm:        llm,
		memory:     mem,
		model:      model,
		topK:       topK,
		stepSchema: reflectStepSchema(),
		log:        log,
	}
}

// Plan asks the model for an initial plan, seeding the prompt with
// retrieved similar successes when the memory store has any.
func (p *Planner) Plan(ctx context.Context, goal string) (types.Plan, error) {
	prompt := initialPrompt(goal, p.historyContext(ctx, goal), p.stepSchema)
	raw, err := p.llm.Complete(ctx, p.model, prompt, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}
	return types.ParsePlan([]byte(raw))
}

// RePlan asks the model for a fresh plan after a verification failure,
// giving it the failed step, the verifier's detail and the current
// screen description so it can pivot to a different approach.
func (p *Planner) RePlan(ctx context.Context, goal string, failed types.Step, errDetail, visionContext string) (types.Plan, error) {
	raw, err := p.llm.Complete(ctx, p.model, replanPrompt(goal, failed, errDetail, visionContext), true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate replacement plan: %w", err)
	}
	return types.ParsePlan([]byte(raw))
}

// historyContext renders retrieved memories as a few-shot block,
// dropping entries once the token budget is spent. Retrieval failures
// are non-fatal: planning proceeds without history.
func (p *Planner) historyContext(ctx context.Context, goal string) string {
	if p.memory == nil {
		return ""
	}
	entries, err := p.memory.Retrieve(ctx, goal, p.topK)
	if err != nil {
		p.log.WithField("component", "planner").Debugf("memory retrieval skipped: %v", err)
		return ""
	}
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nSimilar successful plans from history:\n")
	for _, entry := range entries {
		planJSON, err := json.Marshal(entry.Plan)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("- Goal: %s\n  Plan: %s\n", entry.Goal, planJSON)
		if countTokens(b.String())+countTokens(line) > fewShotTokenBudget {
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func initialPrompt(goal, historyContext, stepSchema string) string {
	var b strings.Builder
	b.WriteString("You are an expert system automation planner.\n")
	b.WriteString("Your job is to convert the User's Goal into a strict JSON LIST of atomic actions.\n")
	b.WriteString(historyContext)
	b.WriteString("\nAvailable Actions:\n")
	b.WriteString("- COMMAND: Run a shell command\n")
	b.WriteString("- TYPE: Type text\n")
	b.WriteString("- HOTKEY: Press key combo\n")
	b.WriteString("- CLICK: Click at coordinates\n")
	b.WriteString("- WAIT: Wait for seconds\n")
	b.WriteString("- BROWSE: Open a website URL\n")
	b.WriteString("- CLICK_BROWSER: Click a CSS selector\n")
	if stepSchema != "" {
		b.WriteString("\nEach list element must match this JSON schema:\n")
		b.WriteString(stepSchema)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nUser Goal: %s\n", goal)
	b.WriteString("\nOutput a JSON LIST ONLY.")
	return b.String()
}

func replanPrompt(goal string, failed types.Step, errDetail, visionContext string) string {
	stepJSON, _ := json.Marshal(failed)
	if visionContext == "" {
		visionContext = "Unknown UI state"
	}
	return fmt.Sprintf(`RE-PLANNING REQUIRED.
Original Goal: %s
The step %s FAILED with error: %s.
Current Screen State: %s

Generate a NEW plan to achieve the original goal starting from this state.
Be creative. If one method failed, try a different approach (e.g., instead of a click, use a hotkey).

Output a JSON LIST ONLY.`, goal, stepJSON, errDetail, visionContext)
}

// wireStep documents the JSON shape of one plan element for the model.
type wireStep struct {
	Action   string `json:"action" jsonschema:"required,enum=COMMAND,enum=TYPE,enum=HOTKEY,enum=CLICK,enum=WAIT,enum=BROWSE,enum=CLICK_BROWSER"`
	Value    string `json:"value,omitempty"`
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	X        int    `json:"x,omitempty"`
	Y        int    `json:"y,omitempty"`
}

func reflectStepSchema() string {
	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	r.DoNotReference = true
	r.RequiredFromJSONSchemaTags = true
	data, err := json.Marshal(r.Reflect(&wireStep{}))
	if err != nil {
		return ""
	}
	return string(data)
}

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// countTokens uses the cl100k_base encoding when its tables are
// available and falls back to a bytes/4 estimate when they are not
// (first use downloads them, which can fail offline).
func countTokens(text string) int {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return len(text) / 4
	}
	return len(encoder.Encode(text, nil, nil))
}
