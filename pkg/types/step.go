package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ActionTag identifies one atomic action kind in the catalog.
type ActionTag string

const (
	ActionCommand      ActionTag = "COMMAND"
	ActionType         ActionTag = "TYPE"
	ActionHotkey       ActionTag = "HOTKEY"
	ActionClick        ActionTag = "CLICK"
	ActionWait         ActionTag = "WAIT"
	ActionBrowse       ActionTag = "BROWSE"
	ActionClickBrowser ActionTag = "CLICK_BROWSER"
)

// Step is one atomic action in a plan. The set of implementations is
// closed; the action dispatcher switches exhaustively over it. Planner
// output that does not parse to a known shape becomes an InvalidStep,
// which fails at execution time and triggers a re-plan rather than
// failing the whole task at plan time.
type Step interface {
	Tag() ActionTag
	// ValueString is the step's payload as screened by the security
	// denylist and shown in snapshots.
	ValueString() string
	isStep()
}

// CommandStep runs a shell command in the sandbox.
type CommandStep struct {
	Value string
}

// TypeStep types text with a per-character interval.
type TypeStep struct {
	Value string
}

// HotkeyStep presses a "+"-separated key combination.
type HotkeyStep struct {
	Value string
}

// ClickStep move-and-clicks at screen coordinates.
type ClickStep struct {
	X int
	Y int
}

// WaitStep sleeps for a number of seconds.
type WaitStep struct {
	Seconds float64
}

// BrowseStep opens a URL in the shared browser context.
type BrowseStep struct {
	URL string
}

// ClickBrowserStep clicks a CSS selector in the shared browser context.
type ClickBrowserStep struct {
	Selector string
}

// InvalidStep preserves a planner step that failed to parse. Executing
// it yields an action error, so the verification path counts it as a
// failed attempt.
type InvalidStep struct {
	Raw    json.RawMessage
	Reason string
}

func (CommandStep) Tag() ActionTag      { return ActionCommand }
func (TypeStep) Tag() ActionTag         { return ActionType }
func (HotkeyStep) Tag() ActionTag       { return ActionHotkey }
func (ClickStep) Tag() ActionTag        { return ActionClick }
func (WaitStep) Tag() ActionTag         { return ActionWait }
func (BrowseStep) Tag() ActionTag       { return ActionBrowse }
func (ClickBrowserStep) Tag() ActionTag { return ActionClickBrowser }
func (s InvalidStep) Tag() ActionTag    { return ActionTag("INVALID") }

func (s CommandStep) ValueString() string      { return s.Value }
func (s TypeStep) ValueString() string         { return s.Value }
func (s HotkeyStep) ValueString() string       { return s.Value }
func (s ClickStep) ValueString() string        { return fmt.Sprintf("%d %d", s.X, s.Y) }
func (s WaitStep) ValueString() string         { return strconv.FormatFloat(s.Seconds, 'f', -1, 64) }
func (s BrowseStep) ValueString() string       { return s.URL }
func (s ClickBrowserStep) ValueString() string { return s.Selector }
func (s InvalidStep) ValueString() string      { return string(s.Raw) }

func (CommandStep) isStep()      {}
func (TypeStep) isStep()         {}
func (HotkeyStep) isStep()       {}
func (ClickStep) isStep()        {}
func (WaitStep) isStep()         {}
func (BrowseStep) isStep()       {}
func (ClickBrowserStep) isStep() {}
func (InvalidStep) isStep()      {}

func (s CommandStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"action": ActionCommand, "value": s.Value})
}

func (s TypeStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"action": ActionType, "value": s.Value})
}

func (s HotkeyStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"action": ActionHotkey, "value": s.Value})
}

func (s ClickStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"action": ActionClick, "x": s.X, "y": s.Y})
}

func (s WaitStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"action": ActionWait, "value": s.Seconds})
}

func (s BrowseStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"action": ActionBrowse, "url": s.URL})
}

func (s ClickBrowserStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"action": ActionClickBrowser, "selector": s.Selector})
}

func (s InvalidStep) MarshalJSON() ([]byte, error) {
	if len(s.Raw) == 0 {
		return []byte("null"), nil
	}
	return s.Raw, nil
}

// Plan is an ordered sequence of steps, replaced wholesale on re-plan.
type Plan []Step

// HasCommand reports whether any step runs a shell command. The
// security stage-2 intent check only fires when one is present.
func (p Plan) HasCommand() bool {
	for _, s := range p {
		if _, ok := s.(CommandStep); ok {
			return true
		}
	}
	return false
}

// Values returns every step payload, in order.
func (p Plan) Values() []string {
	out := make([]string, 0, len(p))
	for _, s := range p {
		out = append(out, s.ValueString())
	}
	return out
}

// UnmarshalJSON rebuilds a plan from its stored JSON array. Individual
// steps go through ParseStep, so unknown shapes survive as
// InvalidStep rather than aborting the decode.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var items []interface{}
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	plan := make(Plan, 0, len(items))
	for _, item := range items {
		plan = append(plan, ParseStep(item))
	}
	*p = plan
	return nil
}

// ParsePlan decodes a planner response into a plan. Responses shaped
// {"plan": [...]} are unwrapped; a single mapping is wrapped as a
// one-element plan. Only top-level invalid JSON is an error; malformed
// individual steps become InvalidStep values.
func ParsePlan(data []byte) (Plan, error) {
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("invalid JSON: %s", string(data))
	}

	if m, ok := decoded.(map[string]interface{}); ok {
		if inner, present := m["plan"]; present {
			decoded = inner
		}
	}

	items, ok := decoded.([]interface{})
	if !ok {
		items = []interface{}{decoded}
	}

	plan := make(Plan, 0, len(items))
	for _, item := range items {
		plan = append(plan, ParseStep(item))
	}
	return plan, nil
}

// ParseStep converts one decoded JSON value into a step. It never
// fails hard: anything outside the known shapes becomes an
// InvalidStep carrying the raw payload and a reason.
func ParseStep(item interface{}) Step {
	raw, _ := json.Marshal(item)

	m, ok := item.(map[string]interface{})
	if !ok {
		return InvalidStep{Raw: raw, Reason: "step is not a mapping"}
	}

	tag := ActionTag(strings.ToUpper(strings.TrimSpace(stringField(m, "action"))))
	value := stringField(m, "value")

	switch tag {
	case ActionCommand:
		return CommandStep{Value: value}
	case ActionType:
		return TypeStep{Value: value}
	case ActionHotkey:
		return HotkeyStep{Value: value}
	case ActionClick:
		x, xok := intField(m, "x")
		y, yok := intField(m, "y")
		if !xok || !yok {
			coords := strings.Fields(value)
			if len(coords) != 2 {
				return InvalidStep{Raw: raw, Reason: "missing coordinates"}
			}
			var err error
			if x, err = strconv.Atoi(coords[0]); err != nil {
				return InvalidStep{Raw: raw, Reason: "missing coordinates"}
			}
			if y, err = strconv.Atoi(coords[1]); err != nil {
				return InvalidStep{Raw: raw, Reason: "missing coordinates"}
			}
		}
		return ClickStep{X: x, Y: y}
	case ActionWait:
		secs, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return InvalidStep{Raw: raw, Reason: "wait value is not a number"}
		}
		return WaitStep{Seconds: secs}
	case ActionBrowse:
		url := stringField(m, "url")
		if url == "" {
			url = value
		}
		if url == "" {
			return InvalidStep{Raw: raw, Reason: "missing url"}
		}
		return BrowseStep{URL: url}
	case ActionClickBrowser:
		selector := stringField(m, "selector")
		if selector == "" {
			selector = value
		}
		if selector == "" {
			return InvalidStep{Raw: raw, Reason: "missing selector"}
		}
		return ClickBrowserStep{Selector: selector}
	default:
		return InvalidStep{Raw: raw, Reason: fmt.Sprintf("unknown action: %s", tag)}
	}
}

// stringField reads a field as a string; numbers are formatted so that
// model output like {"action":"WAIT","value":2} still parses.
func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func intField(m map[string]interface{}, key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
