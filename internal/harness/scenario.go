package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meimodev/activid-web-sub001/internal/invitation"
)

// DefaultInvitation is used when a scenario names no invitation.
const DefaultInvitation = "wed_123"

// Action URIs understood by the harness.
const (
	ActionSubmit          = "Wish.submit"
	ActionSubmitAnonymous = "Wish.submitAnonymous"
	ActionFind            = "Wish.find"
	ActionList            = "Wish.list"
	ActionNameKey         = "Guest.nameKey"
	ActionPick            = "Photos.pick"
)

var knownActions = map[string]bool{
	ActionSubmit:          true,
	ActionSubmitAnonymous: true,
	ActionFind:            true,
	ActionList:            true,
	ActionNameKey:         true,
	ActionPick:            true,
}

// Scenario defines a protocol test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Invitation is the invitation slug the flow runs against.
	Invitation string `yaml:"invitation,omitempty"`

	// Setup contains actions run before the flow. They are traced but have
	// no expect clauses.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow contains the main test flow.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and store contents.
	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep represents a single action invocation.
type ActionStep struct {
	Action string                 `yaml:"action"`
	Args   map[string]interface{} `yaml:"args"`
}

// FlowStep represents a step in the main test flow.
type FlowStep struct {
	// Invoke is the action URI to invoke.
	Invoke string `yaml:"invoke"`

	// Args contains the action arguments.
	Args map[string]interface{} `yaml:"args"`

	// Concurrent runs the step N times in parallel. Only Wish.submit
	// supports it.
	Concurrent int `yaml:"concurrent,omitempty"`

	// Expect specifies the expected completion. If nil, the step is only
	// traced.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected completion behavior.
type ExpectClause struct {
	// Case is the expected output case: created, already_posted, found,
	// not_found, ok, burst, or an error code such as EMPTY_MESSAGE.
	Case string `yaml:"case"`

	// Result contains expected result field values (subset match).
	Result map[string]interface{} `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": action appears in trace with args
	// - "trace_order": actions appear in order
	// - "trace_count": action appears exactly N times (optionally with Case)
	// - "final_state": the guest's stored wish has the expected fields
	// - "record_count": the invitation has exactly N stored wishes
	Type string `yaml:"type"`

	// Action is the action URI (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected action arguments (trace_contains, subset match).
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Case restricts trace_count to completions with this output case.
	Case string `yaml:"case,omitempty"`

	// Where selects the record for final_state. Supported keys: guest, id.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state, subset match).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number (trace_count, record_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRecordCount   = "record_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML and applies defaults.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Invitation == "" {
		scenario.Invitation = DefaultInvitation
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if !invitation.ValidSlug(s.Invitation) {
		return fmt.Errorf("invitation %q is not a valid slug", s.Invitation)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if !knownActions[step.Action] {
			return fmt.Errorf("setup[%d]: unknown action %q", i, step.Action)
		}
		if step.Args == nil {
			return fmt.Errorf("setup[%d]: args is required (use empty map if no args)", i)
		}
	}

	for i, step := range s.Flow {
		if !knownActions[step.Invoke] {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Invoke)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required (use empty map if no args)", i)
		}
		if step.Concurrent < 0 {
			return fmt.Errorf("flow[%d]: concurrent must be non-negative", i)
		}
		if step.Concurrent > 1 && step.Invoke != ActionSubmit {
			return fmt.Errorf("flow[%d]: concurrent is only supported for %s", i, ActionSubmit)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for final_state", index)
		}
		for k := range a.Where {
			if k != "guest" && k != "id" {
				return fmt.Errorf("assertions[%d]: unsupported where key %q (want guest or id)", index, k)
			}
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
