package harness

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/meimodev/activid-web-sub001/internal/wish"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventCompletion {
				fmt.Fprintf(&buf, "  [%d]   -> %s %v\n", i+1, event.OutputCase, event.Result)
				continue
			}
			fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.ActionURI, event.Args)
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventInvocation && event.ActionURI == assertion.Action {
			if matchArgs(event.Args, assertion.Args) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected action, 1-indexed.
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		for _, expectedAction := range assertion.Actions {
			if event.ActionURI == expectedAction && positions[expectedAction] == 0 {
				positions[expectedAction] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action appears exactly the specified number
// of times. With a case, only completions with that output case are counted.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.ActionURI != assertion.Action {
			continue
		}
		if assertion.Case == "" && event.Type == EventInvocation {
			count++
		}
		if assertion.Case != "" && event.Type == EventCompletion && event.OutputCase == assertion.Case {
			count++
		}
	}

	if count != assertion.Count {
		what := assertion.Action
		if assertion.Case != "" {
			what = fmt.Sprintf("%s -> %s", assertion.Action, assertion.Case)
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState looks up one stored wish and checks its fields using
// subset semantics.
func assertFinalState(actx *AssertionContext, assertion Assertion) error {
	var (
		w   *wish.Wish
		err error
	)
	if name, ok := assertion.Where["guest"]; ok {
		s, _ := name.(string)
		w, err = actx.Service.Find(actx.Ctx, actx.Invitation, s)
	} else {
		id, _ := assertion.Where["id"].(string)
		w, err = actx.Repo.Get(actx.Ctx, id)
		if errors.Is(err, wish.ErrNotFound) {
			w, err = nil, nil
		}
	}
	if err != nil {
		return fmt.Errorf("final_state %s: %w", formatWhere(assertion.Where), err)
	}

	if w == nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("wish where %s", formatWhere(assertion.Where)),
			Actual:   "no wish stored",
		}
	}

	actual := wishMap(w)
	for _, key := range sortedKeys(assertion.Expect) {
		if !valuesEqual(actual[key], assertion.Expect[key]) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s = %v where %s", key, assertion.Expect[key], formatWhere(assertion.Where)),
				Actual:   fmt.Sprintf("%s = %v", key, actual[key]),
			}
		}
	}
	return nil
}

// assertRecordCount checks how many wishes the invitation holds.
func assertRecordCount(actx *AssertionContext, assertion Assertion) error {
	wishes, err := actx.Repo.ListByInvitation(actx.Ctx, actx.Invitation)
	if err != nil {
		return fmt.Errorf("record_count: %w", err)
	}
	if len(wishes) != assertion.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d wishes for %s", assertion.Count, actx.Invitation),
			Actual:   fmt.Sprintf("%d wishes", len(wishes)),
		}
	}
	return nil
}

// formatWhere renders a where clause with keys in sorted order.
func formatWhere(where map[string]interface{}) string {
	parts := make([]string, 0, len(where))
	for _, k := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchArgs checks if actual args contain all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual interface{}, expected map[string]interface{}) bool {
	if len(expected) == 0 {
		return true
	}

	actualMap, ok := actual.(map[string]interface{})
	if !ok {
		return false
	}

	for key, expectedVal := range expected {
		actualVal, exists := actualMap[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values for equality.
// Handles nested maps and slices.
func valuesEqual(actual, expected interface{}) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx        context.Context
	Repo       wish.Repository
	Service    *wish.Service
	Invitation string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for final_state and record_count.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertRecordCount:
			if actx == nil || actx.Repo == nil || actx.Service == nil {
				err = fmt.Errorf("assertion[%d]: %s requires store context", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(actx, assertion)
			} else {
				err = assertRecordCount(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
