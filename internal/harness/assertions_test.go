package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.AddInvocationTrace(ActionSubmit, map[string]interface{}{"guest": "Budi", "message": "Halo"}, 1)
	r.AddCompletionTrace(ActionSubmit, CaseCreated, map[string]interface{}{"id": "wed_123:budi"}, 2)
	r.AddInvocationTrace(ActionSubmit, map[string]interface{}{"guest": "budi", "message": "Lagi"}, 3)
	r.AddCompletionTrace(ActionSubmit, CaseAlreadyPosted, map[string]interface{}{"id": "wed_123:budi"}, 4)
	r.AddInvocationTrace(ActionList, map[string]interface{}{}, 5)
	r.AddCompletionTrace(ActionList, CaseOK, map[string]interface{}{"count": 1}, 6)
	return r.Trace
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Action: ActionSubmit, Args: map[string]interface{}{"guest": "budi"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: ActionList}))

	err := assertTraceContains(trace, Assertion{Action: ActionSubmit, Args: map[string]interface{}{"guest": "Sari"}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Equal(t, "not found in trace", ae.Actual)
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{ActionSubmit, ActionList}}))

	err := assertTraceOrder(trace, Assertion{Actions: []string{ActionList, ActionSubmit}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Actions: []string{ActionSubmit, ActionFind}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: Wish.find")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionSubmit, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionSubmit, Case: CaseCreated, Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionFind, Count: 0}))

	err := assertTraceCount(trace, Assertion{Action: ActionSubmit, Case: CaseAlreadyPosted, Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences of Wish.submit -> already_posted")
	assert.Contains(t, err.Error(), "Actual: 1 occurrences")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1",
		Actual:   "0",
		Trace:    sampleTrace()[:2],
	}
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "Assertion failed: trace_count\n"))
	assert.Contains(t, msg, "[1] Wish.submit")
	assert.Contains(t, msg, "-> created")
}

func TestMatchArgs(t *testing.T) {
	actual := map[string]interface{}{
		"count": 2,
		"names": []interface{}{"a", "b"},
	}

	assert.True(t, matchArgs(actual, nil))
	assert.True(t, matchArgs(actual, map[string]interface{}{"count": 2}))
	assert.True(t, matchArgs(actual, map[string]interface{}{"names": []interface{}{"a", "b"}}))
	assert.False(t, matchArgs(actual, map[string]interface{}{"count": 3}))
	assert.False(t, matchArgs(actual, map[string]interface{}{"missing": 1}))
	assert.False(t, matchArgs(nil, map[string]interface{}{"count": 2}))
	assert.False(t, matchArgs("not a map", map[string]interface{}{"count": 2}))
}

func TestEvaluateAssertions_NoStoreContext(t *testing.T) {
	r := NewResult()
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertRecordCount, Count: 0},
		{Type: "bogus"},
	}, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "record_count requires store context")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}

func TestFormatWhere(t *testing.T) {
	got := formatWhere(map[string]interface{}{"id": "x", "guest": "budi"})
	assert.Equal(t, "guest=budi AND id=x", got)
}
