package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meimodev/activid-web-sub001/internal/selector"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "expect clause disagrees with the service",
		Invitation:  DefaultInvitation,
		Flow: []FlowStep{
			{
				Invoke: ActionSubmit,
				Args:   map[string]interface{}{"guest": "Budi", "message": "Halo"},
				Expect: &ExpectClause{Case: CaseAlreadyPosted},
			},
			{
				Invoke: ActionFind,
				Args:   map[string]interface{}{"guest": "Budi"},
				Expect: &ExpectClause{Case: CaseFound, Result: map[string]interface{}{"message": "Lain"}},
			},
		},
		Assertions: []Assertion{{Type: AssertRecordCount, Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `expected case "already_posted", got "created"`)
	assert.Contains(t, result.Errors[1], "expected result")
}

func TestRun_SetupSeedsStore(t *testing.T) {
	scenario := &Scenario{
		Name:        "seeded",
		Description: "setup wishes are visible to the flow",
		Invitation:  DefaultInvitation,
		Setup: []ActionStep{
			{Action: ActionSubmit, Args: map[string]interface{}{"guest": "Sari", "message": "Selamat"}},
		},
		Flow: []FlowStep{
			{
				Invoke: ActionSubmit,
				Args:   map[string]interface{}{"guest": "SARI", "message": "Lagi"},
				Expect: &ExpectClause{Case: CaseAlreadyPosted, Result: map[string]interface{}{"message": "Selamat"}},
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceOrder, Actions: []string{ActionSubmit}},
			{Type: AssertTraceCount, Action: ActionSubmit, Count: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 4)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, int64(4), result.Trace[3].Seq)
}

func TestRun_FailingSetupAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "setup must succeed",
		Invitation:  DefaultInvitation,
		Setup: []ActionStep{
			{Action: ActionSubmit, Args: map[string]interface{}{"guest": "Sari", "message": ""}},
		},
		Flow:       []FlowStep{{Invoke: ActionFind, Args: map[string]interface{}{"guest": "Sari"}}},
		Assertions: []Assertion{{Type: AssertRecordCount, Count: 0}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMPTY_MESSAGE")
}

func TestRun_BadArgType(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_arg",
		Description: "guest must be a string",
		Invitation:  DefaultInvitation,
		Flow:        []FlowStep{{Invoke: ActionFind, Args: map[string]interface{}{"guest": 42}}},
		Assertions:  []Assertion{{Type: AssertRecordCount, Count: 0}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `arg "guest": expected string, got int`)
}

func TestRun_PickAndNameKey(t *testing.T) {
	items := []interface{}{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}
	want := selector.Pick(items, "wed_123", 3)

	scenario := &Scenario{
		Name:        "pick",
		Description: "photo pick and name key actions",
		Invitation:  DefaultInvitation,
		Flow: []FlowStep{
			{
				Invoke: ActionPick,
				Args:   map[string]interface{}{"items": items, "seed": "wed_123", "count": 3},
				Expect: &ExpectClause{Case: CaseOK, Result: map[string]interface{}{"items": want}},
			},
			{
				Invoke: ActionNameKey,
				Args:   map[string]interface{}{"name": "  Ni Luh  Putu-Ayu "},
				Expect: &ExpectClause{Case: CaseOK, Result: map[string]interface{}{"key": "ni_luh_putu_ayu"}},
			},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Action: ActionPick, Case: CaseOK, Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, want, 3)
}

func TestRun_FinalStateMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "final_state",
		Description: "final state compares stored fields",
		Invitation:  DefaultInvitation,
		Flow: []FlowStep{
			{Invoke: ActionSubmit, Args: map[string]interface{}{"guest": "Budi", "attendance": "hadir", "message": "Halo"}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Where: map[string]interface{}{"guest": "budi"}, Expect: map[string]interface{}{"attendance": "tidak"}},
			{Type: AssertFinalState, Where: map[string]interface{}{"guest": "Sari"}, Expect: map[string]interface{}{"message": "x"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "attendance = tidak where guest=budi")
	assert.Contains(t, result.Errors[1], "no wish stored")
}
