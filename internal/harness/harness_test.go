package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// intp and floatp build override pointers for inline scenarios.
func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestRun_JobLifecycle(t *testing.T) {
	scenario := &Scenario{
		Name:        "lifecycle",
		Description: "job runs to completion",
		Flow: []Step{
			{Op: "start_job", Args: map[string]interface{}{"units": 4}},
			{Op: "tick"},
			{Op: "tick"},
		},
		Assertions: []Assertion{
			{Type: AssertHistoryOrder, Kinds: []string{"JOB_CREATED", "JOB_ADVANCED", "JOB_COMPLETED"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.NotNil(t, result.Final)
	assert.Equal(t, 4, result.Final.FinishedGoodsStock)
	assert.Equal(t, 92, result.Final.RawMaterialStock)
	assert.Equal(t, 800.0, result.Final.CashBalance)
}

func TestRun_ExpectedErrorMatches(t *testing.T) {
	scenario := &Scenario{
		Name:        "rejection",
		Description: "oversized job is rejected",
		Config:      &ConfigOverrides{StartingRawMaterial: intp(4)},
		Flow: []Step{
			{Op: "start_job", Args: map[string]interface{}{"units": 100},
				Expect: &ExpectClause{Error: "INSUFFICIENT_STOCK"}},
			{Op: "get_status"},
		},
		Assertions: []Assertion{
			{Type: AssertHistoryCount, Kind: "JOB_CREATED", Count: 0},
			{Type: AssertFinalState, Expect: map[string]interface{}{"raw_material_stock": 4, "cash_balance": 1000}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnexpectedErrorFailsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected-error",
		Description: "a step without expect must succeed",
		Config:      &ConfigOverrides{StartingRawMaterial: intp(0)},
		Flow: []Step{
			{Op: "start_job", Args: map[string]interface{}{"units": 1}},
		},
		Assertions: []Assertion{
			{Type: AssertHistoryCount, Kind: "JOB_CREATED", Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "INSUFFICIENT_STOCK")
}

func TestRun_ResultMismatchFailsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "result-mismatch",
		Description: "wrong expected job id is reported",
		Flow: []Step{
			{Op: "start_job", Args: map[string]interface{}{"units": 1},
				Expect: &ExpectClause{Result: map[string]interface{}{"job_id": 99}}},
		},
		Assertions: []Assertion{
			{Type: AssertHistoryCount, Kind: "JOB_CREATED", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "job_id")
}

func TestRun_DeterministicHistory(t *testing.T) {
	scenario := &Scenario{
		Name:        "repeatable",
		Description: "same scenario produces the same history",
		RunToken:    "run-repeat",
		Flow: []Step{
			{Op: "start_job", Args: map[string]interface{}{"units": 3}},
			{Op: "tick", Args: map[string]interface{}{"elapsed": 2}},
			{Op: "change_shift", Args: map[string]interface{}{"shift": "NIGHT"}},
		},
		Assertions: []Assertion{
			{Type: AssertHistoryContains, Kind: "SHIFT_CHANGED",
				Payload: map[string]interface{}{"shift": "NIGHT"}},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, first.Pass, "errors: %v", first.Errors)

	second, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, second.Pass, "errors: %v", second.Errors)

	require.Equal(t, len(first.History), len(second.History))
	for i := range first.History {
		assert.Equal(t, first.History[i].Seq, second.History[i].Seq)
		assert.Equal(t, first.History[i].Tick, second.History[i].Tick)
		assert.Equal(t, first.History[i].Kind, second.History[i].Kind)
		assert.Equal(t, first.History[i].Payload, second.History[i].Payload)
	}
}

func TestRun_SetupEstablishesState(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup-state",
		Description: "setup jobs run before the flow is measured",
		Setup: []Step{
			{Op: "start_job", Args: map[string]interface{}{"units": 2}},
			{Op: "tick"},
		},
		Flow: []Step{
			{Op: "get_status", Expect: &ExpectClause{
				Result: map[string]interface{}{"finished_goods_stock": 2, "sim_time": 1},
			}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Expect: map[string]interface{}{"finished_goods_stock": 2}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ConfigOverrides(t *testing.T) {
	scenario := &Scenario{
		Name:        "overrides",
		Description: "material economics follow the overridden config",
		Config: &ConfigOverrides{
			MaterialPerUnit:     intp(3),
			MaterialCostPerUnit: floatp(10),
			StartingCash:        floatp(100),
		},
		Flow: []Step{
			{Op: "start_job", Args: map[string]interface{}{"units": 2},
				Expect: &ExpectClause{Result: map[string]interface{}{"material_cost": 20}}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Expect: map[string]interface{}{
				"cash_balance":       80,
				"raw_material_stock": 94,
			}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunSuite_AllScenariosPass(t *testing.T) {
	suite, err := RunSuite("testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, suite.Total, suite.Passed, "failures: %+v", suite.Failures)
	assert.Zero(t, suite.Failed)
	assert.GreaterOrEqual(t, suite.Total, 5)
}

func TestRunSuite_MissingDirectory(t *testing.T) {
	_, err := RunSuite("testdata/does-not-exist")
	assert.Error(t, err)
}
