package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenarioFile(t, `
name: basic
description: starts a job
flow:
  - op: start_job
    args: {units: 2}
assertions:
  - type: history_count
    kind: JOB_CREATED
    count: 1
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "basic", scenario.Name)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "start_job", scenario.Flow[0].Op)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertHistoryCount, scenario.Assertions[0].Type)
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	// "assertion" (singular) is a typo for "assertions" and must fail
	// loudly instead of silently dropping every assertion.
	path := writeScenarioFile(t, `
name: typo
description: misspelled key
flow:
  - op: tick
assertion:
  - type: history_count
    kind: TICK_ADVANCED
    count: 1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_UnknownOp(t *testing.T) {
	path := writeScenarioFile(t, `
name: bad-op
description: references an operation that does not exist
flow:
  - op: explode_plant
assertions:
  - type: history_count
    kind: TICK_ADVANCED
    count: 0
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown op")
}

func TestLoadScenario_MissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"missing name": `
description: no name
flow:
  - op: tick
assertions:
  - type: history_count
    kind: TICK_ADVANCED
    count: 1
`,
		"missing flow": `
name: no-flow
description: flow omitted
assertions:
  - type: history_count
    kind: TICK_ADVANCED
    count: 1
`,
		"missing assertions": `
name: no-assertions
description: assertions omitted
flow:
  - op: tick
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(writeScenarioFile(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadScenario_SetupMustSucceed(t *testing.T) {
	path := writeScenarioFile(t, `
name: failing-setup
description: setup steps cannot expect errors
setup:
  - op: start_job
    args: {units: 1}
    expect: {error: INSUFFICIENT_STOCK}
flow:
  - op: tick
assertions:
  - type: history_count
    kind: TICK_ADVANCED
    count: 1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup")
}

func TestLoadScenario_FinalStateEntityValidation(t *testing.T) {
	path := writeScenarioFile(t, `
name: bad-entity
description: job final_state without an id
flow:
  - op: tick
assertions:
  - type: final_state
    entity: job
    expect: {status: COMPLETED}
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")
}

func TestLoadScenario_ExpectErrorAndResultConflict(t *testing.T) {
	path := writeScenarioFile(t, `
name: conflicting-expect
description: a step cannot expect both an error and a result
flow:
  - op: start_job
    args: {units: 1}
    expect:
      error: INSUFFICIENT_STOCK
      result: {job_id: 1}
assertions:
  - type: history_count
    kind: JOB_CREATED
    count: 0
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both error and result")
}
