package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the root command against args and returns the
// combined output. Commands share state through the database path, so a
// test can run a sequence of commands against one plant.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "factory.db")
}

// decodeResponse parses one JSON CLI response.
func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := runCommand(t, "--format", "xml", "--db", testDB(t), "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestStartCommand(t *testing.T) {
	db := testDB(t)

	out, err := runCommand(t, "start", "4", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Job 1 started")
	assert.Contains(t, out, "4 units")
}

func TestStartCommand_JSON(t *testing.T) {
	db := testDB(t)

	out, err := runCommand(t, "start", "4", "--db", db, "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	job := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), job["id"])
	assert.Equal(t, float64(4), job["requested_units"])
}

func TestStartCommand_InvalidUnitsArg(t *testing.T) {
	_, err := runCommand(t, "start", "lots", "--db", testDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStartCommand_DomainRejection(t *testing.T) {
	db := testDB(t)
	cfg := writeConfig(t, `starting_raw_material: 5`)

	out, err := runCommand(t, "start", "4", "--db", db, "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "domain rejections exit 1")
	assert.Contains(t, out, "INSUFFICIENT_STOCK")
}

func TestTickAndStatusCommands(t *testing.T) {
	db := testDB(t)
	cfg := writeConfig(t, `fault_probability: 0`)

	_, err := runCommand(t, "start", "4", "--db", db, "--config", cfg)
	require.NoError(t, err)

	out, err := runCommand(t, "tick", "--n", "2", "--db", db, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Tick 2")

	out, err = runCommand(t, "status", "--db", db, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Tick: 2")
	assert.Contains(t, out, "Finished goods: 4")
	assert.Contains(t, out, "machine 1: IDLE")
}

func TestStatusCommand_JSON(t *testing.T) {
	db := testDB(t)

	out, err := runCommand(t, "status", "--db", db, "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	state := resp.Data.(map[string]any)
	assert.Equal(t, float64(0), state["sim_time"])
	assert.Equal(t, float64(1000), state["cash_balance"])
}

func TestCancelCommand(t *testing.T) {
	db := testDB(t)

	_, err := runCommand(t, "start", "6", "--db", db)
	require.NoError(t, err)

	out, err := runCommand(t, "cancel", "1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Job 1 cancelled")

	out, err = runCommand(t, "cancel", "1", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "INVALID_ARGUMENT")
}

func TestSellCommand_NothingToSell(t *testing.T) {
	out, err := runCommand(t, "sell", "--db", testDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing sold")
}

func TestForecastCommand(t *testing.T) {
	db := testDB(t)

	out, err := runCommand(t, "forecast", "--horizon", "3", "--db", db, "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	snapshots := resp.Data.([]any)
	assert.Len(t, snapshots, 3)
}

func TestFinancialsCommand(t *testing.T) {
	db := testDB(t)

	_, err := runCommand(t, "start", "4", "--db", db)
	require.NoError(t, err)

	out, err := runCommand(t, "financials", "--db", db, "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	summary := resp.Data.(map[string]any)
	assert.Equal(t, float64(200), summary["cost"])
	assert.Equal(t, float64(0), summary["revenue"])
	assert.Equal(t, float64(800), summary["cash_balance"])
}

func TestHistoryCommand(t *testing.T) {
	db := testDB(t)

	_, err := runCommand(t, "start", "4", "--db", db)
	require.NoError(t, err)
	_, err = runCommand(t, "tick", "--db", db)
	require.NoError(t, err)

	out, err := runCommand(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "JOB_CREATED")
	assert.Contains(t, out, "TICK_ADVANCED")

	out, err = runCommand(t, "history", "--kind", "JOB_CREATED", "--db", db, "--format", "json")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	records := resp.Data.([]any)
	require.Len(t, records, 1)
}

func TestHistoryCommand_InvalidKind(t *testing.T) {
	out, err := runCommand(t, "history", "--kind", "NOT_A_KIND", "--db", testDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "INVALID_ARGUMENT")
}

func TestShiftCommand(t *testing.T) {
	db := testDB(t)

	out, err := runCommand(t, "shift", "night", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "NIGHT")

	out, err = runCommand(t, "shift", "SWING", "--db", db)
	require.Error(t, err)
	assert.Contains(t, out, "INVALID_ARGUMENT")
}

func TestRepairCommand_NotBroken(t *testing.T) {
	out, err := runCommand(t, "repair", "1", "--db", testDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "INVALID_ARGUMENT")
}

func TestIssueCommand(t *testing.T) {
	db := testDB(t)

	_, err := runCommand(t, "issue", "maintenance", "press 2 vibration", "--db", db)
	require.NoError(t, err)

	out, err := runCommand(t, "history", "--kind", "ISSUE_LOGGED", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "press 2 vibration")
}

func TestCommands_PersistAcrossInvocations(t *testing.T) {
	db := testDB(t)
	cfg := writeConfig(t, `fault_probability: 0`)

	_, err := runCommand(t, "start", "4", "--db", db, "--config", cfg)
	require.NoError(t, err)
	_, err = runCommand(t, "tick", "--db", db, "--config", cfg)
	require.NoError(t, err)
	_, err = runCommand(t, "tick", "--db", db, "--config", cfg)
	require.NoError(t, err)

	// A fresh process restores the exact same plant from the database.
	out, err := runCommand(t, "status", "--db", db, "--format", "json", "--config", cfg)
	require.NoError(t, err)
	state := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, float64(2), state["sim_time"])
	assert.Equal(t, float64(4), state["finished_goods_stock"])
	assert.Equal(t, float64(800), state["cash_balance"])
}
