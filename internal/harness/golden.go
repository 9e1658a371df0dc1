package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/fennward/factorytwin/internal/sim"
)

// TraceSnapshot captures the complete history log a scenario produced.
// Serialization is canonical JSON so golden comparison is byte-stable.
type TraceSnapshot struct {
	ScenarioName string
	RunToken     string
	History      []sim.HistoryRecord
}

// toCanonicalMap converts the snapshot to plain maps for canonical JSON
// serialization. The run token is hoisted to the top level; repeating it
// per record would only add noise to the golden file.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	records := make([]any, len(s.History))
	for i, rec := range s.History {
		records[i] = map[string]any{
			"seq":     rec.Seq,
			"tick":    int64(rec.Tick),
			"kind":    string(rec.Kind),
			"payload": rec.Payload,
		}
	}
	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"history":       records,
	}
	if s.RunToken != "" {
		result["run_token"] = s.RunToken
	}
	return result
}

// RunWithGolden executes a scenario and compares its history log against
// a golden file under testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files after an intentional behavior change:
//
//	go test ./internal/harness -update
//
// Golden files are the source of truth for the exact event log a scenario
// produces; any drift in ordering, payloads or record counts fails here.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		RunToken:     scenario.RunToken,
		History:      result.History,
	}
	traceJSON, err := sim.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return result, nil
}
