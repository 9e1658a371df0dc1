package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/fennward/factorytwin/internal/sim"
)

// AssertionError is returned when an assertion fails.
// It includes the history log so the failure can be debugged from the
// test output alone.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	History  []sim.HistoryRecord // Full history for debugging context
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.History) > 0 {
		fmt.Fprintf(&buf, "\nHistory log:\n")
		for _, rec := range e.History {
			fmt.Fprintf(&buf, "  [%d] tick %d %s %v\n", rec.Seq, rec.Tick, rec.Kind, rec.Payload)
		}
	}
	return buf.String()
}

// assertHistoryContains checks that a record of the given kind with a
// payload subset appears somewhere in the history log.
func assertHistoryContains(history []sim.HistoryRecord, assertion Assertion) error {
	for _, rec := range history {
		if string(rec.Kind) == assertion.Kind && matchPayload(rec.Payload, assertion.Payload) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertHistoryContains,
		Expected: fmt.Sprintf("event %s with payload %v", assertion.Kind, assertion.Payload),
		Actual:   "not found in history",
		History:  history,
	}
}

// assertHistoryOrder checks that event kinds appear in the given relative
// order. Kinds don't need to be consecutive; intervening records are fine.
// Each expected kind is matched at its first occurrence.
func assertHistoryOrder(history []sim.HistoryRecord, assertion Assertion) error {
	positions := make(map[string]int)
	for i, rec := range history {
		kind := string(rec.Kind)
		for _, expected := range assertion.Kinds {
			if kind == expected && positions[expected] == 0 {
				positions[expected] = i + 1 // 1-indexed for readability
			}
		}
	}

	for _, kind := range assertion.Kinds {
		if positions[kind] == 0 {
			return &AssertionError{
				Type:     AssertHistoryOrder,
				Expected: fmt.Sprintf("all kinds present: %v", assertion.Kinds),
				Actual:   fmt.Sprintf("missing kind: %s", kind),
				History:  history,
			}
		}
	}
	for i := 1; i < len(assertion.Kinds); i++ {
		prev, curr := assertion.Kinds[i-1], assertion.Kinds[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertHistoryOrder,
				Expected: fmt.Sprintf("kinds in order: %v", assertion.Kinds),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				History: history,
			}
		}
	}
	return nil
}

// assertHistoryCount checks that the kind appears exactly N times.
func assertHistoryCount(history []sim.HistoryRecord, assertion Assertion) error {
	count := 0
	for _, rec := range history {
		if string(rec.Kind) == assertion.Kind {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d occurrences", count),
			History:  history,
		}
	}
	return nil
}

// assertFinalState checks expected field values against the final plant,
// a job, or a machine. Subset semantics - only fields in Expect are
// checked.
func assertFinalState(final *sim.FactoryState, assertion Assertion) error {
	fields, err := finalStateFields(final, assertion)
	if err != nil {
		return err
	}

	for key, expected := range assertion.Expect {
		actual, exists := fields[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in %s fields", key, entityName(assertion)),
			}
		}
		if !valuesMatch(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s field %q = %v", entityName(assertion), key, expected),
				Actual:   fmt.Sprintf("field %q = %v", key, actual),
			}
		}
	}
	return nil
}

// finalStateFields projects the selected entity into a flat field map
// that assertion Expect keys index into.
func finalStateFields(final *sim.FactoryState, assertion Assertion) (map[string]interface{}, error) {
	switch assertion.Entity {
	case "", "plant":
		return map[string]interface{}{
			"sim_time":             int64(final.SimTime),
			"cash_balance":         final.CashBalance,
			"raw_material_stock":   final.RawMaterialStock,
			"finished_goods_stock": final.FinishedGoodsStock,
			"shift":                string(final.Shift),
			"next_job_id":          int64(final.NextJobID),
			"in_debt":              final.InDebt(),
		}, nil

	case "job":
		job, ok := final.Jobs[sim.JobID(assertion.ID)]
		if !ok {
			return nil, &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("job %d to exist", assertion.ID),
				Actual:   "job not found",
			}
		}
		fields := map[string]interface{}{
			"status":          string(job.Status),
			"requested_units": job.RequestedUnits,
			"produced_units":  job.ProducedUnits,
			"reserved_units":  job.ReservedUnits,
			"material_cost":   job.MaterialCost,
		}
		if job.MachineID != nil {
			fields["machine_id"] = *job.MachineID
		}
		return fields, nil

	case "machine":
		m := final.Machine(assertion.ID)
		if m == nil {
			return nil, &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("machine %d to exist", assertion.ID),
				Actual:   "machine not found",
			}
		}
		fields := map[string]interface{}{
			"status":            string(m.Status),
			"capacity_per_tick": m.CapacityPerTick,
		}
		if m.JobID != nil {
			fields["job_id"] = int64(*m.JobID)
		}
		return fields, nil

	default:
		return nil, fmt.Errorf("unknown final_state entity %q", assertion.Entity)
	}
}

func entityName(assertion Assertion) string {
	if assertion.Entity == "" {
		return "plant"
	}
	return assertion.Entity
}

// matchPayload checks that the payload contains all expected fields
// (subset match). Extra keys in the payload are ignored.
func matchPayload(payload map[string]any, expected map[string]interface{}) bool {
	for key, expectedVal := range expected {
		actualVal, exists := payload[key]
		if !exists {
			return false
		}
		if !valuesMatch(expectedVal, actualVal) {
			return false
		}
	}
	return true
}

// valuesMatch compares an expected value from YAML against an actual
// value from the engine or a JSON-decoded payload. YAML parses small
// numbers as int while JSON decodes everything numeric as float64, so
// numeric comparison coerces both sides.
func valuesMatch(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if expNum, ok := asFloat(expected); ok {
		actNum, ok := asFloat(actual)
		return ok && expNum == actNum
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case bool:
		act, ok := actual.(bool)
		return ok && exp == act
	}
	return reflect.DeepEqual(expected, actual)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertHistoryContains:
			err = assertHistoryContains(result.History, assertion)
		case AssertHistoryOrder:
			err = assertHistoryOrder(result.History, assertion)
		case AssertHistoryCount:
			err = assertHistoryCount(result.History, assertion)
		case AssertFinalState:
			err = assertFinalState(result.Final, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
