// Package harness is the scenario conformance framework for the factory
// twin. Scenarios are YAML files describing a flow of operations against a
// fresh plant - start jobs, advance time, sell, break and repair machines -
// with expected outcomes and assertions over the resulting history log and
// final state.
//
// Every scenario runs against a real engine over an in-memory SQLite store
// with a fixed run token and a zero fault probability default, so the same
// scenario always writes a byte-identical history log. Golden-trace tests
// build on this: the canonical JSON of the history log is compared against
// a checked-in .golden file, and any behavioral drift shows up as a diff.
//
// Assertion types:
//
//   - history_contains: an event of the given kind with a payload subset
//     appears somewhere in the log
//   - history_order: event kinds appear in the given relative order
//   - history_count: an event kind appears exactly N times
//   - final_state: fields of the final plant, a job, or a machine match
//
// To regenerate golden files after an intentional behavior change:
//
//	go test ./internal/harness -update
package harness
