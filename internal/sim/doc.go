// Package sim provides the core data model for the factory digital twin.
//
// This package contains type definitions, the error taxonomy, the plant
// configuration surface, and canonical JSON serialization. All other internal
// packages import sim; sim imports nothing internal. This keeps the model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Ordering uses the simulation tick (logical clock), never wall time,
//     so a run is fully replayable from its history log
//   - Stock quantities are never negative; cash may go negative (debt)
//   - Terminal job states (Completed/Failed/Cancelled) are immutable
//   - All JSON tags use snake_case
package sim
