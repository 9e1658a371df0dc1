// Package store provides SQLite-backed durable storage for the factory
// digital twin: periodic full-state snapshots plus an append-only history
// log of every state-mutating event.
//
// Durability contract: the engine appends the history records of a mutating
// operation synchronously, before reporting success to the caller. A crash
// after a reported success therefore never loses that event. Snapshots are
// periodic (not per tick) to bound write volume; the latest snapshot plus
// the history records after it reconstruct the exact current state.
//
// Determinism:
//   - All ordering uses the seq column (append sequence), never wall time
//   - All history queries include ORDER BY seq ASC for identical results
//     across replays
//   - Payloads are canonical JSON (sim.MarshalCanonical), so identical
//     events persist as identical bytes
//
// Database configuration:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
