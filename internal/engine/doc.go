// Package engine implements the state engine facade of the factory twin.
//
// The engine composes the market model, ledger, machine registry, job
// manager and persistence store into the single entry point external
// collaborators call. Each operation is one logical unit of work:
// validate -> mutate-or-read -> persist-if-mutated -> return.
//
// ARCHITECTURE:
//
// Single-writer mutation path:
// All state-mutating operations (job admission, tick advancement, sales,
// fault injection, repairs) serialize under one lock. A mutation completes,
// including its synchronous history write, before the next begins. The
// plant's resources (cash, stock, machines) are shared mutable state with
// no safe concurrent-write path.
//
// Read path:
// Read-only queries serve from a deep copy taken under a read lock, so
// concurrent readers never observe a half-applied mutation.
//
// Time:
// Advancement is externally driven - the caller invokes Tick. The engine
// runs no background goroutines, which keeps the simulation deterministic
// and replayable from its history log.
//
// Durability:
// Every mutating call appends its history records before reporting success.
// If the store write fails, the in-memory mutation is rolled back and the
// call returns PERSISTENCE_FAILURE - a reported success is never lost.
package engine
