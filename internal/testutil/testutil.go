// Package testutil provides deterministic fixtures shared by the package
// tests and the scenario harness.
package testutil

import (
	"testing"

	"github.com/fennward/factorytwin/internal/sim"
	"github.com/fennward/factorytwin/internal/store"
)

// TestConfig returns a small deterministic plant configuration.
//
// FaultProbability is zero so machines never break unless a test sets it
// explicitly. The same config with the same operations always produces
// byte-identical history, which golden-trace comparison depends on.
func TestConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.NoiseSeed = 42
	cfg.FaultProbability = 0
	return cfg
}

// NewStore opens a fresh in-memory SQLite store and closes it when the
// test finishes. Each call returns an isolated database.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}
