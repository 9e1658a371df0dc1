package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_Format(t *testing.T) {
	g := UUIDv7Generator{}
	token := g.Generate()

	parsed, err := uuid.Parse(token)
	require.NoError(t, err, "token should be a valid UUID")
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	g := UUIDv7Generator{}
	const iterations = 1000

	seen := make(map[string]bool)
	for i := 0; i < iterations; i++ {
		token := g.Generate()
		assert.False(t, seen[token], "token %s generated twice", token)
		seen[token] = true
	}
}

func TestUUIDv7Generator_TimeSortable(t *testing.T) {
	g := UUIDv7Generator{}

	// UUIDv7's leading bits are a timestamp, so tokens generated in
	// sequence never decrease lexicographically.
	prev := g.Generate()
	for i := 0; i < 100; i++ {
		next := g.Generate()
		assert.LessOrEqual(t, prev, next)
		prev = next
	}
}

func TestFixedGenerator_ReturnsInOrder(t *testing.T) {
	g := NewFixedGenerator("run-1", "run-2", "run-3")

	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-2", g.Generate())
	assert.Equal(t, "run-3", g.Generate())
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	g := NewFixedGenerator("only-one")
	g.Generate()

	assert.Panics(t, func() { g.Generate() }, "exhausted generator should panic")
}

func TestFixedGenerator_Empty(t *testing.T) {
	g := NewFixedGenerator()
	assert.Panics(t, func() { g.Generate() })
}
