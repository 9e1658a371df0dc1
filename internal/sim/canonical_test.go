package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"zebra":  1,
		"apple":  2,
		"mango":  3,
		"banana": 4,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"apple":2,"banana":4,"mango":3,"zebra":1}`, string(out))
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	payload := map[string]any{
		"job_id":         int64(3),
		"produced_units": 2,
		"nested":         map[string]any{"b": 1, "a": 2},
	}
	first, err := MarshalCanonical(payload)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := MarshalCanonical(payload)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"note": "a<b & c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"note":"a<b & c>d"}`, string(out))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" as e + combining acute (NFD) must serialize identically to the
	// precomposed form.
	decomposed := "café"
	precomposed := "café"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(precomposed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_Floats(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"integral prints as int", 200.0, "200"},
		{"negative integral", -50.0, "-50"},
		{"fractional keeps shortest form", 149.73, "149.73"},
		{"zero", 0.0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(math.NaN())
	assert.Error(t, err)
	_, err = MarshalCanonical(math.Inf(1))
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"v": math.Inf(-1)})
	assert.Error(t, err)
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"v": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestMarshalCanonical_DomainTypes(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"tick":   Tick(12),
		"job_id": JobID(3),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"job_id":3,"tick":12}`, string(out))
}

func TestMarshalCanonical_Arrays(t *testing.T) {
	out, err := MarshalCanonical([]any{1, "two", true, map[string]any{"k": 3}})
	require.NoError(t, err)
	assert.Equal(t, `[1,"two",true,{"k":3}]`, string(out))
}

func TestMarshalCanonical_UnsupportedType(t *testing.T) {
	_, err := MarshalCanonical(struct{ X int }{1})
	assert.Error(t, err)
}
