package encoder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncoder(t *testing.T) *Hashids {
	t.Helper()
	enc, err := New(Config{Salt: "test-salt", MinLength: 7})
	require.NoError(t, err)
	return enc
}

func TestHashids_RoundTripIsBijective(t *testing.T) {
	enc := newTestEncoder(t)

	seen := make(map[string]int64, 10001)
	for id := int64(0); id <= 10000; id++ {
		code, err := enc.Encode(id)
		require.NoError(t, err)

		if prev, dup := seen[code]; dup {
			t.Fatalf("ids %d and %d share code %q", prev, id, code)
		}
		seen[code] = id

		got, ok := enc.Decode(code)
		require.True(t, ok, "code %q for id %d did not decode", code, id)
		require.Equal(t, id, got)
	}
}

func TestHashids_Deterministic(t *testing.T) {
	a := newTestEncoder(t)
	b := newTestEncoder(t)

	for _, id := range []int64{0, 1, 42, 1 << 40} {
		first, err := a.Encode(id)
		require.NoError(t, err)
		again, err := a.Encode(id)
		require.NoError(t, err)
		other, err := b.Encode(id)
		require.NoError(t, err)

		assert.Equal(t, first, again)
		assert.Equal(t, first, other)
	}
}

func TestHashids_CodeShape(t *testing.T) {
	enc := newTestEncoder(t)

	for _, id := range []int64{0, 1, 999, 123456789} {
		code, err := enc.Encode(id)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(code), 7)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected rune %q in %q", r, code)
		}
	}
}

func TestHashids_SaltChangesCodes(t *testing.T) {
	a := newTestEncoder(t)
	b, err := New(Config{Salt: "another-salt", MinLength: 7})
	require.NoError(t, err)

	codeA, err := a.Encode(1)
	require.NoError(t, err)
	codeB, err := b.Encode(1)
	require.NoError(t, err)

	assert.NotEqual(t, codeA, codeB)
}

func TestHashids_DecodeMalformed(t *testing.T) {
	enc := newTestEncoder(t)

	long, err := enc.Encode(5)
	require.NoError(t, err)

	inputs := []string{
		"",
		"$$$",
		"abc",
		"unknown-code",
		"ab cd ef",
		"日本語日本語日本",
		long[:len(long)-1],
		long + long,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := enc.Decode(in)
				assert.False(t, ok)
			})
		})
	}
}

func TestHashids_RejectsNegative(t *testing.T) {
	enc := newTestEncoder(t)

	_, err := enc.Encode(-1)
	assert.ErrorIs(t, err, ErrNegativeID)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Salt: "x", MinLength: -3})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
