package qmat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbedPlacesOperatorAtBit(t *testing.T) {
	// σz at bit 0 of a 2-qubit space: diagonal +1 -1 +1 -1 over basis 00..11.
	low := Embed(PauliZ(), 0, 2)
	assert.Equal(t, 4, low.Dim())
	for k := 0; k < 4; k++ {
		want := complex(1, 0)
		if k&1 == 1 {
			want = complex(-1, 0)
		}
		assert.Equal(t, want, low.At(k, k))
	}

	// σz at bit 1: sign follows the high bit.
	high := Embed(PauliZ(), 1, 2)
	for k := 0; k < 4; k++ {
		want := complex(1, 0)
		if k&2 == 2 {
			want = complex(-1, 0)
		}
		assert.Equal(t, want, high.At(k, k))
	}
}

func TestEmbedSingleQubitIsIdentityWrap(t *testing.T) {
	g := PauliX()
	assert.True(t, Embed(g, 0, 1).EqualApprox(g, 0))
}
