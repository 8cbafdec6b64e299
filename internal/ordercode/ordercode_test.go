package ordercode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustdrive/stagelink/internal/ordercode"
)

func TestGenerateMatchesPattern(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := ordercode.Generate()
		require.Regexp(t, ordercode.Pattern, code)
		require.Len(t, code, 10)
	}
}

func TestGenerateVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		seen[ordercode.Generate()] = struct{}{}
	}
	// The space has ~450M codes; two hundred draws colliding down to a
	// handful of distinct values would mean a broken randomness source.
	assert.Greater(t, len(seen), 190)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "JKH 65T P3", ordercode.Normalize("jkh 65t p3"))
	assert.Equal(t, "JKH 65T P3", ordercode.Normalize("  JKH 65T P3\n"))
	assert.Equal(t, "", ordercode.Normalize("   "))
}

func TestPatternRejectsMalformed(t *testing.T) {
	for _, code := range []string{
		"JKH65TP3",
		"JKH 65T P33",
		"JK1 65T P3",
		"jkh 65t p3",
		"JKH 6TT P3",
		"JKH 65T 3P",
	} {
		assert.NotRegexp(t, ordercode.Pattern, code, "expected %q to be rejected", code)
	}
}
