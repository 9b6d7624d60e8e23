package backupcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_GroupsAndUppercases(t *testing.T) {
	assert.Equal(t, "AB12 CD34", Format("ab12cd34"))
}

func TestFormat_TruncatesToEightSignificant(t *testing.T) {
	assert.Equal(t, "AB12 CD34", Format("ab12cd34ef56"))
	assert.LessOrEqual(t, len(Format("zzzzzzzzzzzzzzzz")), 9)
}

func TestFormat_StripsNonAlnum(t *testing.T) {
	assert.Equal(t, "AB12 CD34", Format("ab-12 cd_34"))
	assert.Equal(t, "AB1", Format("a.b.1"))
	assert.Equal(t, "", Format("--"))
}

func TestFormat_ExactlyFourHasNoTrailingSpace(t *testing.T) {
	assert.Equal(t, "AB12", Format("ab12"))
	assert.Equal(t, "AB12 C", Format("ab12c"))
}

func TestGenerate_UniqueAndWellFormed(t *testing.T) {
	codes, err := Generate(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)
	seen := map[string]bool{}
	for _, c := range codes {
		assert.Len(t, c, Length)
		assert.Equal(t, c, Normalize(c))
		assert.False(t, seen[c])
		seen[c] = true
	}
}

func TestHash_IgnoresDisplayFormatting(t *testing.T) {
	assert.Equal(t, Hash("AB12CD34"), Hash("ab12 cd34"))
	assert.NotEqual(t, Hash("AB12CD34"), Hash("AB12CD35"))
	assert.True(t, Valid("ab12-cd34"))
	assert.False(t, Valid("ab12"))
}

func TestHashAll_CollapsesEquivalentCodes(t *testing.T) {
	got := HashAll([]string{"AB12 CD34", "ab12cd34", "ZZ99 YY88"})
	assert.Equal(t, []string{Hash("AB12CD34"), Hash("ZZ99YY88")}, got)
}
