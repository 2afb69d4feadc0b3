package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeE164(t *testing.T) {
	assert.Equal(t, "+12015550123", NormalizeE164(" (201) 555-0123 ", "US"))
	assert.Equal(t, "+12015550123", NormalizeE164("+1 201 555 0123", ""))
	assert.Equal(t, "not a phone", NormalizeE164("not a phone", "US"))
	assert.Equal(t, "", NormalizeE164("   ", "US"))
}

func TestLookupHashIsKeyedAndStable(t *testing.T) {
	a, err := LookupHash([]byte("key-one"), "+12015550123")
	require.NoError(t, err)
	b, err := LookupHash([]byte("key-one"), "+12015550123")
	require.NoError(t, err)
	c, err := LookupHash([]byte("key-two"), "+12015550123")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)

	empty, err := LookupHash([]byte("key-one"), "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
