package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSortsKeys(t *testing.T) {
	type payload struct {
		B int `json:"b"`
		A int `json:"a"`
	}
	out, err := JSON(payload{B: 2, A: 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(out))
}

func TestJSONIsOrderIndependentOnMaps(t *testing.T) {
	m1 := map[string]int{"z": 1, "a": 2}
	m2 := map[string]int{"a": 2, "z": 1}
	out1, err := JSON(m1)
	require.NoError(t, err)
	out2, err := JSON(m2)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestHashIsDeterministic(t *testing.T) {
	v := map[string]interface{}{"caps": []string{"fs.read", "fs.write"}, "aud": "kiwi-mcp"}
	h1, err := Hash(v)
	require.NoError(t, err)
	h2, err := Hash(v)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}
