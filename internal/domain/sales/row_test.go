package sales

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_KeepsInsertionOrder(t *testing.T) {
	r := RowOf("Fecha", "2024-03-05", "Total", "3.500,00", "Cliente", "Ana")
	r.Set("Total", "4000")

	assert.Equal(t, []string{"Fecha", "Total", "Cliente"}, r.Keys())
	v, ok := r.Get("Total")
	require.True(t, ok)
	assert.Equal(t, "4000", v)
	assert.Equal(t, 3, r.Len())
}

func TestRow_UnmarshalJSON(t *testing.T) {
	t.Run("preserves key order", func(t *testing.T) {
		var r Row
		err := json.Unmarshal([]byte(`{"zeta":1,"alpha":"x","mid":{"b":2,"a":1},"list":[1,"two"]}`), &r)
		require.NoError(t, err)

		assert.Equal(t, []string{"zeta", "alpha", "mid", "list"}, r.Keys())
		zeta, _ := r.Get("zeta")
		assert.Equal(t, float64(1), zeta)

		mid, _ := r.Get("mid")
		nested, ok := mid.(*Row)
		require.True(t, ok)
		assert.Equal(t, []string{"b", "a"}, nested.Keys())

		list, _ := r.Get("list")
		assert.Equal(t, []any{float64(1), "two"}, list)
	})

	t.Run("rejects arrays", func(t *testing.T) {
		var r Row
		assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &r))
	})

	t.Run("round trips through MarshalJSON", func(t *testing.T) {
		r := RowOf("b", "x", "a", 2.5, "c", nil)
		data, err := json.Marshal(r)
		require.NoError(t, err)
		assert.JSONEq(t, `{"b":"x","a":2.5,"c":null}`, string(data))
		assert.Equal(t, `{"b":"x","a":2.5,"c":null}`, string(data))
	})
}

func TestDecodeJSON(t *testing.T) {
	v, err := DecodeJSON([]byte(`[{"k2":1,"k1":2}]`))
	require.NoError(t, err)
	arr, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
	assert.Equal(t, []string{"k2", "k1"}, arr[0].(*Row).Keys())

	_, err = DecodeJSON([]byte(`{"a":1} trailing`))
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("Cerveza")
	assert.True(t, ok)
	assert.Equal(t, CategoryBeer, c)

	_, ok = ParseCategory("cerveza")
	assert.False(t, ok)
	assert.Len(t, Categories, 8)
}
