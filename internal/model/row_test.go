package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_UnmarshalPreservesOrder(t *testing.T) {
	t.Parallel()

	var row Row
	err := json.Unmarshal([]byte(`{"zeta":"C1","alpha":2,"mid":"3.5"}`), &row)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, row.Keys())
	first, ok := row.FirstKey()
	require.True(t, ok)
	assert.Equal(t, "zeta", first)

	f, ok := row.Float("mid")
	require.True(t, ok)
	assert.InDelta(t, 3.5, f, 1e-9)
}

func TestRow_UnmarshalKeepsWideIntegers(t *testing.T) {
	t.Parallel()

	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{"clientKey":12345678901234567,"drop_pct":42.60,"whole":1001.0}`), &row))

	id, ok := row.String("clientKey")
	require.True(t, ok)
	assert.Equal(t, "12345678901234567", id)

	whole, ok := row.String("whole")
	require.True(t, ok)
	assert.Equal(t, "1001", whole)

	f, ok := row.Float("drop_pct")
	require.True(t, ok)
	assert.InDelta(t, 42.6, f, 1e-9)

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"clientKey":12345678901234567`)
}

func TestRow_UnmarshalRejectsNonObject(t *testing.T) {
	t.Parallel()

	var row Row
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &row))
}

func TestRow_MarshalKeepsOrder(t *testing.T) {
	t.Parallel()

	row := NewRow(Field{"b", 1}, Field{"a", "x"}, Field{"b", 2})
	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2,"a":"x"}`, string(out))
	assert.Equal(t, `{"b":2,"a":"x"}`, string(out))
}

func TestRow_String(t *testing.T) {
	t.Parallel()

	row := NewRow(
		Field{"id", float64(1001)},
		Field{"name", "Acme"},
		Field{"ratio", 0.25},
		Field{"flag", true},
		Field{"none", nil},
	)

	got, ok := row.String("id")
	require.True(t, ok)
	assert.Equal(t, "1001", got)

	got, _ = row.String("ratio")
	assert.Equal(t, "0.25", got)
	got, _ = row.String("flag")
	assert.Equal(t, "true", got)

	_, ok = row.String("none")
	assert.False(t, ok)
	_, ok = row.String("missing")
	assert.False(t, ok)
}

func TestRow_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	row := NewRow(Field{"a", 1})
	cp := row.Clone()
	cp.Set("b", 2)

	assert.Equal(t, 1, row.Len())
	assert.Equal(t, 2, cp.Len())
}

func TestToFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(1.5), 1.5, true},
		{3, 3, true},
		{int64(4), 4, true},
		{" 12.25 ", 12.25, true},
		{json.Number("7"), 7, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9)
		}
	}
}
