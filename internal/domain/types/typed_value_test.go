package types_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dropDatabas3/weasl/internal/domain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValueType(t *testing.T) {
	for in, want := range map[string]types.ValueType{
		"":        types.TypeString,
		"string":  types.TypeString,
		"NUMBER":  types.TypeNumber,
		"json":    types.TypeJSON,
		"Boolean": types.TypeBoolean,
	} {
		got, err := types.ParseValueType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := types.ParseValueType("__import__('os')")
	assert.True(t, errors.Is(err, types.ErrInvalidPropertyType))
}

func TestEncodeDecode(t *testing.T) {
	cases := []struct {
		typ  types.ValueType
		in   any
		want any
	}{
		{types.TypeString, "hello", "hello"},
		{types.TypeNumber, 42.0, 42.0},
		{types.TypeNumber, "3.5", 3.5},
		{types.TypeBoolean, true, true},
		{types.TypeBoolean, "false", false},
		{types.TypeJSON, map[string]any{"a": 1.0}, map[string]any{"a": 1.0}},
		{types.TypeJSON, `[1,2]`, []any{1.0, 2.0}},
	}
	for _, c := range cases {
		v, err := types.Encode(c.typ, c.in)
		require.NoError(t, err)
		got, err := v.Decode()
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestEncodeRejectsMismatch(t *testing.T) {
	_, err := types.Encode(types.TypeNumber, "abc")
	assert.ErrorIs(t, err, types.ErrInvalidPropertyType)

	_, err = types.Encode(types.TypeBoolean, 12.0)
	assert.ErrorIs(t, err, types.ErrInvalidPropertyType)

	_, err = types.Encode(types.TypeJSON, "{not json")
	assert.ErrorIs(t, err, types.ErrInvalidPropertyType)

	_, err = types.Encode("DATE", "2020-01-01")
	assert.ErrorIs(t, err, types.ErrInvalidPropertyType)
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := types.TypedValue{Type: "int", Raw: "1"}.Decode()
	assert.ErrorIs(t, err, types.ErrInvalidPropertyType)
}

func TestMarshalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]types.TypedValue{
		"n": types.Number(7),
		"b": types.Bool(true),
		"s": types.String("x"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":7,"b":true,"s":"x"}`, string(b))
}
