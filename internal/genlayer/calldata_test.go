package genlayer

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCalldataKnownValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"null", nil, "00"},
		{"false", false, "08"},
		{"true", true, "10"},
		{"small int", 5, "29"},
		{"minus one", -1, "02"},
		{"multi byte int", int64(300), "e112"},
		{"string", "hi", "146869"},
		{"bytes", []byte{0xab}, "0bab"},
		{"empty array", []any{}, "05"},
		{"method call", MethodCall("get_stats", nil), "0e066d6574686f644c6765745f7374617473"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeCalldata(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(got))
		})
	}
}

func TestMethodCallOmitsEmptyArgs(t *testing.T) {
	assert.NotContains(t, MethodCall("get_stats", nil), "args")
	assert.Equal(t, []any{"please"}, MethodCall("claim_treasure", []any{"please"})["args"])
}

func TestCalldataRoundTrip(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	value := map[string]any{
		"method": "claim_treasure",
		"args":   []any{"Oh mighty Drakarion", int64(-42), huge, true, nil, addr, []byte{1, 2, 3}},
		"nested": map[string]any{"b": int64(2), "a": int64(1)},
	}

	encoded, err := EncodeCalldata(value)
	require.NoError(t, err)

	decoded, err := DecodeCalldata(encoded)
	require.NoError(t, err)

	m, ok := decoded.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "claim_treasure", m["method"])
	assert.Equal(t, map[string]any{"a": int64(1), "b": int64(2)}, m["nested"])

	args := m["args"].([]any)
	require.Len(t, args, 7)
	assert.Equal(t, "Oh mighty Drakarion", args[0])
	assert.Equal(t, int64(-42), args[1])
	assert.Equal(t, 0, huge.Cmp(args[2].(*big.Int)))
	assert.Equal(t, true, args[3])
	assert.Nil(t, args[4])
	assert.Equal(t, addr, args[5])
	assert.Equal(t, []byte{1, 2, 3}, args[6])
}

func TestEncodeMapKeysAreSorted(t *testing.T) {
	a, err := EncodeCalldata(map[string]any{"b": int64(1), "a": int64(2)})
	require.NoError(t, err)
	b, err := EncodeCalldata(map[string]any{"a": int64(2), "b": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	// count 2, "a" -> 2, "b" -> 1
	assert.Equal(t, "16016111016209", hex.EncodeToString(a))
}

func TestDecodeCalldataRejectsMalformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":             {},
		"truncated uleb":    {0x80},
		"string too long":   {0x2c, 'a'},  // len 5 string with one byte
		"trailing bytes":    {0x00, 0x00}, // null followed by garbage
		"unknown special":   {0x20},       // special value 4
		"unknown type tag":  {0x07},
		"array count large": {0xfd, 0x7f},
		"invalid utf8":      {0x0c, 0xff},
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCalldata(data)
			assert.ErrorIs(t, err, ErrMalformedCalldata)
		})
	}
}

func TestEncodeCalldataUnsupportedType(t *testing.T) {
	_, err := EncodeCalldata(3.14)
	assert.Error(t, err)
}
