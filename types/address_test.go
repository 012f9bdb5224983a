package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testAddress() Address {
	var h Hash
	for i := range h {
		h[i] = byte(i)
	}
	return Address{Workchain: 0, Hash: h}
}

func TestParseAddress_Raw(t *testing.T) {
	addr := testAddress()

	parsed, err := ParseAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr, parsed)

	master, err := ParseAddress("-1:" + strings.Repeat("3", 64))
	require.NoError(t, err)
	require.Equal(t, int8(-1), master.Workchain)
}

func TestParseAddress_Friendly(t *testing.T) {
	addr := testAddress()

	for _, bounce := range []bool{true, false} {
		for _, test := range []bool{true, false} {
			friendly := addr.Friendly(bounce, test)
			require.Len(t, friendly, 48)

			parsed, err := ParseAddress(friendly)
			require.NoError(t, err)
			require.Equal(t, addr, parsed)
		}
	}
}

func TestParseAddress_FriendlyStdAlphabet(t *testing.T) {
	addr := Address{Workchain: -1, Hash: HashBytes([]byte("std alphabet"))}
	friendly := addr.Friendly(true, false)
	std := strings.NewReplacer("-", "+", "_", "/").Replace(friendly)

	parsed, err := ParseAddress(std)
	require.NoError(t, err)
	require.Equal(t, addr, parsed)
}

func TestParseAddress_Invalid(t *testing.T) {
	addr := testAddress()
	friendly := addr.Friendly(true, false)

	// Flip one character in the account id to break the checksum.
	corrupted := []byte(friendly)
	if corrupted[10] == 'A' {
		corrupted[10] = 'B'
	} else {
		corrupted[10] = 'A'
	}

	cases := map[string]string{
		"empty":          "",
		"garbage":        "hello",
		"bad workchain":  "x:" + strings.Repeat("0", 64),
		"big workchain":  "300:" + strings.Repeat("0", 64),
		"short hash":     "0:abcd",
		"non-hex hash":   "0:" + strings.Repeat("g", 64),
		"bad checksum":   string(corrupted),
		"wrong length":   friendly[:47],
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAddress(input)
			require.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestAddress_TextRoundTrip(t *testing.T) {
	addr := testAddress()
	text, err := addr.MarshalText()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.UnmarshalText(text))
	require.Equal(t, addr, decoded)
	require.Len(t, addr.Key(), 33)
}
