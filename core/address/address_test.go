package address

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexToAddress(t *testing.T) {
	tests := []struct {
		name     string
		hex      string
		expected string
	}{
		{"valid with 0x", "0x0000000000000000000000000000000000000000000000000000000000000001", "0x0000000000000000000000000000000000000000000000000000000000000001"},
		{"valid without 0x", "0000000000000000000000000000000000000000000000000000000000000001", "0x0000000000000000000000000000000000000000000000000000000000000001"},
		{"empty", "0x", "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{"short hex", "0x01", "0x0000000000000000000000000000000000000000000000000000000000000001"},
		{"odd length", "0x123", "0x0000000000000000000000000000000000000000000000000000000000000123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := HexToAddress(tt.hex)
			got := fmt.Sprintf("%#x", addr)
			if got != tt.expected {
				t.Errorf("HexToAddress(%q) = %q, want %q", tt.hex, got, tt.expected)
			}
		})
	}
}

func TestBytesToAddress(t *testing.T) {
	addr := BytesToAddress([]byte{0x01, 0x02, 0x03})
	b := addr.Bytes()
	if len(b) != AddressLength {
		t.Fatalf("Bytes() len = %d, want %d", len(b), AddressLength)
	}
	// right-aligned
	if b[31] != 0x03 || b[30] != 0x02 || b[29] != 0x01 {
		t.Errorf("Bytes() = %x, expected ...010203", b)
	}

	long := make([]byte, 40)
	long[39] = 0xaa
	addr = BytesToAddress(long)
	assert.Equal(t, byte(0xaa), addr[31], "long input keeps the last 32 bytes")
}

func TestParseHex(t *testing.T) {
	full := "0x" + strings.Repeat("ab", 32)
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"full", full, nil},
		{"upper", "0x" + strings.Repeat("AB", 32), nil},
		{"short", "0xa1", ErrInvalidHex},
		{"ethereum length", "0x" + strings.Repeat("cd", 20), ErrInvalidHex},
		{"no prefix", strings.Repeat("ab", 32), ErrInvalidHex},
		{"prefix only", "0x", ErrInvalidHex},
		{"too long", "0x" + strings.Repeat("ab", 33), ErrInvalidHex},
		{"not hex", "0x" + strings.Repeat("zz", 32), ErrInvalidHex},
		{"odd", full[:len(full)-1], ErrInvalidHex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseHex(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, HexToAddress(tt.in), a)
		})
	}
}

func TestParseHex_Checksum(t *testing.T) {
	addr := HexToAddress("0x" + strings.Repeat("af", 32))
	sum := addr.Hex()

	got, err := ParseHex(sum)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	swapped := "0x" + strings.Map(func(r rune) rune {
		if unicode.IsUpper(r) {
			return unicode.ToLower(r)
		}
		return unicode.ToUpper(r)
	}, sum[2:])
	_, err = ParseHex(swapped)
	assert.ErrorIs(t, err, ErrBadChecksum)
}

func TestZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.True(t, HexToAddress("0x").IsZero())
	assert.False(t, HexToAddress("0x01").IsZero())
}

func TestDerive(t *testing.T) {
	deployer := HexToAddress("0x0a")
	a := Derive(deployer, "faucet")
	b := Derive(deployer, "faucet")
	c := Derive(deployer, "token")
	d := Derive(HexToAddress("0x0b"), "faucet")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.False(t, a.IsZero())
}

func TestAddress_HexChecksum(t *testing.T) {
	addr := HexToAddress("0x" + strings.Repeat("af", 32))
	h := addr.Hex()
	require.Len(t, h, 2+AddressLength*2)
	assert.Equal(t, "0x", h[:2])
	assert.Equal(t, strings.ToLower(h), fmt.Sprintf("%#x", addr))
	assert.Equal(t, h, addr.String())

	// the checksum round-trips through the hex parser
	assert.Equal(t, addr, HexToAddress(h))
}

func TestAddress_Format(t *testing.T) {
	addr := HexToAddress("0xff")
	assert.Equal(t, addr.Hex(), fmt.Sprintf("%v", addr))
	assert.Equal(t, addr.Hex(), fmt.Sprintf("%s", addr))
	assert.Equal(t, `"`+addr.Hex()+`"`, fmt.Sprintf("%q", addr))
	assert.Equal(t, strings.Repeat("0", 62)+"ff", fmt.Sprintf("%x", addr))
	assert.Equal(t, strings.Repeat("0", 62)+"FF", fmt.Sprintf("%X", addr))
}

func TestAddress_JSON(t *testing.T) {
	addr := HexToAddress("0x" + strings.Repeat("12", 32))
	data, err := json.Marshal(addr)
	require.NoError(t, err)
	assert.Equal(t, `"0x`+strings.Repeat("12", 32)+`"`, string(data))

	var decoded Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, addr, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"0x1234"`), &decoded), "short hex is rejected")
	assert.Error(t, json.Unmarshal([]byte(`12`), &decoded), "non-string is rejected")
}

func TestIsHexAddress(t *testing.T) {
	assert.True(t, IsHexAddress("0x"+strings.Repeat("00", 32)))
	assert.True(t, IsHexAddress(strings.Repeat("0A", 32)))
	assert.False(t, IsHexAddress("0x00"))
	assert.False(t, IsHexAddress("0x"+strings.Repeat("g0", 32)))
}

func TestFromPublicKey(t *testing.T) {
	pub := []byte{0x02, 0x01}
	a := FromPublicKey(pub)
	assert.Equal(t, a, FromPublicKey(pub))
	assert.NotEqual(t, a, FromPublicKey([]byte{0x03, 0x01}))
	assert.False(t, a.IsZero())
}
