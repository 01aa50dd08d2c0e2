package common

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrEmptyString   = errors.New("empty hex string")
	ErrMissingPrefix = errors.New("hex string without 0x prefix")
	ErrOddLength     = errors.New("hex string of odd length")
	ErrSyntax        = errors.New("invalid hex string")
)

// Has0xPrefix reports whether s begins with "0x" or "0X".
func Has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func FromHex(s string) []byte {
	if Has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return Hex2Bytes(s)
}

// Hex2Bytes returns the bytes represented by the hexadecimal string str.
// Malformed input yields nil.
func Hex2Bytes(str string) []byte {
	h, _ := hex.DecodeString(str)
	return h
}

// Bytes marshals as a 0x-prefixed hex string.
type Bytes []byte

func (b Bytes) MarshalText() ([]byte, error) {
	result := make([]byte, len(b)*2+2)
	copy(result, `0x`)
	hex.Encode(result[2:], b)
	return result, nil
}

// UnmarshalFixedText decodes a 0x-prefixed hex string of exactly len(out) bytes.
func UnmarshalFixedText(typname string, input, out []byte) error {
	raw, err := checkText(input)
	if err != nil {
		return fmt.Errorf("%s: %w", typname, err)
	}
	if len(raw)/2 != len(out) {
		return fmt.Errorf("hex string has length %d, want %d for %s", len(raw), len(out)*2, typname)
	}
	if _, err := hex.Decode(out, raw); err != nil {
		return fmt.Errorf("%s: %w", typname, ErrSyntax)
	}
	return nil
}

// UnmarshalFixedJSON decodes a quoted 0x-prefixed hex string of exactly len(out) bytes.
func UnmarshalFixedJSON(typ reflect.Type, input, out []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return &json.UnmarshalTypeError{Value: "non-string", Type: typ}
	}
	return UnmarshalFixedText(typ.String(), []byte(s), out)
}

func checkText(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, ErrEmptyString
	}
	if !Has0xPrefix(string(input)) {
		return nil, ErrMissingPrefix
	}
	input = input[2:]
	if len(input)%2 != 0 {
		return nil, ErrOddLength
	}
	return input, nil
}
