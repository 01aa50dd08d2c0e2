package address

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/drip/core/common"
	"golang.org/x/crypto/blake2b"
)

const (
	AddressLength = 32
)

var (
	ErrInvalidHex  = errors.New("invalid hex address")
	ErrBadChecksum = errors.New("bad address checksum")
)

type Address [AddressLength]byte

var (
	addressT = reflect.TypeOf(Address{})

	// Zero is the address of nobody: the mint source in Transfer events and
	// the value of an unset role.
	Zero = Address{}
)

func HexToAddress(s string) Address { return BytesToAddress(common.FromHex(s)) }

func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// ParseHex is the strict form of HexToAddress used for untrusted input.
// It requires the 0x prefix and all 64 hex digits. Mixed-case input must
// carry a valid checksum as produced by Hex.
func ParseHex(s string) (Address, error) {
	if !common.Has0xPrefix(s) || len(s) != 2+2*AddressLength || !isHex(s[2:]) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	a := HexToAddress(s)
	if isMixedCase(s[2:]) && a.Hex() != s {
		return Address{}, fmt.Errorf("%w: %q", ErrBadChecksum, s)
	}
	return a, nil
}

// FromPublicKey is the blake2b-256 hash of an encoded public key.
func FromPublicKey(pub []byte) Address {
	sum := blake2b.Sum256(pub)
	return BytesToAddress(sum[:])
}

// Derive computes a deterministic address for a component created by
// deployer under the given label.
func Derive(deployer Address, label string) Address {
	h, _ := blake2b.New256(nil)
	h.Write(deployer[:])
	h.Write([]byte(label))
	return BytesToAddress(h.Sum(nil))
}

func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

func (a Address) Bytes() []byte {
	dst := make([]byte, AddressLength)
	copy(dst, a[:])
	return dst
}

func (a *Address) checksumHex() []byte {
	buf := a.hex()

	sum := blake2b.Sum256(buf[2:])
	for i := 2; i < len(buf); i++ {
		hashByte := sum[((i-2)/2)%len(sum)]
		if i%2 == 0 {
			hashByte = hashByte >> 4
		} else {
			hashByte &= 0xf
		}
		if buf[i] > '9' && hashByte > 7 {
			buf[i] -= 32
		}
	}
	return buf[:]
}

func (a Address) IsZero() bool {
	return a == Zero
}

// Hex returns the checksummed hex string representation of the address.
func (a Address) Hex() string {
	return string(a.checksumHex())
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}

func (a Address) hex() []byte {
	var buf [len(a)*2 + 2]byte
	copy(buf[:2], "0x")
	hex.Encode(buf[2:], a[:])
	return buf[:]
}

// MarshalText encodes the address as plain 0x hex.
func (a Address) MarshalText() ([]byte, error) {
	return common.Bytes(a[:]).MarshalText()
}

// UnmarshalText parses an address in hex syntax.
func (a *Address) UnmarshalText(input []byte) error {
	return common.UnmarshalFixedText("Address", input, a[:])
}

// UnmarshalJSON parses an address in hex syntax.
func (a *Address) UnmarshalJSON(input []byte) error {
	return common.UnmarshalFixedJSON(addressT, input, a[:])
}

// Format implements fmt.Formatter.
// Address supports the %v, %s, %q, %x and %X format verbs.
func (a Address) Format(s fmt.State, c rune) {
	switch c {
	case 'v', 's':
		s.Write(a.checksumHex())
	case 'q':
		q := []byte{'"'}
		s.Write(q)
		s.Write(a.checksumHex())
		s.Write(q)
	case 'x', 'X':
		// %x disables the checksum.
		hex := a.hex()
		if !s.Flag('#') {
			hex = hex[2:]
		}
		if c == 'X' {
			hex = bytes.ToUpper(hex)
		}
		s.Write(hex)
	default:
		fmt.Fprintf(s, "%%!%c(address=%x)", c, a[:])
	}
}

func IsHexAddress(s string) bool {
	if common.Has0xPrefix(s) {
		s = s[2:]
	}
	return len(s) == 2*AddressLength && isHex(s)
}

func isHex(str string) bool {
	if len(str)%2 != 0 {
		return false
	}
	for _, c := range []byte(str) {
		if !isHexCharacter(c) {
			return false
		}
	}
	return true
}

func isMixedCase(str string) bool {
	return strings.ToLower(str) != str && strings.ToUpper(str) != str
}

func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
