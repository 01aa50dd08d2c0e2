package account

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/holiman/uint256"
)

const (
	// AmountLength is the encoded size of a 256-bit amount.
	AmountLength = 32
	// ClaimLength is the encoded size of a claim record.
	ClaimLength = 8 + AmountLength
)

var ErrCorruptRecord = errors.New("corrupt record")

// Claim is the per-address faucet bookkeeping. The zero value is the record
// of an address that never claimed.
type Claim struct {
	LastClaimAt  uint64
	TotalClaimed uint256.Int
}

// HasClaimed reports whether the address completed at least one claim.
func (c *Claim) HasClaimed() bool {
	return !c.TotalClaimed.IsZero()
}

// Bytes encodes the claim as an 8 byte little-endian timestamp followed by
// the 32 byte big-endian total.
func (c *Claim) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(ClaimLength)
	binary.Write(&buf, binary.LittleEndian, c.LastClaimAt)
	total := c.TotalClaimed.Bytes32()
	buf.Write(total[:])
	return buf.Bytes()
}

// ClaimFromBytes decodes a claim record. Empty input is the zero claim.
func ClaimFromBytes(data []byte) (*Claim, error) {
	c := &Claim{}
	if len(data) == 0 {
		return c, nil
	}
	if len(data) != ClaimLength {
		return nil, fmt.Errorf("%w: claim of %d bytes", ErrCorruptRecord, len(data))
	}
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &c.LastClaimAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	total := make([]byte, AmountLength)
	if _, err := io.ReadFull(r, total); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	c.TotalClaimed.SetBytes32(total)
	return c, nil
}

// EncodeAmount returns the fixed 32 byte big-endian form of x.
func EncodeAmount(x *uint256.Int) []byte {
	b := x.Bytes32()
	return b[:]
}

// DecodeAmount is the inverse of EncodeAmount. A missing record decodes to zero.
func DecodeAmount(data []byte) (*uint256.Int, error) {
	if len(data) == 0 {
		return new(uint256.Int), nil
	}
	if len(data) != AmountLength {
		return nil, fmt.Errorf("%w: amount of %d bytes", ErrCorruptRecord, len(data))
	}
	return new(uint256.Int).SetBytes32(data), nil
}

// EncodeUint64 and DecodeUint64 store an account's last request nonce.
func EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func DecodeUint64(data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: uint64 of %d bytes", ErrCorruptRecord, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func DecodeBool(data []byte) bool {
	return len(data) == 1 && data[0] == 1
}
