package access

import (
	"errors"
	"testing"

	"github.com/drip/core/address"
	"github.com/drip/core/event"
	"github.com/drip/core/state"
	"github.com/drip/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = address.HexToAddress("0xa1")
	bob   = address.HexToAddress("0xb0")
)

func newOwnable(t *testing.T) (*state.DB, *Ownable, *event.Recorder) {
	t.Helper()
	rec := &event.Recorder{}
	db := state.New(storage.NewMemStore(), rec)
	o := NewOwnable(storage.NsFaucet, address.HexToAddress("0xfa"))
	require.NoError(t, db.Update(func(txn *state.Txn) error {
		return o.Init(txn, alice)
	}))
	return db, o, rec
}

func owner(t *testing.T, db *state.DB, o *Ownable) address.Address {
	t.Helper()
	var got address.Address
	require.NoError(t, db.View(func(r state.Reader) error {
		var err error
		got, err = o.Owner(r)
		return err
	}))
	return got
}

func TestInit(t *testing.T) {
	db, o, rec := newOwnable(t)
	assert.Equal(t, alice, owner(t, db, o))
	assert.Equal(t, []string{event.NameOwnershipTransferred}, rec.Names())

	err := db.Update(func(txn *state.Txn) error { return o.Init(txn, address.Zero) })
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestOnlyOwner(t *testing.T) {
	db, o, _ := newOwnable(t)
	require.NoError(t, db.View(func(r state.Reader) error {
		assert.NoError(t, o.OnlyOwner(r, alice))

		err := o.OnlyOwner(r, bob)
		assert.ErrorIs(t, err, ErrUnauthorized)
		var ue *UnauthorizedError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, bob, ue.Account)
		assert.Equal(t, RoleOwner, ue.Role)
		return nil
	}))
}

func TestOnlyOwner_Uninitialized(t *testing.T) {
	db := state.New(storage.NewMemStore(), nil)
	o := NewOwnable(storage.NsToken, address.Zero)
	require.NoError(t, db.View(func(r state.Reader) error {
		ok, err := o.Initialized(r)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, o.OnlyOwner(r, address.Zero), ErrUnauthorized, "zero owner authorizes nobody")
		return nil
	}))
}

func TestTransferOwnership(t *testing.T) {
	tests := []struct {
		name     string
		caller   address.Address
		newOwner address.Address
		wantErr  error
		want     address.Address
	}{
		{"owner transfers", alice, bob, nil, bob},
		{"non-owner rejected", bob, bob, ErrUnauthorized, alice},
		{"zero owner rejected", alice, address.Zero, ErrInvalidOwner, alice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, o, rec := newOwnable(t)
			rec.Reset()
			err := db.Update(func(txn *state.Txn) error {
				return o.TransferOwnership(txn, tt.caller, tt.newOwner)
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, rec.Events)
			} else {
				require.NoError(t, err)
				require.Len(t, rec.Events, 1)
				ev := rec.Events[0].(event.OwnershipTransferred)
				assert.Equal(t, alice, ev.Previous)
				assert.Equal(t, bob, ev.Owner)
			}
			assert.Equal(t, tt.want, owner(t, db, o))
		})
	}
}

func TestUnauthorizedError_Message(t *testing.T) {
	err := Unauthorized(bob, RoleMinter)
	assert.Contains(t, err.Error(), "is not the minter")
	assert.Contains(t, err.Error(), bob.Hex())
}
