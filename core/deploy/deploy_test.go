package deploy

import (
	"testing"

	"github.com/drip/core/account"
	"github.com/drip/core/address"
	"github.com/drip/core/common"
	"github.com/drip/core/event"
	"github.com/drip/core/state"
	"github.com/drip/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deployer = address.HexToAddress("0xde")

func TestDeploy_Fresh(t *testing.T) {
	rec := &event.Recorder{}
	db := state.New(storage.NewMemStore(), rec)

	d, err := Deploy(db, deployer, DefaultParams())
	require.NoError(t, err)
	assert.False(t, d.Reloaded)

	tokenAddr, faucetAddr := Addresses(deployer)
	assert.Equal(t, tokenAddr, d.Token.Address())
	assert.Equal(t, faucetAddr, d.Faucet.Address())
	assert.Equal(t, tokenAddr, d.Faucet.Token())
	assert.Equal(t, "Drip Token", d.Token.Name())
	assert.Equal(t, "DRIP", d.Token.Symbol())
	assert.True(t, d.Token.MaxSupply().Eq(common.Tokens(1_000_000)))

	minter, err := d.Token.Minter()
	require.NoError(t, err)
	assert.Equal(t, faucetAddr, minter)

	for _, owner := range []func() (address.Address, error){d.Token.Owner, d.Faucet.Owner} {
		o, err := owner()
		require.NoError(t, err)
		assert.Equal(t, deployer, o)
	}

	assert.Equal(t, []string{
		event.NameOwnershipTransferred,
		event.NameOwnershipTransferred,
		event.NameMinterChanged,
	}, rec.Names())

	_, err = d.Faucet.RequestTokens(address.HexToAddress("0xa1"), 1_700_000_000)
	require.NoError(t, err)
}

func TestDeploy_Reload(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.OpenPogreb(dir)
	require.NoError(t, err)
	db := state.New(store, nil)

	d, err := Deploy(db, deployer, DefaultParams())
	require.NoError(t, err)
	user := address.HexToAddress("0xa1")
	_, err = d.Faucet.RequestTokens(user, 1_700_000_000)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err = storage.OpenPogreb(dir)
	require.NoError(t, err)
	db = state.New(store, nil)
	defer db.Close()

	changed := DefaultParams()
	changed.Faucet.CooldownTime = 60
	again, err := Deploy(db, deployer, changed)
	require.NoError(t, err)
	assert.True(t, again.Reloaded)
	assert.Equal(t, d.Token.Address(), again.Token.Address())
	assert.Equal(t, uint64(86400), again.Faucet.CooldownTime(), "stored params win")

	bal, err := again.Token.BalanceOf(user)
	require.NoError(t, err)
	assert.True(t, bal.Eq(common.Tokens(100)))
	last, err := again.Faucet.LastClaimAt(user)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_700_000_000), last)
}

func TestDeploy_ReloadMissingOwner(t *testing.T) {
	for _, ns := range []string{storage.NsToken, storage.NsFaucet} {
		t.Run(ns, func(t *testing.T) {
			store := storage.NewMemStore()
			_, err := Deploy(state.New(store, nil), deployer, DefaultParams())
			require.NoError(t, err)
			require.NoError(t, store.Delete(storage.Key(ns, storage.FieldOwner)))

			_, err = Deploy(state.New(store, nil), deployer, DefaultParams())
			assert.ErrorIs(t, err, account.ErrCorruptRecord)
		})
	}
}

func TestDeploy_Invalid(t *testing.T) {
	db := state.New(storage.NewMemStore(), nil)
	_, err := Deploy(db, address.Zero, DefaultParams())
	assert.ErrorIs(t, err, ErrInvalidParams)

	p := DefaultParams()
	p.Faucet.MaxClaimAmount = common.Tokens(1)
	_, err = Deploy(db, deployer, p)
	assert.ErrorIs(t, err, ErrInvalidParams)

	p = DefaultParams()
	p.Token.Symbol = ""
	_, err = Deploy(db, deployer, p)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestAddresses_Distinct(t *testing.T) {
	tok, fct := Addresses(deployer)
	assert.NotEqual(t, tok, fct)
	other, _ := Addresses(address.HexToAddress("0xdf"))
	assert.NotEqual(t, tok, other)
}
