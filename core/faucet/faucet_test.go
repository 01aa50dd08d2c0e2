package faucet

import (
	"errors"
	"fmt"
	"testing"

	"github.com/drip/core/access"
	"github.com/drip/core/account"
	"github.com/drip/core/address"
	"github.com/drip/core/common"
	"github.com/drip/core/event"
	"github.com/drip/core/state"
	"github.com/drip/core/storage"
	"github.com/drip/core/token"
	"github.com/drip/internal/metrics"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t0 uint64 = 1_700_000_000

var (
	owner     = address.HexToAddress("0x0a")
	alice     = address.HexToAddress("0xa1")
	bob       = address.HexToAddress("0xb0")
	tokenAddr = address.HexToAddress("0x70")
	fctAddr   = address.HexToAddress("0xfa")
)

type fixture struct {
	db     *state.DB
	token  *token.Ledger
	faucet *Controller
	rec    *event.Recorder
}

func deploy(t *testing.T, maxSupply *uint256.Int, p Params) *fixture {
	t.Helper()
	rec := &event.Recorder{}
	db := state.New(storage.NewMemStore(), rec)
	f := &fixture{db: db, rec: rec}
	require.NoError(t, db.Update(func(txn *state.Txn) error {
		var err error
		f.token, err = token.Init(db, txn, tokenAddr, owner, token.Params{Name: "Drip Token", Symbol: "DRIP", MaxSupply: maxSupply})
		if err != nil {
			return err
		}
		f.faucet, err = Init(db, txn, fctAddr, owner, f.token, p)
		if err != nil {
			return err
		}
		return f.token.SetMinterTx(txn, owner, fctAddr)
	}))
	rec.Reset()
	return f
}

func newFixture(t *testing.T) *fixture {
	return deploy(t, common.Tokens(1_000_000), DefaultParams())
}

func (f *fixture) balance(t *testing.T, a address.Address) *uint256.Int {
	t.Helper()
	b, err := f.token.BalanceOf(a)
	require.NoError(t, err)
	return b
}

func (f *fixture) canClaim(t *testing.T, a address.Address, now uint64) bool {
	t.Helper()
	ok, err := f.faucet.CanClaim(a, now)
	require.NoError(t, err)
	return ok
}

func (f *fixture) remaining(t *testing.T, a address.Address) *uint256.Int {
	t.Helper()
	r, err := f.faucet.RemainingAllowance(a)
	require.NoError(t, err)
	return r
}

func TestDefaults(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.faucet.FaucetAmount().Eq(common.Tokens(100)))
	assert.Equal(t, uint64(86400), f.faucet.CooldownTime())
	assert.True(t, f.faucet.MaxClaimAmount().Eq(common.Tokens(1000)))
	assert.Equal(t, tokenAddr, f.faucet.Token())
	assert.Equal(t, fctAddr, f.faucet.Address())
	assert.True(t, f.faucet.Params().Equal(DefaultParams()))

	paused, err := f.faucet.IsPaused()
	require.NoError(t, err)
	assert.False(t, paused)

	o, err := f.faucet.Owner()
	require.NoError(t, err)
	assert.Equal(t, owner, o)
}

func TestFirstClaim(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)
	assert.Equal(t, alice, receipt.Caller)
	assert.True(t, receipt.Amount.Eq(common.Tokens(100)))
	assert.Equal(t, t0, receipt.Timestamp)

	assert.True(t, f.balance(t, alice).Eq(common.Tokens(100)))
	last, err := f.faucet.LastClaimAt(alice)
	require.NoError(t, err)
	assert.Equal(t, t0, last)

	assert.Equal(t, []string{event.NameTransfer, event.NameTokensClaimed}, f.rec.Names())
	claimed := f.rec.Events[1].(event.TokensClaimed)
	assert.Equal(t, alice, claimed.User)
	assert.Equal(t, t0, claimed.Timestamp)
	assert.True(t, claimed.Amount.Eq(common.Tokens(100)))
	mint := f.rec.Events[0].(event.Transfer)
	assert.Equal(t, address.Zero, mint.From)
	assert.Equal(t, alice, mint.To)
}

func TestFirstClaim_EarlyClock(t *testing.T) {
	f := newFixture(t)
	for _, now := range []uint64{0, 1, 86399} {
		a := address.BytesToAddress([]byte(fmt.Sprintf("early-%d", now)))
		_, err := f.faucet.RequestTokens(a, now)
		require.NoError(t, err, "first claim at %d", now)
	}
}

func TestImmediateRepeatFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)
	f.rec.Reset()

	_, err = f.faucet.RequestTokens(alice, t0+1)
	assert.ErrorIs(t, err, ErrCooldownNotElapsed)
	assert.ErrorIs(t, err, ErrClaimUnavailable)
	assert.NotErrorIs(t, err, ErrLifetimeLimitReached)
	assert.True(t, f.balance(t, alice).Eq(common.Tokens(100)))
	assert.Empty(t, f.rec.Events)

	_, err = f.faucet.RequestTokens(alice, t0+86399)
	assert.ErrorIs(t, err, ErrCooldownNotElapsed)
}

func TestClaimAfterCooldown(t *testing.T) {
	f := newFixture(t)
	_, err := f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)

	_, err = f.faucet.RequestTokens(alice, t0+86400+1)
	require.NoError(t, err)
	assert.True(t, f.balance(t, alice).Eq(common.Tokens(200)))
}

func TestClaimExactlyAtCooldownEnd(t *testing.T) {
	f := newFixture(t)
	_, err := f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)
	_, err = f.faucet.RequestTokens(alice, t0+86400)
	require.NoError(t, err)
}

func TestLifetimeCap(t *testing.T) {
	f := newFixture(t)
	now := t0
	for i := 0; i < 10; i++ {
		_, err := f.faucet.RequestTokens(alice, now)
		require.NoError(t, err, "claim %d", i+1)
		now += 86400 + 1
	}
	assert.True(t, f.balance(t, alice).Eq(common.Tokens(1000)))
	assert.True(t, f.remaining(t, alice).IsZero())
	assert.False(t, f.canClaim(t, alice, now))

	for _, later := range []uint64{now, now + 10*86400, ^uint64(0)} {
		_, err := f.faucet.RequestTokens(alice, later)
		assert.ErrorIs(t, err, ErrLifetimeLimitReached, "at %d", later)
		assert.NotErrorIs(t, err, ErrCooldownNotElapsed)
		assert.ErrorIs(t, err, ErrClaimUnavailable)
	}
	total, err := f.faucet.TotalClaimed(alice)
	require.NoError(t, err)
	assert.True(t, total.Eq(f.faucet.MaxClaimAmount()))
}

func TestRemainingAllowanceDecreases(t *testing.T) {
	f := newFixture(t)
	prev := f.remaining(t, alice)
	assert.True(t, prev.Eq(common.Tokens(1000)))

	now := t0
	for i := 0; i < 10; i++ {
		_, err := f.faucet.RequestTokens(alice, now)
		require.NoError(t, err)
		cur := f.remaining(t, alice)
		want := new(uint256.Int).Sub(prev, common.Tokens(100))
		assert.True(t, cur.Eq(want), "claim %d: remaining %s, want %s", i+1, cur.Dec(), want.Dec())
		prev = cur
		now += 86400
	}
	assert.True(t, prev.IsZero())
}

func TestPause(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.faucet.SetPaused(owner, true))
	require.Len(t, f.rec.Events, 1)
	ev := f.rec.Events[0].(event.Paused)
	assert.True(t, ev.Paused)
	assert.Equal(t, owner, ev.By)
	f.rec.Reset()

	_, err := f.faucet.RequestTokens(alice, t0)
	assert.ErrorIs(t, err, ErrFaucetPaused)
	assert.NotErrorIs(t, err, ErrClaimUnavailable)
	assert.True(t, f.balance(t, alice).IsZero())
	assert.Empty(t, f.rec.Events)
	assert.False(t, f.canClaim(t, alice, t0))
	assert.False(t, f.canClaim(t, bob, ^uint64(0)), "paused wins regardless of cooldown and cap")

	require.NoError(t, f.faucet.SetPaused(owner, false))
	assert.True(t, f.canClaim(t, alice, t0))
	_, err = f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)
}

func TestPausePrecedesCooldown(t *testing.T) {
	f := newFixture(t)
	_, err := f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)
	require.NoError(t, f.faucet.SetPaused(owner, true))
	_, err = f.faucet.RequestTokens(alice, t0+1)
	assert.ErrorIs(t, err, ErrFaucetPaused)
}

func TestSetPaused_NonOwner(t *testing.T) {
	f := newFixture(t)
	err := f.faucet.SetPaused(alice, true)
	assert.ErrorIs(t, err, access.ErrUnauthorized)
	var ue *access.UnauthorizedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, alice, ue.Account)

	paused, err := f.faucet.IsPaused()
	require.NoError(t, err)
	assert.False(t, paused, "state unchanged")
	assert.Empty(t, f.rec.Events)
	assert.True(t, f.canClaim(t, alice, t0))
}

func TestCanClaim(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.canClaim(t, alice, t0))
	_, err := f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)
	assert.False(t, f.canClaim(t, alice, t0+1))
	assert.True(t, f.canClaim(t, alice, t0+86400))
}

func TestReadsDoNotMutate(t *testing.T) {
	f := newFixture(t)
	_, err := f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)
	f.rec.Reset()

	for i := 0; i < 5; i++ {
		assert.False(t, f.canClaim(t, alice, t0+1))
		assert.True(t, f.canClaim(t, bob, t0+1))
		assert.True(t, f.balance(t, alice).Eq(common.Tokens(100)))
		assert.True(t, f.balance(t, bob).IsZero())
		assert.True(t, f.remaining(t, alice).Eq(common.Tokens(900)))
		assert.True(t, f.remaining(t, bob).Eq(common.Tokens(1000)))
		_, err := f.faucet.Status(bob, t0)
		require.NoError(t, err)
	}
	last, err := f.faucet.LastClaimAt(bob)
	require.NoError(t, err)
	assert.Zero(t, last)
	assert.Empty(t, f.rec.Events)

	_, err = f.faucet.RequestTokens(bob, t0+1)
	require.NoError(t, err, "reads never consumed bob's first claim")
}

func TestSupplyCapPropagates(t *testing.T) {
	f := deploy(t, common.Tokens(250), DefaultParams())
	_, err := f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)
	_, err = f.faucet.RequestTokens(bob, t0)
	require.NoError(t, err)
	f.rec.Reset()

	carol := address.HexToAddress("0xca")
	_, err = f.faucet.RequestTokens(carol, t0)
	assert.ErrorIs(t, err, token.ErrSupplyCapExceeded)

	// the failed mint left no claim behind
	last, err := f.faucet.LastClaimAt(carol)
	require.NoError(t, err)
	assert.Zero(t, last)
	assert.True(t, f.remaining(t, carol).Eq(common.Tokens(1000)))
	assert.True(t, f.balance(t, carol).IsZero())
	assert.Empty(t, f.rec.Events)

	supply, err := f.token.TotalSupply()
	require.NoError(t, err)
	assert.True(t, supply.Eq(common.Tokens(200)))
}

func TestFaucetNotMinter(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.token.SetMinter(owner, address.Zero))

	_, err := f.faucet.RequestTokens(alice, t0)
	assert.ErrorIs(t, err, access.ErrUnauthorized)
	last, err := f.faucet.LastClaimAt(alice)
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestZeroAddressCaller(t *testing.T) {
	f := newFixture(t)
	_, err := f.faucet.RequestTokens(address.Zero, t0)
	assert.ErrorIs(t, err, token.ErrInvalidReceiver)
}

func TestInvariantsHoldAcrossManyClaims(t *testing.T) {
	f := deploy(t, common.Tokens(3000), DefaultParams())
	users := make([]address.Address, 6)
	for i := range users {
		users[i] = address.BytesToAddress([]byte{0xee, byte(i + 1)})
	}
	now := t0
	for round := 0; round < 12; round++ {
		for _, u := range users {
			_, _ = f.faucet.RequestTokens(u, now)
		}
		now += 86400

		sum := new(uint256.Int)
		for _, u := range users {
			total, err := f.faucet.TotalClaimed(u)
			require.NoError(t, err)
			assert.False(t, total.Gt(f.faucet.MaxClaimAmount()))
			sum.Add(sum, f.balance(t, u))
		}
		supply, err := f.token.TotalSupply()
		require.NoError(t, err)
		assert.True(t, sum.Eq(supply))
		assert.False(t, supply.Gt(f.token.MaxSupply()))
	}
}

func TestCooldownViews(t *testing.T) {
	f := newFixture(t)
	next, err := f.faucet.NextClaimAt(alice)
	require.NoError(t, err)
	assert.Zero(t, next)

	_, err = f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)

	next, err = f.faucet.NextClaimAt(alice)
	require.NoError(t, err)
	assert.Equal(t, t0+86400, next)

	rem, err := f.faucet.CooldownRemaining(alice, t0+400)
	require.NoError(t, err)
	assert.Equal(t, uint64(86000), rem)

	rem, err = f.faucet.CooldownRemaining(alice, t0+90000)
	require.NoError(t, err)
	assert.Zero(t, rem)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.faucet.RequestTokens(alice, t0)
	require.NoError(t, err)

	st, err := f.faucet.Status(alice, t0+100)
	require.NoError(t, err)
	assert.Equal(t, alice, st.Address)
	assert.True(t, st.Balance.Eq(common.Tokens(100)))
	assert.True(t, st.TotalClaimed.Eq(common.Tokens(100)))
	assert.True(t, st.RemainingAllowance.Eq(common.Tokens(900)))
	assert.False(t, st.CanClaim)
	assert.Equal(t, t0, st.LastClaimAt)
	assert.Equal(t, t0+86400, st.NextClaimAt)
	assert.Equal(t, uint64(86300), st.CooldownRemaining)
	assert.False(t, st.Paused)

	require.NoError(t, f.faucet.SetPaused(owner, true))
	st, err = f.faucet.Status(bob, t0)
	require.NoError(t, err)
	assert.True(t, st.Paused)
	assert.False(t, st.CanClaim)
}

func TestCooldownOverflow(t *testing.T) {
	p := DefaultParams()
	p.CooldownTime = ^uint64(0)
	f := deploy(t, common.Tokens(1_000_000), p)
	_, err := f.faucet.RequestTokens(alice, 5)
	require.NoError(t, err)
	_, err = f.faucet.RequestTokens(alice, ^uint64(0))
	assert.ErrorIs(t, err, ErrCooldownNotElapsed)
}

func TestClaimTotalOverflow(t *testing.T) {
	ceiling := new(uint256.Int).SetAllOne()
	p := DefaultParams()
	p.MaxClaimAmount = ceiling
	f := deploy(t, ceiling, p)

	nearMax := account.Claim{LastClaimAt: t0}
	nearMax.TotalClaimed.SubUint64(ceiling, 1)
	require.NoError(t, f.db.Update(func(txn *state.Txn) error {
		txn.Put(claimKey(alice), nearMax.Bytes())
		return nil
	}))

	now := t0 + 86400
	_, err := f.faucet.RequestTokens(alice, now)
	assert.ErrorIs(t, err, common.ErrArithmeticOverflow)
	assert.NotErrorIs(t, err, ErrLifetimeLimitReached)
	assert.Equal(t, metrics.ReasonOther, RejectReason(err))

	_, err = f.faucet.CanClaim(alice, now)
	assert.ErrorIs(t, err, common.ErrArithmeticOverflow)
	assert.True(t, f.balance(t, alice).IsZero())
	assert.Empty(t, f.rec.Events)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.faucet.TransferOwnership(alice, alice), access.ErrUnauthorized)
	require.NoError(t, f.faucet.TransferOwnership(owner, alice))
	assert.ErrorIs(t, f.faucet.SetPaused(owner, true), access.ErrUnauthorized)
	require.NoError(t, f.faucet.SetPaused(alice, true))
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.faucet.SetPaused(owner, true))

	tok, err := token.Load(f.db)
	require.NoError(t, err)
	c, err := Load(f.db, tok)
	require.NoError(t, err)
	assert.Equal(t, fctAddr, c.Address())
	assert.True(t, c.Params().Equal(DefaultParams()))
	paused, err := c.IsPaused()
	require.NoError(t, err)
	assert.True(t, paused)

	other := deploy(t, common.Tokens(10), DefaultParams())
	_, err = Load(other.db, f.token)
	assert.NoError(t, err, "same token address")

	_, err = Load(state.New(storage.NewMemStore(), nil), tok)
	assert.ErrorIs(t, err, ErrNotDeployed)
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.ErrorIs(t, Params{MaxClaimAmount: common.Tokens(1)}.Validate(), ErrInvalidParams)
	assert.ErrorIs(t, Params{FaucetAmount: common.Tokens(2), MaxClaimAmount: common.Tokens(1)}.Validate(), ErrInvalidParams)
}

func TestRejectReason(t *testing.T) {
	assert.Equal(t, "paused", RejectReason(ErrFaucetPaused))
	assert.Equal(t, "cooldown", RejectReason(fmt.Errorf("x: %w", ErrCooldownNotElapsed)))
	assert.Equal(t, "lifetime_cap", RejectReason(ErrLifetimeLimitReached))
	assert.Equal(t, "supply_cap", RejectReason(token.ErrSupplyCapExceeded))
	assert.Equal(t, "unauthorized", RejectReason(access.Unauthorized(alice, access.RoleMinter)))
	assert.Equal(t, "other", RejectReason(errors.New("disk")))
}
