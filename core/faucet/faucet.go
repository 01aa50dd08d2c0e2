package faucet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/drip/core/access"
	"github.com/drip/core/account"
	"github.com/drip/core/address"
	"github.com/drip/core/common"
	"github.com/drip/core/event"
	"github.com/drip/core/state"
	"github.com/drip/core/storage"
	"github.com/drip/core/token"
	"github.com/drip/internal/logger"
	"github.com/drip/internal/metrics"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// fctlogger is a function so that it resolves the logger configured by
// logger.Init even when the package is initialised first.
func fctlogger() *zap.SugaredLogger {
	return logger.Named("faucet")
}

// Default parameters.
const (
	DefaultFaucetTokens   = 100
	DefaultCooldownTime   = 86400
	DefaultMaxClaimTokens = 1000
)

var (
	// ErrClaimUnavailable is the legacy combined reason wrapped by both
	// cooldown and lifetime failures.
	ErrClaimUnavailable = errors.New("cooldown period not elapsed or limit reached")

	ErrFaucetPaused         = errors.New("faucet is paused")
	ErrCooldownNotElapsed   = fmt.Errorf("cooldown not elapsed: %w", ErrClaimUnavailable)
	ErrLifetimeLimitReached = fmt.Errorf("lifetime limit reached: %w", ErrClaimUnavailable)

	ErrNotDeployed     = errors.New("faucet not deployed")
	ErrAlreadyDeployed = errors.New("faucet already deployed")
	ErrInvalidParams   = errors.New("invalid faucet params")
	ErrTokenMismatch   = errors.New("faucet bound to a different token")
)

// Params are fixed at deployment.
type Params struct {
	FaucetAmount   *uint256.Int `json:"faucetAmount"`
	CooldownTime   uint64       `json:"cooldownTime"`
	MaxClaimAmount *uint256.Int `json:"maxClaimAmount"`
}

func DefaultParams() Params {
	return Params{
		FaucetAmount:   common.Tokens(DefaultFaucetTokens),
		CooldownTime:   DefaultCooldownTime,
		MaxClaimAmount: common.Tokens(DefaultMaxClaimTokens),
	}
}

func (p Params) Validate() error {
	if p.FaucetAmount == nil || p.FaucetAmount.IsZero() {
		return fmt.Errorf("%w: faucet amount must be positive", ErrInvalidParams)
	}
	if p.MaxClaimAmount == nil || p.MaxClaimAmount.Lt(p.FaucetAmount) {
		return fmt.Errorf("%w: max claim amount below faucet amount", ErrInvalidParams)
	}
	return nil
}

// Equal reports whether two parameter sets are identical.
func (p Params) Equal(o Params) bool {
	return p.CooldownTime == o.CooldownTime &&
		p.FaucetAmount != nil && o.FaucetAmount != nil && p.FaucetAmount.Eq(o.FaucetAmount) &&
		p.MaxClaimAmount != nil && o.MaxClaimAmount != nil && p.MaxClaimAmount.Eq(o.MaxClaimAmount)
}

type record struct {
	Address address.Address `json:"address"`
	Token   address.Address `json:"token"`
	Params
}

// Receipt describes an accepted claim.
type Receipt struct {
	Caller    address.Address `json:"caller"`
	Amount    *uint256.Int    `json:"amount"`
	Timestamp uint64          `json:"timestamp"`
}

// Status is a consistent snapshot of one address's faucet situation.
type Status struct {
	Address            address.Address `json:"address"`
	Balance            *uint256.Int    `json:"balance"`
	TotalClaimed       *uint256.Int    `json:"totalClaimed"`
	RemainingAllowance *uint256.Int    `json:"remainingAllowance"`
	CanClaim           bool            `json:"canClaim"`
	LastClaimAt        uint64          `json:"lastClaimAt"`
	NextClaimAt        uint64          `json:"nextClaimAt"`
	CooldownRemaining  uint64          `json:"cooldownRemaining"`
	Paused             bool            `json:"paused"`
}

// Controller rate-limits minting of its token: a fixed amount per claim,
// a cooldown between claims and a lifetime cap per address.
type Controller struct {
	db      *state.DB
	token   *token.Ledger
	rec     record
	ownable *access.Ownable
}

var (
	paramsKey = storage.Key(storage.NsFaucet, storage.FieldParams)
	pausedKey = storage.Key(storage.NsFaucet, storage.FieldPaused)
)

func claimKey(a address.Address) []byte {
	return storage.AccountKey(storage.NsFaucet, storage.FieldClaim, a)
}

func newController(db *state.DB, tok *token.Ledger, rec record) *Controller {
	return &Controller{db: db, token: tok, rec: rec, ownable: access.NewOwnable(storage.NsFaucet, rec.Address)}
}

// Init deploys a faucet for tok inside txn. The faucet starts unpaused and
// cannot mint until the token owner makes it the minter.
func Init(db *state.DB, txn *state.Txn, addr, owner address.Address, tok *token.Ledger, p Params) (*Controller, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	existing, err := txn.Get(paramsKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyDeployed
	}
	rec := record{
		Address: addr,
		Token:   tok.Address(),
		Params: Params{
			FaucetAmount:   new(uint256.Int).Set(p.FaucetAmount),
			CooldownTime:   p.CooldownTime,
			MaxClaimAmount: new(uint256.Int).Set(p.MaxClaimAmount),
		},
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode faucet params: %w", err)
	}
	c := newController(db, tok, rec)
	if err := c.ownable.Init(txn, owner); err != nil {
		return nil, err
	}
	txn.Put(paramsKey, raw)
	txn.Put(pausedKey, account.EncodeBool(false))
	txn.OnCommit(func() {
		metrics.SetPaused(false)
		fctlogger().Infow("Faucet deployed", "address", addr, "token", rec.Token,
			"amount", common.FormatUnits(rec.FaucetAmount, common.Decimals),
			"cooldown", rec.CooldownTime,
			"maxClaim", common.FormatUnits(rec.MaxClaimAmount, common.Decimals),
			"owner", owner)
	})
	return c, nil
}

// Load opens the faucet deployed in db and checks it is bound to tok.
func Load(db *state.DB, tok *token.Ledger) (*Controller, error) {
	var rec record
	paused := false
	err := db.View(func(r state.Reader) error {
		raw, err := r.Get(paramsKey)
		if err != nil {
			return err
		}
		if raw == nil {
			return ErrNotDeployed
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode faucet params: %w", err)
		}
		ok, err := access.NewOwnable(storage.NsFaucet, rec.Address).Initialized(r)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: faucet owner record missing", account.ErrCorruptRecord)
		}
		p, err := r.Get(pausedKey)
		if err != nil {
			return err
		}
		paused = account.DecodeBool(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rec.Token != tok.Address() {
		return nil, fmt.Errorf("%w: stored %s, given %s", ErrTokenMismatch, rec.Token, tok.Address())
	}
	metrics.SetPaused(paused)
	return newController(db, tok, rec), nil
}

func (c *Controller) Address() address.Address { return c.rec.Address }

// Token returns the address of the token this faucet mints.
func (c *Controller) Token() address.Address { return c.rec.Token }

func (c *Controller) FaucetAmount() *uint256.Int {
	return new(uint256.Int).Set(c.rec.FaucetAmount)
}

func (c *Controller) CooldownTime() uint64 { return c.rec.CooldownTime }

func (c *Controller) MaxClaimAmount() *uint256.Int {
	return new(uint256.Int).Set(c.rec.MaxClaimAmount)
}

// Params returns a copy of the deployed parameters.
func (c *Controller) Params() Params {
	return Params{
		FaucetAmount:   c.FaucetAmount(),
		CooldownTime:   c.rec.CooldownTime,
		MaxClaimAmount: c.MaxClaimAmount(),
	}
}

// RequestTokens mints FaucetAmount to caller if the faucet is running,
// the caller's cooldown has elapsed and the lifetime cap allows it. The
// mint and the claim record commit together or not at all.
func (c *Controller) RequestTokens(caller address.Address, now uint64) (*Receipt, error) {
	var receipt *Receipt
	err := c.db.Update(func(txn *state.Txn) error {
		claim, err := c.checkClaim(txn, caller, now)
		if err != nil {
			return err
		}
		amount := c.rec.FaucetAmount
		newTotal, err := common.CheckedAdd(&claim.TotalClaimed, amount)
		if err != nil {
			return err
		}
		if err := c.token.MintTx(txn, c.rec.Address, caller, amount); err != nil {
			return err
		}

		claim.LastClaimAt = now
		claim.TotalClaimed = *newTotal
		txn.Put(claimKey(caller), claim.Bytes())
		txn.Emit(event.TokensClaimed{
			Faucet:    c.rec.Address,
			User:      caller,
			Amount:    new(uint256.Int).Set(amount),
			Timestamp: now,
		})
		receipt = &Receipt{Caller: caller, Amount: new(uint256.Int).Set(amount), Timestamp: now}
		txn.OnCommit(func() {
			metrics.Claims.Inc()
			metrics.ClaimedAmount.Add(common.ToFloat(amount))
			fctlogger().Infow("Tokens claimed", "user", caller, "amount", common.FormatUnits(amount, common.Decimals),
				"totalClaimed", common.FormatUnits(newTotal, common.Decimals), "at", now)
		})
		return nil
	})
	if err != nil {
		metrics.ClaimsRejected.WithLabelValues(RejectReason(err)).Inc()
		fctlogger().Debugw("Claim rejected", "user", caller, "at", now, "err", err)
		return nil, err
	}
	return receipt, nil
}

// checkClaim evaluates pause, cooldown and lifetime cap in that order and
// returns the caller's current claim record.
func (c *Controller) checkClaim(r state.Reader, caller address.Address, now uint64) (*account.Claim, error) {
	paused, err := c.pausedIn(r)
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, ErrFaucetPaused
	}
	claim, err := c.claimIn(r, caller)
	if err != nil {
		return nil, err
	}
	if next, ok := c.nextClaimAt(claim); !ok || now < next {
		return nil, fmt.Errorf("%w: next claim at %d", ErrCooldownNotElapsed, next)
	}
	total, err := common.CheckedAdd(&claim.TotalClaimed, c.rec.FaucetAmount)
	if err != nil {
		return nil, err
	}
	if total.Gt(c.rec.MaxClaimAmount) {
		return nil, fmt.Errorf("%w: %s of %s claimed", ErrLifetimeLimitReached,
			common.FormatUnits(&claim.TotalClaimed, common.Decimals),
			common.FormatUnits(c.rec.MaxClaimAmount, common.Decimals))
	}
	return claim, nil
}

// nextClaimAt is the earliest time the claim's owner may claim again. An
// address that never claimed may claim at any time. ok is false when the
// cooldown end does not fit in a uint64.
func (c *Controller) nextClaimAt(claim *account.Claim) (uint64, bool) {
	if !claim.HasClaimed() {
		return 0, true
	}
	next, err := common.CheckedAddUint64(claim.LastClaimAt, c.rec.CooldownTime)
	if err != nil {
		return ^uint64(0), false
	}
	return next, true
}

// CanClaim reports whether RequestTokens(a, now) would pass the faucet's
// own checks. It never mutates state.
func (c *Controller) CanClaim(a address.Address, now uint64) (bool, error) {
	ok := false
	err := c.db.View(func(r state.Reader) error {
		_, err := c.checkClaim(r, a, now)
		if err == nil {
			ok = true
			return nil
		}
		if errors.Is(err, ErrFaucetPaused) || errors.Is(err, ErrClaimUnavailable) {
			return nil
		}
		return err
	})
	return ok, err
}

// RemainingAllowance is MaxClaimAmount minus what a already claimed.
func (c *Controller) RemainingAllowance(a address.Address) (*uint256.Int, error) {
	var rem *uint256.Int
	err := c.db.View(func(r state.Reader) error {
		claim, err := c.claimIn(r, a)
		if err != nil {
			return err
		}
		rem = common.SaturatingSub(c.rec.MaxClaimAmount, &claim.TotalClaimed)
		return nil
	})
	return rem, err
}

// TotalClaimed is the lifetime amount a has received from the faucet.
func (c *Controller) TotalClaimed(a address.Address) (*uint256.Int, error) {
	var total *uint256.Int
	err := c.db.View(func(r state.Reader) error {
		claim, err := c.claimIn(r, a)
		if err != nil {
			return err
		}
		total = new(uint256.Int).Set(&claim.TotalClaimed)
		return nil
	})
	return total, err
}

// LastClaimAt returns the time of a's last claim, 0 if it never claimed.
func (c *Controller) LastClaimAt(a address.Address) (uint64, error) {
	var ts uint64
	err := c.db.View(func(r state.Reader) error {
		claim, err := c.claimIn(r, a)
		if err != nil {
			return err
		}
		ts = claim.LastClaimAt
		return nil
	})
	return ts, err
}

// NextClaimAt returns when a's cooldown ends; 0 means a may claim now.
func (c *Controller) NextClaimAt(a address.Address) (uint64, error) {
	var next uint64
	err := c.db.View(func(r state.Reader) error {
		claim, err := c.claimIn(r, a)
		if err != nil {
			return err
		}
		next, _ = c.nextClaimAt(claim)
		return nil
	})
	return next, err
}

// CooldownRemaining is the number of seconds a still has to wait at now.
func (c *Controller) CooldownRemaining(a address.Address, now uint64) (uint64, error) {
	next, err := c.NextClaimAt(a)
	if err != nil {
		return 0, err
	}
	return remaining(next, now), nil
}

func remaining(next, now uint64) uint64 {
	if next > now {
		return next - now
	}
	return 0
}

// Status reads everything a dashboard shows for a in one view.
func (c *Controller) Status(a address.Address, now uint64) (*Status, error) {
	st := &Status{Address: a}
	err := c.db.View(func(r state.Reader) error {
		bal, err := c.token.BalanceIn(r, a)
		if err != nil {
			return err
		}
		claim, err := c.claimIn(r, a)
		if err != nil {
			return err
		}
		paused, err := c.pausedIn(r)
		if err != nil {
			return err
		}
		_, checkErr := c.checkClaim(r, a, now)
		if checkErr != nil && !errors.Is(checkErr, ErrFaucetPaused) && !errors.Is(checkErr, ErrClaimUnavailable) {
			return checkErr
		}
		next, _ := c.nextClaimAt(claim)

		st.Balance = bal
		st.TotalClaimed = new(uint256.Int).Set(&claim.TotalClaimed)
		st.RemainingAllowance = common.SaturatingSub(c.rec.MaxClaimAmount, &claim.TotalClaimed)
		st.CanClaim = checkErr == nil
		st.LastClaimAt = claim.LastClaimAt
		st.NextClaimAt = next
		st.CooldownRemaining = remaining(next, now)
		st.Paused = paused
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// SetPaused stops or resumes claims. Owner only.
func (c *Controller) SetPaused(caller address.Address, paused bool) error {
	return c.db.Update(func(txn *state.Txn) error {
		if err := c.ownable.OnlyOwner(txn, caller); err != nil {
			return err
		}
		txn.Put(pausedKey, account.EncodeBool(paused))
		txn.Emit(event.Paused{Faucet: c.rec.Address, By: caller, Paused: paused})
		txn.OnCommit(func() {
			metrics.SetPaused(paused)
			fctlogger().Infow("Faucet pause changed", "paused", paused, "by", caller)
		})
		return nil
	})
}

func (c *Controller) IsPaused() (bool, error) {
	var paused bool
	err := c.db.View(func(r state.Reader) error {
		var err error
		paused, err = c.pausedIn(r)
		return err
	})
	return paused, err
}

func (c *Controller) Owner() (address.Address, error) {
	var o address.Address
	err := c.db.View(func(r state.Reader) error {
		var err error
		o, err = c.ownable.Owner(r)
		return err
	})
	return o, err
}

func (c *Controller) TransferOwnership(caller, newOwner address.Address) error {
	return c.db.Update(func(txn *state.Txn) error {
		return c.ownable.TransferOwnership(txn, caller, newOwner)
	})
}

func (c *Controller) pausedIn(r state.Reader) (bool, error) {
	raw, err := r.Get(pausedKey)
	if err != nil {
		return false, fmt.Errorf("read paused: %w", err)
	}
	return account.DecodeBool(raw), nil
}

func (c *Controller) claimIn(r state.Reader, a address.Address) (*account.Claim, error) {
	raw, err := r.Get(claimKey(a))
	if err != nil {
		return nil, fmt.Errorf("read claim: %w", err)
	}
	return account.ClaimFromBytes(raw)
}

// RejectReason classifies a RequestTokens error for metrics.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrFaucetPaused):
		return metrics.ReasonPaused
	case errors.Is(err, ErrCooldownNotElapsed):
		return metrics.ReasonCooldown
	case errors.Is(err, ErrLifetimeLimitReached):
		return metrics.ReasonLifetimeCap
	case errors.Is(err, token.ErrSupplyCapExceeded):
		return metrics.ReasonSupplyCap
	case errors.Is(err, access.ErrUnauthorized):
		return metrics.ReasonUnauthorized
	default:
		return metrics.ReasonOther
	}
}
