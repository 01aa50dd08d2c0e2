package token

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
	"github.com/drip/internal/logger"
	"github.com/drip/internal/metrics"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

func tknlogger() *zap.SugaredLogger {
	return logger.Named("token")
}

var (
	ErrSupplyCapExceeded   = errors.New("supply cap exceeded")
	ErrInvalidReceiver     = errors.New("invalid receiver")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotDeployed         = errors.New("token not deployed")
	ErrAlreadyDeployed     = errors.New("token already deployed")
	ErrInvalidParams       = errors.New("invalid token params")
)

// Params are fixed at deployment.
type Params struct {
	Name      string
	Symbol    string
	MaxSupply *uint256.Int
}

func (p Params) Validate() error {
	if p.Name == "" || p.Symbol == "" {
		return fmt.Errorf("%w: name and symbol are required", ErrInvalidParams)
	}
	if p.MaxSupply == nil || p.MaxSupply.IsZero() {
		return fmt.Errorf("%w: max supply must be positive", ErrInvalidParams)
	}
	return nil
}

// meta is the immutable metadata record.
type meta struct {
	Address   address.Address `json:"address"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	Decimals  uint8           `json:"decimals"`
	MaxSupply *uint256.Int    `json:"maxSupply"`
}

// Ledger is the capped-supply token: balances, total supply, the minter
// role and the owner. All state lives in the shared DB.
type Ledger struct {
	db      *state.DB
	meta    meta
	ownable *access.Ownable
}

var (
	metaKey   = storage.Key(storage.NsToken, storage.FieldMeta)
	supplyKey = storage.Key(storage.NsToken, storage.FieldSupply)
	minterKey = storage.Key(storage.NsToken, storage.FieldMinter)
)

func balanceKey(a address.Address) []byte {
	return storage.AccountKey(storage.NsToken, storage.FieldBalance, a)
}

func newLedger(db *state.DB, m meta) *Ledger {
	return &Ledger{db: db, meta: m, ownable: access.NewOwnable(storage.NsToken, m.Address)}
}

// Init deploys the token inside txn with owner as its owner. The minter
// starts unset.
func Init(db *state.DB, txn *state.Txn, addr, owner address.Address, p Params) (*Ledger, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	existing, err := txn.Get(metaKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyDeployed
	}
	m := meta{
		Address:   addr,
		Name:      p.Name,
		Symbol:    p.Symbol,
		Decimals:  common.Decimals,
		MaxSupply: new(uint256.Int).Set(p.MaxSupply),
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode token meta: %w", err)
	}
	l := newLedger(db, m)
	if err := l.ownable.Init(txn, owner); err != nil {
		return nil, err
	}
	txn.Put(metaKey, raw)
	txn.Put(supplyKey, account.EncodeAmount(new(uint256.Int)))
	txn.OnCommit(func() {
		metrics.MaxSupply.Set(common.ToFloat(m.MaxSupply))
		metrics.TotalSupply.Set(0)
		tknlogger().Infow("Token deployed", "address", addr, "name", m.Name, "symbol", m.Symbol,
			"maxSupply", common.FormatUnits(m.MaxSupply, m.Decimals), "owner", owner)
	})
	return l, nil
}

// Load opens a token previously deployed in db.
func Load(db *state.DB) (*Ledger, error) {
	var m meta
	err := db.View(func(r state.Reader) error {
		raw, err := r.Get(metaKey)
		if err != nil {
			return err
		}
		if raw == nil {
			return ErrNotDeployed
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("decode token meta: %w", err)
		}
		return requireOwner(r, access.NewOwnable(storage.NsToken, m.Address))
	})
	if err != nil {
		return nil, err
	}
	l := newLedger(db, m)
	if supply, err := l.TotalSupply(); err == nil {
		metrics.TotalSupply.Set(common.ToFloat(supply))
	}
	metrics.MaxSupply.Set(common.ToFloat(m.MaxSupply))
	return l, nil
}

// requireOwner rejects a component whose metadata exists without an owner
// record.
func requireOwner(r state.Reader, o *access.Ownable) error {
	ok, err := o.Initialized(r)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: owner record missing", account.ErrCorruptRecord)
	}
	return nil
}

func (l *Ledger) Address() address.Address { return l.meta.Address }
func (l *Ledger) Name() string             { return l.meta.Name }
func (l *Ledger) Symbol() string           { return l.meta.Symbol }
func (l *Ledger) Decimals() uint8          { return l.meta.Decimals }

// MaxSupply returns a copy of the supply cap.
func (l *Ledger) MaxSupply() *uint256.Int {
	return new(uint256.Int).Set(l.meta.MaxSupply)
}

// Mint creates amount new tokens for to. Only the minter may call it.
func (l *Ledger) Mint(caller, to address.Address, amount *uint256.Int) error {
	return l.db.Update(func(txn *state.Txn) error {
		return l.MintTx(txn, caller, to, amount)
	})
}

// MintTx is Mint inside an existing transition.
func (l *Ledger) MintTx(txn *state.Txn, caller, to address.Address, amount *uint256.Int) error {
	minter, err := l.MinterIn(txn)
	if err != nil {
		return err
	}
	if minter.IsZero() || caller != minter {
		return access.Unauthorized(caller, access.RoleMinter)
	}
	if to.IsZero() {
		return ErrInvalidReceiver
	}
	supply, err := l.TotalSupplyIn(txn)
	if err != nil {
		return err
	}
	headroom, err := common.CheckedSub(l.meta.MaxSupply, supply)
	if err != nil {
		return fmt.Errorf("supply above cap: %w", err)
	}
	if amount.Gt(headroom) {
		return fmt.Errorf("%w: minting %s with %s left", ErrSupplyCapExceeded,
			common.FormatUnits(amount, l.meta.Decimals), common.FormatUnits(headroom, l.meta.Decimals))
	}
	newSupply, err := common.CheckedAdd(supply, amount)
	if err != nil {
		return err
	}
	bal, err := l.BalanceIn(txn, to)
	if err != nil {
		return err
	}
	newBal, err := common.CheckedAdd(bal, amount)
	if err != nil {
		return err
	}

	txn.Put(balanceKey(to), account.EncodeAmount(newBal))
	txn.Put(supplyKey, account.EncodeAmount(newSupply))
	txn.Emit(event.Transfer{Token: l.meta.Address, From: address.Zero, To: to, Amount: new(uint256.Int).Set(amount)})
	txn.OnCommit(func() {
		metrics.Mints.Inc()
		metrics.TotalSupply.Set(common.ToFloat(newSupply))
		tknlogger().Debugw("Minted", "to", to, "amount", amount.Dec(), "totalSupply", newSupply.Dec())
	})
	return nil
}

// Transfer moves amount from caller to to.
func (l *Ledger) Transfer(caller, to address.Address, amount *uint256.Int) error {
	return l.db.Update(func(txn *state.Txn) error {
		if to.IsZero() {
			return ErrInvalidReceiver
		}
		from, err := l.BalanceIn(txn, caller)
		if err != nil {
			return err
		}
		if from.Lt(amount) {
			return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance,
				common.FormatUnits(from, l.meta.Decimals), common.FormatUnits(amount, l.meta.Decimals))
		}
		newFrom, err := common.CheckedSub(from, amount)
		if err != nil {
			return err
		}
		txn.Put(balanceKey(caller), account.EncodeAmount(newFrom))

		dest, err := l.BalanceIn(txn, to)
		if err != nil {
			return err
		}
		newDest, err := common.CheckedAdd(dest, amount)
		if err != nil {
			return err
		}
		txn.Put(balanceKey(to), account.EncodeAmount(newDest))
		txn.Emit(event.Transfer{Token: l.meta.Address, From: caller, To: to, Amount: new(uint256.Int).Set(amount)})
		txn.OnCommit(metrics.Transfers.Inc)
		return nil
	})
}

// SetMinter assigns the minter role. Owner only; the zero address revokes it.
func (l *Ledger) SetMinter(caller, minter address.Address) error {
	return l.db.Update(func(txn *state.Txn) error {
		return l.SetMinterTx(txn, caller, minter)
	})
}

func (l *Ledger) SetMinterTx(txn *state.Txn, caller, minter address.Address) error {
	if err := l.ownable.OnlyOwner(txn, caller); err != nil {
		return err
	}
	prev, err := l.MinterIn(txn)
	if err != nil {
		return err
	}
	txn.Put(minterKey, minter.Bytes())
	txn.Emit(event.MinterChanged{Token: l.meta.Address, Previous: prev, Minter: minter})
	txn.OnCommit(func() {
		tknlogger().Infow("Minter changed", "previous", prev, "minter", minter)
	})
	return nil
}

func (l *Ledger) TransferOwnership(caller, newOwner address.Address) error {
	return l.db.Update(func(txn *state.Txn) error {
		return l.ownable.TransferOwnership(txn, caller, newOwner)
	})
}

// BalanceOf returns the balance of a; an unknown address holds zero.
func (l *Ledger) BalanceOf(a address.Address) (*uint256.Int, error) {
	var bal *uint256.Int
	err := l.db.View(func(r state.Reader) error {
		var err error
		bal, err = l.BalanceIn(r, a)
		return err
	})
	return bal, err
}

func (l *Ledger) TotalSupply() (*uint256.Int, error) {
	var supply *uint256.Int
	err := l.db.View(func(r state.Reader) error {
		var err error
		supply, err = l.TotalSupplyIn(r)
		return err
	})
	return supply, err
}

// Minter returns the minter, or the zero address while unset.
func (l *Ledger) Minter() (address.Address, error) {
	var m address.Address
	err := l.db.View(func(r state.Reader) error {
		var err error
		m, err = l.MinterIn(r)
		return err
	})
	return m, err
}

func (l *Ledger) Owner() (address.Address, error) {
	var o address.Address
	err := l.db.View(func(r state.Reader) error {
		var err error
		o, err = l.ownable.Owner(r)
		return err
	})
	return o, err
}

// Holders counts the addresses with a non-zero balance.
func (l *Ledger) Holders() (int, error) {
	n := 0
	err := l.db.View(func(r state.Reader) error {
		return r.ForEach(storage.AccountPrefix(storage.NsToken, storage.FieldBalance), func(_, v []byte) error {
			bal, err := account.DecodeAmount(v)
			if err != nil {
				return err
			}
			if !bal.IsZero() {
				n++
			}
			return nil
		})
	})
	return n, err
}

func (l *Ledger) BalanceIn(r state.Reader, a address.Address) (*uint256.Int, error) {
	raw, err := r.Get(balanceKey(a))
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	return account.DecodeAmount(raw)
}

func (l *Ledger) TotalSupplyIn(r state.Reader) (*uint256.Int, error) {
	raw, err := r.Get(supplyKey)
	if err != nil {
		return nil, fmt.Errorf("read supply: %w", err)
	}
	return account.DecodeAmount(raw)
}

func (l *Ledger) MinterIn(r state.Reader) (address.Address, error) {
	raw, err := r.Get(minterKey)
	if err != nil {
		return address.Zero, fmt.Errorf("read minter: %w", err)
	}
	return address.BytesToAddress(raw), nil
}
