package deploy

import (
	"errors"
	"fmt"

	"github.com/drip/core/address"
	"github.com/drip/core/common"
	"github.com/drip/core/faucet"
	"github.com/drip/core/state"
	"github.com/drip/core/token"
	"github.com/drip/internal/logger"
	"go.uber.org/zap"
)

func dpllogger() *zap.SugaredLogger {
	return logger.Named("deploy")
}

// Labels for deriving component addresses from the deployer.
const (
	TokenLabel  = "drip/token"
	FaucetLabel = "drip/faucet"
)

const (
	DefaultName      = "Drip Token"
	DefaultSymbol    = "DRIP"
	DefaultMaxTokens = 1_000_000
)

var ErrInvalidParams = errors.New("invalid deployment params")

type Params struct {
	Token  token.Params
	Faucet faucet.Params
}

func DefaultParams() Params {
	return Params{
		Token: token.Params{
			Name:      DefaultName,
			Symbol:    DefaultSymbol,
			MaxSupply: common.Tokens(DefaultMaxTokens),
		},
		Faucet: faucet.DefaultParams(),
	}
}

// Deployment is a token and the faucet allowed to mint it, sharing one DB.
type Deployment struct {
	Token  *token.Ledger
	Faucet *faucet.Controller
	// Reloaded is true when the pair was found in the store.
	Reloaded bool
}

// Addresses returns the token and faucet addresses deployer would get.
func Addresses(deployer address.Address) (tokenAddr, faucetAddr address.Address) {
	return address.Derive(deployer, TokenLabel), address.Derive(deployer, FaucetLabel)
}

// Deploy creates the token, the faucet and hands the minter role to the
// faucet in one transition. When db already holds a deployment it is
// reloaded instead; stored parameters always win over p.
func Deploy(db *state.DB, deployer address.Address, p Params) (*Deployment, error) {
	if deployer.IsZero() {
		return nil, fmt.Errorf("%w: zero deployer", ErrInvalidParams)
	}
	tok, err := token.Load(db)
	switch {
	case err == nil:
		return reload(db, tok, p)
	case !errors.Is(err, token.ErrNotDeployed):
		return nil, fmt.Errorf("load token: %w", err)
	}

	if err := p.Token.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := p.Faucet.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	tokenAddr, faucetAddr := Addresses(deployer)
	d := &Deployment{}
	err = db.Update(func(txn *state.Txn) error {
		var err error
		d.Token, err = token.Init(db, txn, tokenAddr, deployer, p.Token)
		if err != nil {
			return fmt.Errorf("init token: %w", err)
		}
		d.Faucet, err = faucet.Init(db, txn, faucetAddr, deployer, d.Token, p.Faucet)
		if err != nil {
			return fmt.Errorf("init faucet: %w", err)
		}
		if err := d.Token.SetMinterTx(txn, deployer, faucetAddr); err != nil {
			return fmt.Errorf("set minter: %w", err)
		}
		return nil
	})
	if err != nil {
		dpllogger().Errorw("Deployment failed", "deployer", deployer, "err", err)
		return nil, err
	}
	dpllogger().Infow("Deployed", "token", tokenAddr, "faucet", faucetAddr, "owner", deployer)
	return d, nil
}

func reload(db *state.DB, tok *token.Ledger, p Params) (*Deployment, error) {
	fct, err := faucet.Load(db, tok)
	if err != nil {
		return nil, fmt.Errorf("load faucet: %w", err)
	}
	if p.Faucet.FaucetAmount != nil && !fct.Params().Equal(p.Faucet) {
		stored := fct.Params()
		dpllogger().Warnw("Configured faucet params differ from deployed ones, keeping deployed",
			"amount", common.FormatUnits(stored.FaucetAmount, common.Decimals),
			"cooldown", stored.CooldownTime,
			"maxClaim", common.FormatUnits(stored.MaxClaimAmount, common.Decimals))
	}
	if p.Token.MaxSupply != nil && !p.Token.MaxSupply.Eq(tok.MaxSupply()) {
		dpllogger().Warnw("Configured max supply differs from deployed one, keeping deployed",
			"maxSupply", common.FormatUnits(tok.MaxSupply(), tok.Decimals()))
	}
	dpllogger().Infow("Reloaded deployment", "token", tok.Address(), "faucet", fct.Address())
	return &Deployment{Token: tok, Faucet: fct, Reloaded: true}, nil
}
