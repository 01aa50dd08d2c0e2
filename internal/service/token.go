package service

import (
	"fmt"

	"github.com/drip/core/address"
	"github.com/drip/core/token"
)

// TokenService exposes the ledger as "token.*".
type TokenService struct {
	ledger *token.Ledger
}

func NewTokenService(l *token.Ledger) *TokenService {
	return &TokenService{ledger: l}
}

// tokenMethods maps each method to whether it acts for params[0].
var tokenMethods = map[string]bool{
	"address":           false,
	"name":              false,
	"symbol":            false,
	"decimals":          false,
	"maxSupply":         false,
	"totalSupply":       false,
	"minter":            false,
	"owner":             false,
	"holders":           false,
	"balanceOf":         false,
	"mint":              true,
	"transfer":          true,
	"setMinter":         true,
	"transferOwnership": true,
}

func (s *TokenService) ServiceName() string { return "token" }

func (s *TokenService) Has(method string) bool {
	_, ok := tokenMethods[method]
	return ok
}

func (s *TokenService) Guarded(method string) bool { return tokenMethods[method] }

func (s *TokenService) Exec(method string, params []any) any {
	l := s.ledger
	switch method {
	case "address":
		return l.Address()
	case "name":
		return l.Name()
	case "symbol":
		return l.Symbol()
	case "decimals":
		return l.Decimals()
	case "maxSupply":
		return l.MaxSupply()
	case "totalSupply":
		return result(l.TotalSupply())
	case "minter":
		return result(l.Minter())
	case "owner":
		return result(l.Owner())
	case "holders":
		return result(l.Holders())
	case "balanceOf":
		a, err := paramAddress(params, 0)
		if err != nil {
			return err
		}
		return result(l.BalanceOf(a))
	case "mint", "transfer":
		caller, err := paramAddress(params, 0)
		if err != nil {
			return err
		}
		to, err := paramAddress(params, 1)
		if err != nil {
			return err
		}
		amount, err := paramAmount(params, 2)
		if err != nil {
			return err
		}
		if method == "mint" {
			err = l.Mint(caller, to, amount)
		} else {
			err = l.Transfer(caller, to, amount)
		}
		return result(true, err)
	case "setMinter", "transferOwnership":
		caller, target, err := callerAndTarget(params)
		if err != nil {
			return err
		}
		if method == "setMinter" {
			err = l.SetMinter(caller, target)
		} else {
			err = l.TransferOwnership(caller, target)
		}
		return result(true, err)
	default:
		return fmt.Errorf("%w: token.%s", ErrMethodNotFound, method)
	}
}

func callerAndTarget(params []any) (address.Address, address.Address, error) {
	caller, err := paramAddress(params, 0)
	if err != nil {
		return address.Zero, address.Zero, err
	}
	target, err := paramAddress(params, 1)
	if err != nil {
		return address.Zero, address.Zero, err
	}
	return caller, target, nil
}
