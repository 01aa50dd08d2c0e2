package service

import (
	"fmt"

	"github.com/drip/core/faucet"
)

// FaucetService exposes the controller as "faucet.*". Time-dependent
// calls read now from the clock.
type FaucetService struct {
	ctl   *faucet.Controller
	clock Clock
}

func NewFaucetService(c *faucet.Controller, clock Clock) *FaucetService {
	if clock == nil {
		clock = WallClock
	}
	return &FaucetService{ctl: c, clock: clock}
}

// faucetMethods maps each method to whether it acts for params[0].
var faucetMethods = map[string]bool{
	"address":            false,
	"token":              false,
	"faucetAmount":       false,
	"cooldownTime":       false,
	"maxClaimAmount":     false,
	"params":             false,
	"isPaused":           false,
	"owner":              false,
	"canClaim":           false,
	"remainingAllowance": false,
	"totalClaimed":       false,
	"lastClaimAt":        false,
	"nextClaimAt":        false,
	"cooldownRemaining":  false,
	"status":             false,
	"requestTokens":      true,
	"setPaused":          true,
	"transferOwnership":  true,
}

func (s *FaucetService) ServiceName() string { return "faucet" }

func (s *FaucetService) Has(method string) bool {
	_, ok := faucetMethods[method]
	return ok
}

func (s *FaucetService) Guarded(method string) bool { return faucetMethods[method] }

func (s *FaucetService) Exec(method string, params []any) any {
	c := s.ctl
	switch method {
	case "address":
		return c.Address()
	case "token":
		return c.Token()
	case "faucetAmount":
		return c.FaucetAmount()
	case "cooldownTime":
		return c.CooldownTime()
	case "maxClaimAmount":
		return c.MaxClaimAmount()
	case "params":
		return c.Params()
	case "isPaused":
		return result(c.IsPaused())
	case "owner":
		return result(c.Owner())
	case "requestTokens":
		caller, err := paramAddress(params, 0)
		if err != nil {
			return err
		}
		return result(c.RequestTokens(caller, s.clock()))
	case "setPaused":
		caller, err := paramAddress(params, 0)
		if err != nil {
			return err
		}
		paused, err := paramBool(params, 1)
		if err != nil {
			return err
		}
		return result(true, c.SetPaused(caller, paused))
	case "transferOwnership":
		caller, target, err := callerAndTarget(params)
		if err != nil {
			return err
		}
		return result(true, c.TransferOwnership(caller, target))
	}

	if !accountMethod(method) {
		return fmt.Errorf("%w: faucet.%s", ErrMethodNotFound, method)
	}
	a, err := paramAddress(params, 0)
	if err != nil {
		return err
	}
	switch method {
	case "canClaim":
		return result(c.CanClaim(a, s.clock()))
	case "remainingAllowance":
		return result(c.RemainingAllowance(a))
	case "totalClaimed":
		return result(c.TotalClaimed(a))
	case "lastClaimAt":
		return result(c.LastClaimAt(a))
	case "nextClaimAt":
		return result(c.NextClaimAt(a))
	case "cooldownRemaining":
		return result(c.CooldownRemaining(a, s.clock()))
	default: // status
		return result(c.Status(a, s.clock()))
	}
}

func accountMethod(method string) bool {
	switch method {
	case "canClaim", "remainingAllowance", "totalClaimed", "lastClaimAt",
		"nextClaimAt", "cooldownRemaining", "status":
		return true
	}
	return false
}
