package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/drip/core/address"
	"github.com/drip/core/common"
	"github.com/drip/core/crypto"
	"github.com/drip/core/faucet"
	"github.com/drip/internal/client"
	"github.com/drip/internal/service"
	"github.com/holiman/uint256"
)

var (
	errNoCaller = errors.New("no caller set, use `use <address>` or -addr")
	errNoKey    = errors.New("no signing key, use `recover <mnemonic>`, `keygen`, `load <file>` or -key")
)

// Console runs one command line at a time against a node. Queries default
// to the caller; commands that change state are signed with key and act
// for its address.
type Console struct {
	rpc    *client.Client
	caller address.Address
	key    *ecdsa.PrivateKey
	out    io.Writer
}

func NewConsole(rpc *client.Client, caller address.Address, out io.Writer) *Console {
	return &Console{rpc: rpc, caller: caller, out: out}
}

// SetKey makes key the signer and its address the caller.
func (c *Console) SetKey(key *ecdsa.PrivateKey) address.Address {
	c.key = key
	c.caller = crypto.PrivKeyToAddress(*key)
	return c.caller
}

func (c *Console) call(out any, method string, params ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.rpc.Call(ctx, out, method, params...)
}

// signed calls method on behalf of the signer, which is prepended to params.
func (c *Console) signed(out any, method string, params ...any) error {
	if c.key == nil {
		return errNoKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.rpc.CallSigned(ctx, c.key, out, method, append([]any{c.caller.Hex()}, params...)...)
}

// target returns the address argument, or the caller when none is given.
func (c *Console) target(args []string) (address.Address, error) {
	if len(args) > 0 {
		return address.ParseHex(args[0])
	}
	if c.caller.IsZero() {
		return address.Zero, errNoCaller
	}
	return c.caller, nil
}

func tokens(x *uint256.Int) string {
	return common.FormatUnits(x, common.Decimals)
}

// Exec runs line and reports whether the console should exit.
func (c *Console) Exec(line string) (bool, error) {
	input := strings.Fields(line)
	if len(input) == 0 {
		return false, nil
	}
	args := input[1:]
	switch input[0] {
	case "info":
		return false, c.info()
	case "use":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: use <address>")
		}
		a, err := address.ParseHex(args[0])
		if err != nil {
			return false, err
		}
		if c.key != nil && a != c.caller {
			c.key = nil
		}
		c.caller = a
		fmt.Fprintf(c.out, "Caller: %s\n", a.Hex())
	case "whoami":
		if c.caller.IsZero() {
			return false, errNoCaller
		}
		fmt.Fprintf(c.out, "Caller: %s\n", c.caller.Hex())
		if c.key != nil {
			fmt.Fprintln(c.out, "Signing: yes")
		}
	case "balance", "b":
		a, err := c.target(args)
		if err != nil {
			return false, err
		}
		var bal uint256.Int
		if err := c.call(&bal, "token.balanceOf", a.Hex()); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "Balance: %s\n", tokens(&bal))
	case "claim":
		var receipt faucet.Receipt
		if err := c.signed(&receipt, "faucet.requestTokens"); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "Claimed %s at %d\n", tokens(receipt.Amount), receipt.Timestamp)
	case "status":
		a, err := c.target(args)
		if err != nil {
			return false, err
		}
		return false, c.status(a)
	case "transfer":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: transfer <to> <amount>")
		}
		to, err := address.ParseHex(args[0])
		if err != nil {
			return false, err
		}
		amount, err := common.ParseUnits(args[1], common.Decimals)
		if err != nil {
			return false, err
		}
		if err := c.signed(nil, "token.transfer", to.Hex(), amount.Dec()); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "Sent %s to %s\n", tokens(amount), to.Hex())
	case "pause", "unpause":
		paused := input[0] == "pause"
		if err := c.signed(nil, "faucet.setPaused", paused); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "Paused: %v\n", paused)
	case "keygen":
		m, err := crypto.NewMnemonic()
		if err != nil {
			return false, err
		}
		key, err := crypto.KeyFromMnemonic(m, "")
		if err != nil {
			return false, err
		}
		if len(args) > 0 {
			if err := saveKey(args[0], key); err != nil {
				return false, err
			}
		}
		fmt.Fprintf(c.out, "Mnemonic: %s\nAddress: %s\n", m, c.SetKey(key).Hex())
	case "recover":
		key, err := crypto.KeyFromMnemonic(strings.Join(args, " "), "")
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "Address: %s\n", c.SetKey(key).Hex())
	case "load":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: load <keyfile>")
		}
		key, err := loadKey(args[0])
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "Address: %s\n", c.SetKey(key).Hex())
	case "help":
		fmt.Fprint(c.out, Usage())
	case "exit", "quit":
		return true, nil
	default:
		fmt.Fprintln(c.out, "Unknown command, use help to see available commands")
	}
	return false, nil
}

func saveKey(path string, key *ecdsa.PrivateKey) error {
	data, err := crypto.EncodePrivateKey(key)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func loadKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return crypto.DecodePrivateKey(data)
}

func (c *Console) info() error {
	var (
		node        service.NodeInfo
		name, sym   string
		maxSupply   uint256.Int
		totalSupply uint256.Int
		params      faucet.Params
		paused      bool
	)
	for _, q := range []struct {
		out    any
		method string
	}{
		{&node, "node.info"},
		{&name, "token.name"},
		{&sym, "token.symbol"},
		{&maxSupply, "token.maxSupply"},
		{&totalSupply, "token.totalSupply"},
		{&params, "faucet.params"},
		{&paused, "faucet.isPaused"},
	} {
		if err := c.call(q.out, q.method); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.out, "Node:      %s\n", node.Version)
	fmt.Fprintf(c.out, "Token:     %s (%s) %s\n", name, sym, node.Token.Hex())
	fmt.Fprintf(c.out, "Supply:    %s / %s\n", tokens(&totalSupply), tokens(&maxSupply))
	fmt.Fprintf(c.out, "Faucet:    %s\n", node.Faucet.Hex())
	fmt.Fprintf(c.out, "Amount:    %s every %s\n", tokens(params.FaucetAmount), time.Duration(params.CooldownTime)*time.Second)
	fmt.Fprintf(c.out, "Lifetime:  %s\n", tokens(params.MaxClaimAmount))
	fmt.Fprintf(c.out, "Paused:    %v\n", paused)
	return nil
}

func (c *Console) status(a address.Address) error {
	var st faucet.Status
	if err := c.call(&st, "faucet.status", a.Hex()); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Address:   %s\n", st.Address.Hex())
	fmt.Fprintf(c.out, "Balance:   %s\n", tokens(st.Balance))
	fmt.Fprintf(c.out, "Claimed:   %s (remaining %s)\n", tokens(st.TotalClaimed), tokens(st.RemainingAllowance))
	fmt.Fprintf(c.out, "Can claim: %v\n", st.CanClaim)
	if st.LastClaimAt != 0 || !st.TotalClaimed.IsZero() {
		fmt.Fprintf(c.out, "Last:      %s\n", time.Unix(int64(st.LastClaimAt), 0).UTC().Format(time.RFC3339))
	}
	if st.CooldownRemaining > 0 {
		fmt.Fprintf(c.out, "Next in:   %s\n", time.Duration(st.CooldownRemaining)*time.Second)
	}
	if st.Paused {
		fmt.Fprintln(c.out, "Faucet is paused")
	}
	return nil
}
