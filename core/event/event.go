package event

import (
	"github.com/drip/core/address"
	"github.com/holiman/uint256"
)

// Event names as seen by observers and websocket clients.
const (
	NameTransfer             = "Transfer"
	NameTokensClaimed        = "TokensClaimed"
	NamePaused               = "Paused"
	NameMinterChanged        = "MinterChanged"
	NameOwnershipTransferred = "OwnershipTransferred"
)

type Event interface {
	Name() string
	// Source is the address of the component that emitted the event.
	Source() address.Address
}

// Transfer is emitted on mint (From is the zero address) and on transfer.
type Transfer struct {
	Token  address.Address `json:"token"`
	From   address.Address `json:"from"`
	To     address.Address `json:"to"`
	Amount *uint256.Int    `json:"amount"`
}

func (Transfer) Name() string              { return NameTransfer }
func (e Transfer) Source() address.Address { return e.Token }

type TokensClaimed struct {
	Faucet    address.Address `json:"faucet"`
	User      address.Address `json:"user"`
	Amount    *uint256.Int    `json:"amount"`
	Timestamp uint64          `json:"timestamp"`
}

func (TokensClaimed) Name() string              { return NameTokensClaimed }
func (e TokensClaimed) Source() address.Address { return e.Faucet }

type Paused struct {
	Faucet address.Address `json:"faucet"`
	By     address.Address `json:"by"`
	Paused bool            `json:"paused"`
}

func (Paused) Name() string              { return NamePaused }
func (e Paused) Source() address.Address { return e.Faucet }

type MinterChanged struct {
	Token    address.Address `json:"token"`
	Previous address.Address `json:"previous"`
	Minter   address.Address `json:"minter"`
}

func (MinterChanged) Name() string              { return NameMinterChanged }
func (e MinterChanged) Source() address.Address { return e.Token }

type OwnershipTransferred struct {
	Component address.Address `json:"component"`
	Previous  address.Address `json:"previous"`
	Owner     address.Address `json:"owner"`
}

func (OwnershipTransferred) Name() string              { return NameOwnershipTransferred }
func (e OwnershipTransferred) Source() address.Address { return e.Component }

// Sink receives committed events in commit order. Publish runs while the
// state lock is held and must not call back into the state synchronously.
type Sink interface {
	Publish(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(ev Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder collects events. Tests use it to assert emission.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(ev Event) { r.Events = append(r.Events, ev) }

// Names returns the names of the recorded events in order.
func (r *Recorder) Names() []string {
	out := make([]string, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Name()
	}
	return out
}

func (r *Recorder) Reset() { r.Events = nil }
