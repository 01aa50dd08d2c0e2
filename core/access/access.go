package access

import (
	"errors"
	"fmt"

	"github.com/drip/core/address"
	"github.com/drip/core/event"
	"github.com/drip/core/state"
	"github.com/drip/core/storage"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidOwner = errors.New("invalid owner")
)

// Roles named in UnauthorizedError.
const (
	RoleOwner  = "owner"
	RoleMinter = "minter"
)

// UnauthorizedError reports the account that lacked a role.
// errors.Is(err, ErrUnauthorized) holds for every UnauthorizedError.
type UnauthorizedError struct {
	Account address.Address
	Role    string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s is not the %s", e.Account.Hex(), e.Role)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Unauthorized builds the error for caller lacking role.
func Unauthorized(caller address.Address, role string) error {
	return &UnauthorizedError{Account: caller, Role: role}
}

// Ownable is the single-owner capability of one component. The owner
// record lives under the component's namespace.
type Ownable struct {
	key       []byte
	component address.Address
}

func NewOwnable(ns string, component address.Address) *Ownable {
	return &Ownable{key: storage.Key(ns, storage.FieldOwner), component: component}
}

// Init records the initial owner. It is called once, at deployment.
func (o *Ownable) Init(txn *state.Txn, owner address.Address) error {
	if owner.IsZero() {
		return ErrInvalidOwner
	}
	txn.Put(o.key, owner.Bytes())
	txn.Emit(event.OwnershipTransferred{Component: o.component, Previous: address.Zero, Owner: owner})
	return nil
}

// Initialized reports whether an owner has been recorded.
func (o *Ownable) Initialized(r state.Reader) (bool, error) {
	raw, err := r.Get(o.key)
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

func (o *Ownable) Owner(r state.Reader) (address.Address, error) {
	raw, err := r.Get(o.key)
	if err != nil {
		return address.Zero, fmt.Errorf("read owner: %w", err)
	}
	return address.BytesToAddress(raw), nil
}

// OnlyOwner fails with ErrUnauthorized unless caller is the owner.
func (o *Ownable) OnlyOwner(r state.Reader, caller address.Address) error {
	owner, err := o.Owner(r)
	if err != nil {
		return err
	}
	if owner.IsZero() || caller != owner {
		return Unauthorized(caller, RoleOwner)
	}
	return nil
}

func (o *Ownable) TransferOwnership(txn *state.Txn, caller, newOwner address.Address) error {
	if err := o.OnlyOwner(txn, caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return ErrInvalidOwner
	}
	txn.Put(o.key, newOwner.Bytes())
	txn.Emit(event.OwnershipTransferred{Component: o.component, Previous: caller, Owner: newOwner})
	return nil
}
