package storage

import "github.com/drip/core/address"

// Namespaces of the two components of a deployment and of request
// authentication.
const (
	NsToken  = "token"
	NsFaucet = "faucet"
	NsAuth   = "auth"
)

// Record fields. Keys are "<namespace>/<field>" or
// "<namespace>/<field>/<32 address bytes>".
const (
	FieldOwner   = "owner"
	FieldMinter  = "minter"
	FieldSupply  = "supply"
	FieldMeta    = "meta"
	FieldBalance = "bal"
	FieldClaim   = "claim"
	FieldPaused  = "paused"
	FieldParams  = "params"
	FieldNonce   = "nonce"
)

func Key(ns, field string) []byte {
	k := make([]byte, 0, len(ns)+1+len(field))
	k = append(k, ns...)
	k = append(k, '/')
	return append(k, field...)
}

func AccountKey(ns, field string, a address.Address) []byte {
	k := Key(ns, field)
	k = append(k, '/')
	return append(k, a[:]...)
}

// AccountPrefix is the common prefix of every AccountKey for field.
func AccountPrefix(ns, field string) []byte {
	return append(Key(ns, field), '/')
}
