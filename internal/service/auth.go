package service

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/drip/core/account"
	"github.com/drip/core/address"
	"github.com/drip/core/crypto"
	"github.com/drip/core/state"
	"github.com/drip/core/storage"
	"github.com/drip/internal/logger"
	"go.uber.org/zap"
)

func authLogger() *zap.SugaredLogger {
	return logger.Named("auth")
}

var (
	ErrUnauthenticated = errors.New("request not authenticated")
	ErrNonceUsed       = fmt.Errorf("%w: nonce already used", ErrUnauthenticated)
)

// Auth proves that the caller named in params[0] sent the request: a
// signature by the caller's key over the method, the params and a nonce.
type Auth struct {
	PublicKey string `json:"pubkey"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

// SigningHash is the digest a request signature covers. params are
// normalized through a JSON round trip so that signer and verifier hash
// the same bytes.
func SigningHash(method string, params []any, nonce uint64) ([]byte, error) {
	if params == nil {
		params = []any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	var normalized []any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if normalized == nil {
		normalized = []any{}
	}
	if raw, err = json.Marshal(normalized); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return crypto.Hash([]byte(method), []byte{0}, raw, []byte{0}, binary.BigEndian.AppendUint64(nil, nonce)), nil
}

// Sign authenticates a call made by the owner of key.
func Sign(key *ecdsa.PrivateKey, method string, params []any, nonce uint64) (*Auth, error) {
	digest, err := SigningHash(method, params, nonce)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(key, digest)
	if err != nil {
		return nil, err
	}
	return &Auth{
		PublicKey: crypto.PublicKeyToString(&key.PublicKey),
		Nonce:     nonce,
		Signature: hex.EncodeToString(sig),
	}, nil
}

// Authenticator checks request signatures. The last nonce of every
// address is kept in the state store, so a signed request is accepted at
// most once, across restarts too.
type Authenticator struct {
	db *state.DB
}

func NewAuthenticator(db *state.DB) *Authenticator {
	return &Authenticator{db: db}
}

func nonceKey(a address.Address) []byte {
	return storage.AccountKey(storage.NsAuth, storage.FieldNonce, a)
}

// Verify checks that auth was produced by caller for this exact call and
// consumes its nonce. Nonces must strictly increase per address.
func (a *Authenticator) Verify(method string, params []any, caller address.Address, auth *Auth) error {
	if auth == nil {
		return fmt.Errorf("%w: %s requires a signed request", ErrUnauthenticated, method)
	}
	pub, err := crypto.PublicKeyFromString(auth.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if signer := crypto.PubkeyToAddress(*pub); signer != caller {
		return fmt.Errorf("%w: signed by %s on behalf of %s", ErrUnauthenticated, signer, caller)
	}
	sig, err := hex.DecodeString(auth.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrUnauthenticated)
	}
	digest, err := SigningHash(method, params, auth.Nonce)
	if err != nil {
		return err
	}
	if err := crypto.Verify(pub, digest, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return a.db.Update(func(txn *state.Txn) error {
		last, err := a.lastNonceIn(txn, caller)
		if err != nil {
			return err
		}
		if auth.Nonce <= last {
			authLogger().Debugw("Replayed nonce", "caller", caller, "nonce", auth.Nonce, "last", last)
			return fmt.Errorf("%w: %d, last %d", ErrNonceUsed, auth.Nonce, last)
		}
		txn.Put(nonceKey(caller), account.EncodeUint64(auth.Nonce))
		return nil
	})
}

// LastNonce is the highest nonce accepted from a, zero if none.
func (a *Authenticator) LastNonce(addr address.Address) (uint64, error) {
	var n uint64
	err := a.db.View(func(r state.Reader) error {
		var err error
		n, err = a.lastNonceIn(r, addr)
		return err
	})
	return n, err
}

func (a *Authenticator) lastNonceIn(r state.Reader, addr address.Address) (uint64, error) {
	raw, err := r.Get(nonceKey(addr))
	if err != nil {
		return 0, err
	}
	return account.DecodeUint64(raw)
}
