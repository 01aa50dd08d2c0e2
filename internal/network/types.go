package network

import (
	"errors"

	"github.com/drip/core/access"
	"github.com/drip/core/common"
	"github.com/drip/core/faucet"
	"github.com/drip/core/token"
	"github.com/drip/internal/service"
)

// Request is a JSON-RPC 2.0 call. Auth is required by methods that act on
// behalf of params[0].
type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []any         `json:"params"`
	ID      int           `json:"id"`
	Auth    *service.Auth `json:"auth,omitempty"`
}

type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result"`
	ID      int    `json:"id"`
	Error   *Error `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// JSON-RPC error codes. The -32000 range carries domain failures.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	CodeUnauthorized      = -32001
	CodePaused            = -32002
	CodeCooldown          = -32003
	CodeLifetimeLimit     = -32004
	CodeSupplyCapExceeded = -32005
	CodeOverflow          = -32006
	CodeInvalidArgument   = -32007
)

// ErrorCode maps an Exec failure onto its JSON-RPC code.
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, service.ErrServiceNotFound), errors.Is(err, service.ErrMethodNotFound):
		return CodeMethodNotFound
	case errors.Is(err, service.ErrInvalidParams):
		return CodeInvalidParams
	case errors.Is(err, access.ErrUnauthorized), errors.Is(err, service.ErrUnauthenticated):
		return CodeUnauthorized
	case errors.Is(err, faucet.ErrFaucetPaused):
		return CodePaused
	case errors.Is(err, faucet.ErrCooldownNotElapsed):
		return CodeCooldown
	case errors.Is(err, faucet.ErrLifetimeLimitReached):
		return CodeLifetimeLimit
	case errors.Is(err, token.ErrSupplyCapExceeded):
		return CodeSupplyCapExceeded
	case errors.Is(err, common.ErrArithmeticOverflow):
		return CodeOverflow
	case errors.Is(err, token.ErrInvalidReceiver),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, access.ErrInvalidOwner):
		return CodeInvalidArgument
	default:
		return CodeInternal
	}
}
