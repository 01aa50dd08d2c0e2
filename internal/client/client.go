package client

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/drip/internal/network"
	"github.com/drip/internal/service"
)

const defaultTimeout = 15 * time.Second

// Client talks JSON-RPC to a drip node.
type Client struct {
	url   string
	http  *http.Client
	id    atomic.Int64
	nonce atomic.Uint64
}

func New(url string) *Client {
	return &Client{url: url, http: &http.Client{Timeout: defaultTimeout}}
}

func (c *Client) URL() string { return c.url }

// Call invokes method and decodes the result into out, which may be nil.
// A JSON-RPC failure is returned as *network.Error.
func (c *Client) Call(ctx context.Context, out any, method string, params ...any) error {
	return c.do(ctx, out, method, params, nil)
}

// CallSigned is Call for methods acting on behalf of params[0], which must
// be the address of key.
func (c *Client) CallSigned(ctx context.Context, key *ecdsa.PrivateKey, out any, method string, params ...any) error {
	auth, err := service.Sign(key, method, params, c.nextNonce())
	if err != nil {
		return fmt.Errorf("%s: sign: %w", method, err)
	}
	return c.do(ctx, out, method, params, auth)
}

// nextNonce follows the wall clock in nanoseconds and never repeats.
func (c *Client) nextNonce() uint64 {
	for {
		last := c.nonce.Load()
		n := max(uint64(time.Now().UnixNano()), last+1)
		if c.nonce.CompareAndSwap(last, n) {
			return n
		}
	}
}

func (c *Client) do(ctx context.Context, out any, method string, params []any, auth *service.Auth) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(network.Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      int(c.id.Add(1)),
		Auth:    auth,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http %d: %s", method, resp.StatusCode, bytes.TrimSpace(data))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *network.Error  `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}
