package service

import (
	"fmt"

	"github.com/drip/core/address"
	"github.com/drip/core/deploy"
	"github.com/drip/core/state"
)

// Version is reported by node.version.
var Version = "0.1.0"

type NodeInfo struct {
	Version  string          `json:"version"`
	Token    address.Address `json:"token"`
	Faucet   address.Address `json:"faucet"`
	Deployer address.Address `json:"deployer"`
	Reloaded bool            `json:"reloaded"`
	Services []string        `json:"services"`
}

// NodeService answers "node.*" calls about the running deployment.
type NodeService struct {
	dep      *deploy.Deployment
	deployer address.Address
	registry *Registry
	clock    Clock
}

func NewNodeService(dep *deploy.Deployment, deployer address.Address, r *Registry, clock Clock) *NodeService {
	if clock == nil {
		clock = WallClock
	}
	return &NodeService{dep: dep, deployer: deployer, registry: r, clock: clock}
}

func (s *NodeService) ServiceName() string { return "node" }

func (s *NodeService) Has(method string) bool {
	switch method {
	case "version", "time", "info", "nonce":
		return true
	}
	return false
}

func (s *NodeService) Exec(method string, params []any) any {
	switch method {
	case "version":
		return Version
	case "time":
		return s.clock()
	case "info":
		return NodeInfo{
			Version:  Version,
			Token:    s.dep.Token.Address(),
			Faucet:   s.dep.Faucet.Address(),
			Deployer: s.deployer,
			Reloaded: s.dep.Reloaded,
			Services: s.registry.Names(),
		}
	case "nonce":
		a, err := paramAddress(params, 0)
		if err != nil {
			return err
		}
		auth := s.registry.Authenticator()
		if auth == nil {
			return fmt.Errorf("%w: no authenticator configured", ErrUnauthenticated)
		}
		return result(auth.LastNonce(a))
	default:
		return fmt.Errorf("%w: node.%s", ErrMethodNotFound, method)
	}
}

// RegisterDeployment registers the node, token and faucet services and
// authenticates their guarded methods against nonces kept in db.
func RegisterDeployment(r *Registry, db *state.DB, dep *deploy.Deployment, deployer address.Address, clock Clock) {
	r.SetAuthenticator(NewAuthenticator(db))
	r.Register(NewTokenService(dep.Token))
	r.Register(NewFaucetService(dep.Faucet, clock))
	r.Register(NewNodeService(dep, deployer, r, clock))
}
