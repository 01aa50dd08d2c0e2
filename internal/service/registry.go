package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/drip/internal/logger"
	"go.uber.org/zap"
)

func registryLogger() *zap.SugaredLogger {
	return logger.Named("registry")
}

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrMethodNotFound  = errors.New("method not found")
	ErrInvalidParams   = errors.New("invalid params")
)

// Service answers "<name>.<method>" calls. Exec returns the result, or an
// error value on failure.
type Service interface {
	Exec(method string, params []any) any
	ServiceName() string
}

type StoppableService interface {
	Service
	Stop() error
}

// MethodSet is implemented by services that know their method names.
type MethodSet interface {
	Has(method string) bool
}

// GuardedService marks the methods that act on behalf of params[0]. Those
// run only for requests signed by that address.
type GuardedService interface {
	Service
	Guarded(method string) bool
}

type Registry struct {
	services map[string]Service
	auth     *Authenticator
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Service)}
}

func (r *Registry) Register(s Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[s.ServiceName()] = s
	registryLogger().Infow("Service registered", "name", s.ServiceName())
}

func (r *Registry) GetService(name string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[name]
	return s, ok
}

// Names lists registered services in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for n := range r.services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetAuthenticator installs the signature checker for guarded methods.
// Without one every guarded call is refused.
func (r *Registry) SetAuthenticator(a *Authenticator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth = a
}

func (r *Registry) Authenticator() *Authenticator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.auth
}

// Resolve reports whether method names a registered service method and
// returns its canonical "svc.method" form. Services that cannot list
// their methods resolve to the service name alone.
func (r *Registry) Resolve(method string) (string, bool) {
	svc, m := ParseMethod(method)
	s, ok := r.GetService(svc)
	if !ok {
		return "", false
	}
	ms, ok := s.(MethodSet)
	if !ok {
		return svc, true
	}
	if !ms.Has(m) {
		return "", false
	}
	return svc + "." + m, true
}

// Exec dispatches an unsigned "svc.method" call.
func (r *Registry) Exec(method string, params []any) any {
	return r.ExecSigned(method, params, nil)
}

// ExecSigned dispatches a call together with its authentication, which
// guarded methods require.
func (r *Registry) ExecSigned(method string, params []any, auth *Auth) any {
	svc, m := ParseMethod(method)
	s, ok := r.GetService(svc)
	if !ok {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, svc)
	}
	if g, ok := s.(GuardedService); ok && g.Guarded(m) {
		if err := r.authorize(method, params, auth); err != nil {
			return err
		}
	}
	registryLogger().Debugw("Executing method", "service", svc, "method", m, "params", len(params))
	return s.Exec(m, params)
}

func (r *Registry) authorize(method string, params []any, auth *Auth) error {
	a := r.Authenticator()
	if a == nil {
		return fmt.Errorf("%w: no authenticator configured", ErrUnauthenticated)
	}
	if auth == nil {
		return fmt.Errorf("%w: %s requires a signed request", ErrUnauthenticated, method)
	}
	caller, err := paramAddress(params, 0)
	if err != nil {
		return err
	}
	return a.Verify(method, params, caller, auth)
}

// StopAllServices stops every service that supports it.
func (r *Registry) StopAllServices() error {
	r.mu.RLock()
	services := make([]Service, 0, len(r.services))
	for _, s := range r.services {
		services = append(services, s)
	}
	r.mu.RUnlock()

	var errs []error
	for _, s := range services {
		if stoppable, ok := s.(StoppableService); ok {
			if err := stoppable.Stop(); err != nil {
				registryLogger().Errorw("Failed to stop service", "name", s.ServiceName(), "err", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// ParseMethod splits "faucet.status" or "drip.faucet.status" into its
// service and method names.
func ParseMethod(method string) (string, string) {
	parts := strings.Split(method, ".")
	if parts[0] == "drip" && len(parts) == 3 {
		return parts[1], parts[2]
	}
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return method, method
}
