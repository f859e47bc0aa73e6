// Package pageload decides when a full-page loading overlay may be hidden.
//
// A page mounts under a Provider that holds a Registry of named resources
// ("map", ...) that have announced readiness. A Gate watches the page's
// images, the registry and a pair of min/max timers and flips LoaderHidden,
// then ResourcesReady 400ms later. A Layout applies the dashboard loader
// policy on top of it.
package pageload

import (
	"context"
	"errors"
	"sync"
)

// MapKey is the registry key signaled by MapNotifier.
const MapKey = "map"

var (
	// ErrNoProvider is returned when the registry is used outside a Provider scope.
	ErrNoProvider = errors.New("pageload: no resource provider in context")
	// ErrNoMapWidget is returned when a MapNotifier is mounted without a map.
	ErrNoMapWidget = errors.New("pageload: map notifier mounted outside a map widget")
)

// ============================================================
// Registry
// ============================================================

// Registry is a set of resource keys that announced readiness.
type Registry struct {
	mu      sync.Mutex
	ready   map[string]struct{}
	waiters map[string]chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		ready:   make(map[string]struct{}),
		waiters: make(map[string]chan struct{}),
	}
}

// SignalReady записывает key как готовый. Повторные вызовы ничего не меняют.
func (r *Registry) SignalReady(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ready[key]; ok {
		return
	}
	r.ready[key] = struct{}{}
	if ch, ok := r.waiters[key]; ok {
		close(ch)
	}
}

func (r *Registry) IsReady(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.ready[key]
	return ok
}

// Wait returns a channel that is closed once key is signaled.
func (r *Registry) Wait(key string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.waiters[key]
	if !ok {
		ch = make(chan struct{})
		r.waiters[key] = ch
		if _, done := r.ready[key]; done {
			close(ch)
		}
	}
	return ch
}

// Keys returns the signaled keys in no particular order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.ready))
	for k := range r.ready {
		keys = append(keys, k)
	}
	return keys
}

// ============================================================
// Provider
// ============================================================

// Provider owns the registry of the page mounted at the current path.
type Provider struct {
	mu       sync.Mutex
	path     string
	registry *Registry
}

func NewProvider(path string) *Provider {
	return &Provider{path: path, registry: NewRegistry()}
}

// Reset пересоздаёт реестр при смене пути и возвращает актуальный реестр.
func (p *Provider) Reset(path string) *Registry {
	p.mu.Lock()
	defer p.mu.Unlock()

	if path != p.path {
		p.path = path
		p.registry = NewRegistry()
	}
	return p.registry
}

func (p *Provider) Registry() *Registry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registry
}

func (p *Provider) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

// ============================================================
// Context scope
// ============================================================

type scopeKey struct{}

// scope is what a context carries: the provider and, for a mounted page,
// the registry that was current when the page mounted.
type scope struct {
	provider *Provider
	registry *Registry
}

// WithProvider binds p to ctx. Registry lookups through ctx follow p's
// current registry.
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope{provider: p})
}

// withPage binds p and pins registry, so a page's context keeps writing
// into its own registry after the provider moves on.
func withPage(ctx context.Context, p *Provider, registry *Registry) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope{provider: p, registry: registry})
}

func scopeFrom(ctx context.Context) (scope, error) {
	sc, ok := ctx.Value(scopeKey{}).(scope)
	if !ok || sc.provider == nil {
		return scope{}, ErrNoProvider
	}
	return sc, nil
}

// FromContext returns the provider bound to ctx or ErrNoProvider.
func FromContext(ctx context.Context) (*Provider, error) {
	sc, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}
	return sc.provider, nil
}

// MustFromContext is FromContext for callers that treat a missing provider as a bug.
func MustFromContext(ctx context.Context) *Provider {
	p, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return p
}

// RegistryFromContext возвращает реестр, в который пишет ctx: реестр
// страницы, если ctx выдан Page.Context, иначе текущий реестр провайдера.
func RegistryFromContext(ctx context.Context) (*Registry, error) {
	sc, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}
	if sc.registry != nil {
		return sc.registry, nil
	}
	return sc.provider.Registry(), nil
}

func SignalReady(ctx context.Context, key string) error {
	r, err := RegistryFromContext(ctx)
	if err != nil {
		return err
	}
	r.SignalReady(key)
	return nil
}

func IsReady(ctx context.Context, key string) (bool, error) {
	r, err := RegistryFromContext(ctx)
	if err != nil {
		return false, err
	}
	return r.IsReady(key), nil
}
