package providers

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrUnknownProvider  = errors.New("unknown login provider")
	ErrInvalidSignature = errors.New("provider payload signature mismatch")
	ErrStalePayload     = errors.New("provider payload too old")
	ErrMalformedPayload = errors.New("malformed provider payload")
)

// Payload is the raw key/value data handed over by the outer web layer
// after the provider exchange completed.
type Payload map[string]string

// CanonicalProfile is the provider-agnostic identity tuple every adapter
// normalizes to.
type CanonicalProfile struct {
	Provider      string
	ExternalID    string
	Email         string
	EmailVerified bool
	DisplayName   string
	AvatarURL     string
}

// Adapter verifies a provider payload and extracts a canonical profile.
type Adapter interface {
	Name() string
	Verify(payload Payload) error
	Profile(payload Payload) (CanonicalProfile, error)
}

// Registry holds the configured adapters in a name-keyed map, built once
// at process start. No global registration.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Resolve verifies the payload with the named adapter and returns the
// canonical profile in one step.
func (r *Registry) Resolve(name string, payload Payload) (CanonicalProfile, error) {
	adapter, ok := r.Get(name)
	if !ok {
		return CanonicalProfile{}, ErrUnknownProvider
	}
	if err := adapter.Verify(payload); err != nil {
		return CanonicalProfile{}, err
	}
	return adapter.Profile(payload)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
