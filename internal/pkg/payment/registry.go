package payment

import (
	"fmt"
	"strings"

	"github.com/mapforge-io/mapforge/app/models"
)

// Registry maps gateway identifiers to adapter implementations. The set of
// gateways is closed and resolved per call; nothing is persisted.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Gateway()] = a
	}
	return r
}

// NewRegistryFromEnv wires all supported gateway clients with env config.
func NewRegistryFromEnv() *Registry {
	return NewRegistry(
		NewPayPalClientFromEnv(),
		NewStripeClientFromEnv(),
		NewPayOSClientFromEnv(),
		NewVNPayClientFromEnv(),
	)
}

// Resolve returns the adapter for a gateway identifier.
func (r *Registry) Resolve(gateway string) (Adapter, error) {
	g := strings.ToLower(strings.TrimSpace(gateway))
	adapter, ok := r.adapters[g]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGateway, gateway)
	}
	return adapter, nil
}

// Supported lists the registered gateway identifiers.
func (r *Registry) Supported() []string {
	out := make([]string, 0, len(r.adapters))
	for _, g := range []string{models.GatewayPayPal, models.GatewayStripe, models.GatewayPayOS, models.GatewayVNPay} {
		if _, ok := r.adapters[g]; ok {
			out = append(out, g)
		}
	}
	return out
}
