package payment

import (
	"errors"
	"testing"

	"github.com/mapforge-io/mapforge/app/models"
)

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry(
		&PayPalClient{},
		&StripeClient{},
		&PayOSClient{},
		&VNPayClient{},
	)

	for _, gateway := range []string{models.GatewayPayPal, models.GatewayStripe, models.GatewayPayOS, models.GatewayVNPay} {
		adapter, err := registry.Resolve(gateway)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", gateway, err)
		}
		if adapter.Gateway() != gateway {
			t.Fatalf("Resolve(%q) returned adapter for %q", gateway, adapter.Gateway())
		}
	}
}

func TestRegistryResolveNormalizesCase(t *testing.T) {
	registry := NewRegistry(&PayPalClient{})
	if _, err := registry.Resolve(" PayPal "); err != nil {
		t.Fatalf("expected case-insensitive resolve, got error: %v", err)
	}
}

func TestRegistryResolveUnsupported(t *testing.T) {
	registry := NewRegistry(&PayPalClient{})
	_, err := registry.Resolve("square")
	if !errors.Is(err, ErrUnsupportedGateway) {
		t.Fatalf("expected ErrUnsupportedGateway, got %v", err)
	}
}

func TestRegistrySupported(t *testing.T) {
	registry := NewRegistry(&VNPayClient{}, &PayPalClient{})
	got := registry.Supported()
	if len(got) != 2 || got[0] != models.GatewayPayPal || got[1] != models.GatewayVNPay {
		t.Fatalf("unexpected supported list: %v", got)
	}
}
