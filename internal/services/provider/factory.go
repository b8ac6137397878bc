package provider

import (
	"fmt"

	"bus-ticketing/config"
)

// New selects the configured provider implementation.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case "", "simulated":
		return NewSimulated(), nil
	case "gateway":
		if cfg.GatewayBaseURL == "" {
			return nil, fmt.Errorf("gateway provider requires GATEWAY_BASE_URL")
		}
		return NewGateway(GatewayConfig{
			BaseURL: cfg.GatewayBaseURL,
			APIKey:  cfg.GatewayAPIKey,
			HMACKey: cfg.GatewayHMACKey,
			Timeout: cfg.ProviderTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", cfg.Provider)
	}
}
