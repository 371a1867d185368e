package ocr

import (
	"fmt"
	"sort"
	"sync"

	"silkroute/internal/config"
	"silkroute/internal/port"
)

// ProviderFactory creates an OCR provider from its config block.
type ProviderFactory func(cfg *config.OCRProviderConfig) (port.OCRProvider, error)

var (
	factoryMu sync.RWMutex
	factories = make(map[string]ProviderFactory)
)

// RegisterProvider makes a provider constructor available by name.
// Provider packages call this from init().
func RegisterProvider(name string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[name] = factory
}

// NewProvider constructs the provider named in cfg.Provider.
func NewProvider(cfg *config.OCRProviderConfig) (port.OCRProvider, error) {
	factoryMu.RLock()
	factory, ok := factories[cfg.Provider]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown OCR provider %q (registered: %v)", cfg.Provider, registeredNames())
	}
	return factory(cfg)
}

// NewChain builds providers for every configured slot, in order, and wraps
// them in a FallbackProvider when there is more than one.
func NewChain(chain []*config.OCRProviderConfig) (port.OCRProvider, error) {
	providers := make([]port.OCRProvider, 0, len(chain))
	for _, cfg := range chain {
		p, err := NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no OCR providers configured")
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return NewFallbackProvider(providers...), nil
}

func registeredNames() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
