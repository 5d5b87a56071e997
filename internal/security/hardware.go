package security

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"lickey/internal/infrastructure"
	"lickey/internal/license"
)

// ErrNoHardwareKey is returned when no adapter exposes a usable address.
var ErrNoHardwareKey = errors.New("no hardware key available")

// InterfaceLister enumerates network interfaces. net.Interfaces in
// production.
type InterfaceLister func() ([]net.Interface, error)

// HardwareKeyGetter returns the candidate hardware keys of this device: the
// MAC address of every network adapter, or a configured override list.
type HardwareKeyGetter struct {
	list          InterfaceLister
	override      []license.HardwareKey
	logger        *slog.Logger
	cache         []license.HardwareKey
	cacheMutex    sync.RWMutex
	cacheExpiry   time.Time
	cacheDuration time.Duration
}

// HardwareKeyOption configures a HardwareKeyGetter.
type HardwareKeyOption func(*HardwareKeyGetter)

// WithInterfaceLister replaces net.Interfaces.
func WithInterfaceLister(list InterfaceLister) HardwareKeyOption {
	return func(g *HardwareKeyGetter) { g.list = list }
}

// WithCacheDuration sets how long an enumeration is reused.
func WithCacheDuration(d time.Duration) HardwareKeyOption {
	return func(g *HardwareKeyGetter) { g.cacheDuration = d }
}

// NewHardwareKeyGetter parses override, which may be empty, and returns a
// getter. Adapters are enumerated only when no override is configured.
func NewHardwareKeyGetter(logger *slog.Logger, override []string, opts ...HardwareKeyOption) (*HardwareKeyGetter, error) {
	g := &HardwareKeyGetter{
		list:          net.Interfaces,
		logger:        infrastructure.WithComponent(logger, "hardware_keys"),
		cacheDuration: time.Minute,
	}
	for _, text := range override {
		key, err := license.ParseHardwareKey(text)
		if err != nil {
			return nil, fmt.Errorf("invalid hardware key override: %w", err)
		}
		g.override = append(g.override, key)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Keys returns the candidate keys, deduplicated, in adapter order.
func (g *HardwareKeyGetter) Keys() ([]license.HardwareKey, error) {
	if len(g.override) > 0 {
		return append([]license.HardwareKey(nil), g.override...), nil
	}

	g.cacheMutex.RLock()
	if g.cache != nil && time.Now().Before(g.cacheExpiry) {
		keys := append([]license.HardwareKey(nil), g.cache...)
		g.cacheMutex.RUnlock()
		return keys, nil
	}
	g.cacheMutex.RUnlock()

	keys, err := g.enumerate()
	if err != nil {
		return nil, err
	}

	g.cacheMutex.Lock()
	g.cache = keys
	g.cacheExpiry = time.Now().Add(g.cacheDuration)
	g.cacheMutex.Unlock()

	return append([]license.HardwareKey(nil), keys...), nil
}

// Strings returns Keys in canonical text form.
func (g *HardwareKeyGetter) Strings() ([]string, error) {
	keys, err := g.Keys()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out, nil
}

func (g *HardwareKeyGetter) enumerate() ([]license.HardwareKey, error) {
	interfaces, err := g.list()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	seen := make(map[license.HardwareKey]bool)
	var keys []license.HardwareKey
	for _, iface := range interfaces {
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		key, err := license.HardwareKeyFromAddr(iface.HardwareAddr)
		if err != nil {
			g.logger.Debug("Skipping adapter address",
				slog.String("interface", iface.Name),
				slog.String("address", iface.HardwareAddr.String()))
			continue
		}
		if key.IsZero() || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
		g.logger.Debug("Hardware key found",
			slog.String("interface", iface.Name),
			slog.String("key", key.String()),
			slog.String("flags", iface.Flags.String()))
	}

	if len(keys) == 0 {
		return nil, ErrNoHardwareKey
	}
	return keys, nil
}
