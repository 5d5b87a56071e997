package license

import (
	"sort"
	"sync"
	"time"
)

// Loader caches the currently loaded license per identity for a verifier.
// Queries take a read lock; Store and Load replace an entry under the write
// lock so readers never see a partially updated license.
type Loader struct {
	mu       sync.RWMutex
	licenses map[string]*License
	now      func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithClock sets the time source used to evaluate expiry.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		licenses: make(map[string]*License),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store caches a copy of lic under identity, replacing any previous entry.
func (l *Loader) Store(identity string, lic *License) {
	if lic == nil {
		return
	}
	c := lic.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.licenses[identity] = c
}

// Load reads path through mgr and caches the result under mgr.Identity().
// The previous entry is kept when loading fails.
func (l *Loader) Load(mgr *Manager, path string, deviceKeys []HardwareKey) error {
	lic := NewLicense()
	if err := mgr.Load(path, deviceKeys, lic); err != nil {
		return err
	}
	l.Store(mgr.Identity(), lic)
	return nil
}

// IsValid reports whether feature is usable today under the license cached
// for identity. An unknown identity is never valid.
func (l *Loader) IsValid(identity, feature string) bool {
	return l.IsValidVersion(identity, feature, FeatureVersion{})
}

// IsValidVersion is IsValid with a minimum feature version.
func (l *Loader) IsValidVersion(identity, feature string, minVersion FeatureVersion) bool {
	today := DateOf(l.now())

	l.mu.RLock()
	defer l.mu.RUnlock()

	lic, ok := l.licenses[identity]
	if !ok {
		return false
	}
	return lic.Features().IsUsable(feature, minVersion, today)
}

// Lookup returns a copy of the license cached for identity.
func (l *Loader) Lookup(identity string) (*License, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lic, ok := l.licenses[identity]
	if !ok {
		return nil, false
	}
	return lic.Clone(), true
}

// Identities returns the cached identities in sorted order.
func (l *Loader) Identities() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.licenses))
	for id := range l.licenses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.licenses)
}
