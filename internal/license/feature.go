package license

import (
	"sort"
	"strings"
)

// Feature is one entitlement grant.
type Feature struct {
	Name    string
	Version FeatureVersion
	Issued  Date
	Expires Date
	Count   uint32
}

// NormalizeFeatureName trims and lower-cases a feature name.
func NormalizeFeatureName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewFeature validates a grant. The name is normalized.
func NewFeature(name string, version FeatureVersion, issued, expires Date, count uint32) (Feature, error) {
	normalized := NormalizeFeatureName(name)
	if normalized == "" {
		return Feature{}, newError("new feature", ErrInvalidFormat, name, nil)
	}
	if issued.IsZero() || expires.IsZero() || expires.BeforeOrEqual(issued) {
		return Feature{}, newError("new feature", ErrInvalidRange, normalized+" "+issued.String()+".."+expires.String(), nil)
	}
	if count == 0 {
		return Feature{}, newError("new feature", ErrInvalidRange, normalized+" count 0", nil)
	}
	return Feature{
		Name:    normalized,
		Version: version,
		Issued:  issued,
		Expires: expires,
		Count:   count,
	}, nil
}

// FeatureMap holds the features of one license keyed by normalized name.
// It is not safe for concurrent writers.
type FeatureMap struct {
	features map[string]Feature
}

func NewFeatureMap() *FeatureMap {
	return &FeatureMap{features: make(map[string]Feature)}
}

// Add validates and inserts a grant. Re-adding an existing name fails with
// ErrDuplicateFeature; the existing grant is kept.
func (m *FeatureMap) Add(name string, version FeatureVersion, issued, expires Date, count uint32) error {
	f, err := NewFeature(name, version, issued, expires, count)
	if err != nil {
		return err
	}
	return m.insert(f)
}

func (m *FeatureMap) insert(f Feature) error {
	if m.features == nil {
		m.features = make(map[string]Feature)
	}
	if _, ok := m.features[f.Name]; ok {
		return newError("add feature", ErrDuplicateFeature, f.Name, nil)
	}
	m.features[f.Name] = f
	return nil
}

// Lookup returns the grant for name.
func (m *FeatureMap) Lookup(name string) (Feature, bool) {
	if m == nil {
		return Feature{}, false
	}
	f, ok := m.features[NormalizeFeatureName(name)]
	return f, ok
}

func (m *FeatureMap) IsExist(name string) bool {
	_, ok := m.Lookup(name)
	return ok
}

// IsValid reports whether the feature exists with a positive count and a
// version of at least minVersion. Pass the zero FeatureVersion to skip the
// version check.
func (m *FeatureMap) IsValid(name string, minVersion FeatureVersion) bool {
	f, ok := m.Lookup(name)
	return ok && f.Count > 0 && f.Version.AtLeast(minVersion)
}

// IsExpired reports whether the feature exists and asOf is after its expire
// date. The expire date itself is still usable.
func (m *FeatureMap) IsExpired(name string, asOf Date) bool {
	f, ok := m.Lookup(name)
	return ok && asOf.After(f.Expires)
}

// IsUsable is the predicate a verifier should apply.
func (m *FeatureMap) IsUsable(name string, minVersion FeatureVersion, asOf Date) bool {
	return m.IsExist(name) && m.IsValid(name, minVersion) && !m.IsExpired(name, asOf)
}

func (m *FeatureMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.features)
}

// Names returns the feature names in sorted order.
func (m *FeatureMap) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.features))
	for name := range m.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Features returns the grants sorted by name.
func (m *FeatureMap) Features() []Feature {
	names := m.Names()
	out := make([]Feature, 0, len(names))
	for _, name := range names {
		out = append(out, m.features[name])
	}
	return out
}

func (m *FeatureMap) Clone() *FeatureMap {
	c := NewFeatureMap()
	if m == nil {
		return c
	}
	for k, v := range m.features {
		c.features[k] = v
	}
	return c
}

func (m *FeatureMap) Equal(o *FeatureMap) bool {
	if m.Len() != o.Len() {
		return false
	}
	for _, f := range m.Features() {
		other, ok := o.Lookup(f.Name)
		if !ok || other != f {
			return false
		}
	}
	return true
}
