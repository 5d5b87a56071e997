package license

import "strings"

// License binds a FeatureMap to a vendor and application. Before it is saved
// it has no hardware binding; a License returned by Manager.Load carries the
// binding read from the file, already checked against the device.
type License struct {
	vendor      string
	application string
	features    *FeatureMap
	hardware    HardwareKey
	bound       bool
}

// NewLicense returns an empty, unbound license.
func NewLicense() *License {
	return &License{features: NewFeatureMap()}
}

// Features returns the feature map. Mutate it only through Manager.Add or
// FeatureMap.Add from a single goroutine.
func (l *License) Features() *FeatureMap {
	if l.features == nil {
		l.features = NewFeatureMap()
	}
	return l.features
}

func (l *License) Vendor() string      { return l.vendor }
func (l *License) Application() string { return l.application }

// HardwareKey returns the binding and whether the license is bound.
func (l *License) HardwareKey() (HardwareKey, bool) {
	return l.hardware, l.bound
}

// Clone returns a deep copy.
func (l *License) Clone() *License {
	return &License{
		vendor:      l.vendor,
		application: l.application,
		features:    l.features.Clone(),
		hardware:    l.hardware,
		bound:       l.bound,
	}
}

func (l *License) assign(doc *Document) {
	l.vendor = doc.Vendor
	l.application = doc.Application
	l.features = doc.Features
	l.hardware = doc.HardwareKey
	l.bound = true
}

// IdentitySeparator joins vendor and application in an Identity. Names that
// contain it are rejected so every key maps back to exactly one pair.
const IdentitySeparator = "/"

// Identity returns the loader key for a vendor and application.
func Identity(vendor, application string) string {
	return strings.TrimSpace(vendor) + IdentitySeparator + strings.TrimSpace(application)
}

// validIdentity reports whether trimmed vendor and application names can
// form an Identity.
func validIdentity(vendor, application string) bool {
	return vendor != "" && application != "" &&
		!strings.Contains(vendor, IdentitySeparator) && !strings.Contains(application, IdentitySeparator)
}
