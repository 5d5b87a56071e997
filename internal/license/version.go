package license

import (
	"strconv"
	"strings"
)

// FeatureVersion is the version attached to a feature grant. The zero value
// is unset, which is distinct from version 0.
type FeatureVersion struct {
	value uint32
	set   bool
}

// NewFeatureVersion returns a set version.
func NewFeatureVersion(v uint32) FeatureVersion {
	return FeatureVersion{value: v, set: true}
}

// ParseFeatureVersion parses a non-negative decimal integer. Empty or blank
// text yields the unset version.
func ParseFeatureVersion(text string) (FeatureVersion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return FeatureVersion{}, nil
	}
	v, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return FeatureVersion{}, newError("parse feature version", ErrInvalidFormat, text, err)
	}
	return NewFeatureVersion(uint32(v)), nil
}

func (v FeatureVersion) IsSet() bool { return v.set }

// Value returns the numeric version and whether it is set.
func (v FeatureVersion) Value() (uint32, bool) { return v.value, v.set }

// AtLeast reports whether v satisfies min. An unset minimum accepts anything;
// an unset version never satisfies a set minimum.
func (v FeatureVersion) AtLeast(min FeatureVersion) bool {
	if !min.set {
		return true
	}
	return v.set && v.value >= min.value
}

func (v FeatureVersion) String() string {
	if !v.set {
		return ""
	}
	return strconv.FormatUint(uint64(v.value), 10)
}
