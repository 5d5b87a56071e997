// Package domain contains the models exchanged between the license service,
// the HTTP layer and API clients.
package domain

import (
	"time"
)

// FeatureInfo describes one grant of a loaded license.
type FeatureInfo struct {
	Name    string  `json:"name"`
	Version *uint32 `json:"version,omitempty"`
	Issued  string  `json:"issued"`
	Expires string  `json:"expires"`
	Count   uint32  `json:"count"`
	Expired bool    `json:"expired"`
}

// LicenseSummary describes a license held by the verifier cache.
type LicenseSummary struct {
	Identity    string        `json:"identity"`
	Vendor      string        `json:"vendor"`
	Application string        `json:"application"`
	HardwareKey string        `json:"hardware_key"`
	Source      string        `json:"source"`
	LoadedAt    time.Time     `json:"loaded_at"`
	Features    []FeatureInfo `json:"features"`
}

// VerifyResult is the answer to "is feature F valid for identity I".
type VerifyResult struct {
	Identity   string    `json:"identity"`
	Feature    string    `json:"feature"`
	MinVersion *uint32   `json:"min_version,omitempty"`
	Valid      bool      `json:"valid"`
	CheckedAt  time.Time `json:"checked_at"`
}

// LoadResult reports an administrative license load.
type LoadResult struct {
	Identity string    `json:"identity"`
	Source   string    `json:"source"`
	Features int       `json:"features"`
	LoadedAt time.Time `json:"loaded_at"`
}

// LoaderStatus summarizes the verifier cache for health reporting.
type LoaderStatus struct {
	Licenses     int      `json:"licenses"`
	Identities   []string `json:"identities"`
	HardwareKeys []string `json:"hardware_keys"`
}

// License error codes
const (
	ErrCodeInvalidFormat      = "INVALID_FORMAT"
	ErrCodeInvalidRange       = "INVALID_RANGE"
	ErrCodeDuplicateFeature   = "DUPLICATE_FEATURE"
	ErrCodeCorruptLicense     = "CORRUPT_LICENSE"
	ErrCodeUnsupportedVersion = "UNSUPPORTED_VERSION"
	ErrCodeIdentityMismatch   = "IDENTITY_MISMATCH"
	ErrCodeHardwareMismatch   = "HARDWARE_MISMATCH"
	ErrCodeIOError            = "IO_ERROR"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)
