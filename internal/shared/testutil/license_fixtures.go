package testutil

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"lickey/internal/license"
)

// TestSecret signs every fixture license.
const TestSecret = "lickey-fixture-signing-secret"

// DeviceKey is the hardware key fixture licenses are bound to by default.
var DeviceKey = license.MustHardwareKey("11-22-33-AA-BB-CC")

// FeatureGrant is one feature of a fixture license.
type FeatureGrant struct {
	Name    string
	Version string
	Issued  license.Date
	Expires string
	Count   uint32
}

// ProGrant is feature "pro" v2, count 3, expiring 2030-01-01.
func ProGrant() FeatureGrant {
	return FeatureGrant{
		Name:    "pro",
		Version: "2",
		Issued:  license.MustDate(2024, time.January, 1),
		Expires: "20300101",
		Count:   3,
	}
}

// NewCodec returns a codec keyed with TestSecret.
func NewCodec(t testing.TB) *license.Codec {
	t.Helper()
	codec, err := license.NewCodec([]byte(TestSecret))
	require.NoError(t, err)
	return codec
}

// WriteLicense saves a signed license for vendor/application bound to key.
func WriteLicense(t testing.TB, fs afero.Fs, path, vendor, application string, key license.HardwareKey, grants ...FeatureGrant) {
	t.Helper()

	mgr, err := license.NewManager(vendor, application, NewCodec(t), license.WithFs(fs))
	require.NoError(t, err)

	lic := license.NewLicense()
	for _, g := range grants {
		require.NoError(t, mgr.Add(g.Name, g.Version, g.Issued, g.Expires, g.Count, lic))
	}
	require.NoError(t, mgr.Save(path, key, lic))
}
