package license

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	assert.Equal(t, "Acme/Widget", Identity("Acme", "Widget"))
	assert.Equal(t, "Acme/Widget", Identity(" Acme", "Widget "))
}

// A name holding the separator would make ("a", "b/c") and ("a/b", "c")
// share one loader key.
func TestIdentitySeparatorRejected(t *testing.T) {
	fs := afero.NewMemMapFs()
	codec := newTestCodec(t)
	hw := MustHardwareKey("11-22-33-AA-BB-CC")

	for _, pair := range [][2]string{{"a", "b/c"}, {"a/b", "c"}} {
		_, err := NewManager(pair[0], pair[1], codec, WithFs(fs))
		assert.ErrorIs(t, err, ErrInvalidFormat, "%s|%s", pair[0], pair[1])

		_, err = codec.Encode(pair[0], pair[1], hw, NewFeatureMap())
		assert.ErrorIs(t, err, ErrInvalidFormat, "%s|%s", pair[0], pair[1])
	}

	mgr, err := NewManager("a", "b", codec, WithFs(fs))
	require.NoError(t, err)
	lic := NewLicense()
	require.NoError(t, mgr.Add("pro", "", MustDate(2024, time.January, 1), "20300101", 1, lic))
	require.NoError(t, mgr.Save("output/ab.lic", hw, lic))

	loader := NewLoader(WithClock(fixedClock(2025, time.June, 1)))
	require.NoError(t, loader.Load(mgr, "output/ab.lic", []HardwareKey{hw}))
	assert.True(t, loader.IsValid(Identity("a", "b"), "pro"))
	assert.False(t, loader.IsValid(Identity("a/b", ""), "pro"))
	assert.False(t, loader.IsValid(Identity("a", "b/c"), "pro"))
}

func TestLicenseClone(t *testing.T) {
	var empty License
	assert.Equal(t, 0, empty.Features().Len())

	lic := licenseWith(t, "pro")
	c := lic.Clone()
	require.NoError(t, c.Features().Add("extra", FeatureVersion{},
		MustDate(2024, time.January, 1), MustDate(2025, time.January, 1), 1))

	assert.False(t, lic.Features().IsExist("extra"))
	assert.True(t, c.Features().IsExist("pro"))
}

// Generate on the vendor side, verify on two devices.
func TestEndToEndAcmeWidget(t *testing.T) {
	fs := afero.NewMemMapFs()
	codec := newTestCodec(t)
	issue := MustDate(2024, time.January, 1)
	hw := MustHardwareKey("11-22-33-AA-BB-CC")

	generator, err := NewManager("Acme", "Widget", codec, WithFs(fs))
	require.NoError(t, err)

	lic := NewLicense()
	require.NoError(t, generator.Add("pro", "2", issue, "20300101", 3, lic))

	path := filepath.Join("output", "widget."+hw.String()+".20300101.lic")
	require.NoError(t, generator.Save(path, hw, lic))

	verifier, err := NewManager("Acme", "Widget", codec, WithFs(fs))
	require.NoError(t, err)

	t.Run("licensed device", func(t *testing.T) {
		loader := NewLoader(WithClock(fixedClock(2026, time.March, 15)))
		require.NoError(t, loader.Load(verifier, path, []HardwareKey{MustHardwareKey("11:22:33:aa:bb:cc")}))

		assert.True(t, loader.IsValid(verifier.Identity(), "pro"))
		assert.True(t, loader.IsValidVersion(verifier.Identity(), "pro", NewFeatureVersion(2)))
		assert.False(t, loader.IsValid(verifier.Identity(), "enterprise"))
	})

	t.Run("other device", func(t *testing.T) {
		out := NewLicense()
		err := verifier.Load(path, []HardwareKey{MustHardwareKey("FF-FF-FF-FF-FF-FF")}, out)
		assert.ErrorIs(t, err, ErrHardwareMismatch)
		assert.Equal(t, 0, out.Features().Len())
	})

	t.Run("after expiry", func(t *testing.T) {
		loader := NewLoader(WithClock(fixedClock(2030, time.January, 2)))
		require.NoError(t, loader.Load(verifier, path, []HardwareKey{hw}))
		assert.False(t, loader.IsValid(verifier.Identity(), "pro"))
	})
}
