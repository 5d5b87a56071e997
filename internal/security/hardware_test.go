package security

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lickey/internal/license"
	"lickey/internal/shared/testutil"
)

func fakeInterfaces(calls *int, ifaces ...net.Interface) InterfaceLister {
	return func() ([]net.Interface, error) {
		*calls++
		return ifaces, nil
	}
}

func TestHardwareKeyGetterEnumeratesAdapters(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	calls := 0
	g, err := NewHardwareKeyGetter(logger, nil, WithInterfaceLister(fakeInterfaces(&calls,
		net.Interface{Name: "lo", Flags: net.FlagLoopback | net.FlagUp},
		net.Interface{Name: "eth0", Flags: net.FlagUp, HardwareAddr: net.HardwareAddr{0x11, 0x22, 0x33, 0xaa, 0xbb, 0xcc}},
		net.Interface{Name: "wlan0", HardwareAddr: net.HardwareAddr{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}},
		net.Interface{Name: "dummy0", HardwareAddr: net.HardwareAddr{0, 0, 0, 0, 0, 0}},
		net.Interface{Name: "ib0", HardwareAddr: make(net.HardwareAddr, 20)},
		net.Interface{Name: "bond0", HardwareAddr: net.HardwareAddr{0x11, 0x22, 0x33, 0xaa, 0xbb, 0xcc}},
	)))
	require.NoError(t, err)

	keys, err := g.Keys()
	require.NoError(t, err)
	assert.Equal(t, []license.HardwareKey{
		license.MustHardwareKey("11-22-33-AA-BB-CC"),
		license.MustHardwareKey("DE-AD-BE-EF-00-01"),
	}, keys)

	strs, err := g.Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"11-22-33-AA-BB-CC", "DE-AD-BE-EF-00-01"}, strs)
	assert.Equal(t, 1, calls, "second call should be served from cache")
}

func TestHardwareKeyGetterCacheExpiry(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	calls := 0
	g, err := NewHardwareKeyGetter(logger, nil,
		WithCacheDuration(0),
		WithInterfaceLister(fakeInterfaces(&calls,
			net.Interface{Name: "eth0", HardwareAddr: net.HardwareAddr{1, 2, 3, 4, 5, 6}})))
	require.NoError(t, err)

	_, err = g.Keys()
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = g.Keys()
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestHardwareKeyGetterOverride(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	g, err := NewHardwareKeyGetter(logger, []string{"aa:bb:cc:dd:ee:ff"},
		WithInterfaceLister(func() ([]net.Interface, error) {
			t.Fatal("adapters must not be enumerated when overridden")
			return nil, nil
		}))
	require.NoError(t, err)

	keys, err := g.Keys()
	require.NoError(t, err)
	assert.Equal(t, []license.HardwareKey{license.MustHardwareKey("AA-BB-CC-DD-EE-FF")}, keys)

	_, err = NewHardwareKeyGetter(logger, []string{"not-a-mac"})
	assert.ErrorIs(t, err, license.ErrInvalidFormat)
}

func TestHardwareKeyGetterErrors(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	g, err := NewHardwareKeyGetter(logger, nil, WithInterfaceLister(func() ([]net.Interface, error) {
		return []net.Interface{{Name: "lo", Flags: net.FlagLoopback}}, nil
	}))
	require.NoError(t, err)
	_, err = g.Keys()
	assert.ErrorIs(t, err, ErrNoHardwareKey)

	boom := errors.New("netlink unavailable")
	g, err = NewHardwareKeyGetter(logger, nil, WithInterfaceLister(func() ([]net.Interface, error) {
		return nil, boom
	}))
	require.NoError(t, err)
	_, err = g.Keys()
	assert.ErrorIs(t, err, boom)
}
