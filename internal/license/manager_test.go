package license

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deviceKey = MustHardwareKey("11-22-33-AA-BB-CC")
	otherKey  = MustHardwareKey("FF-FF-FF-FF-FF-FF")
)

// interceptFs fails selected operations of the wrapped filesystem.
type interceptFs struct {
	afero.Fs
	renameErr error
	writeErr  error
}

func (fs *interceptFs) Rename(oldname, newname string) error {
	if fs.renameErr != nil {
		return fs.renameErr
	}
	return fs.Fs.Rename(oldname, newname)
}

func (fs *interceptFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := fs.Fs.OpenFile(name, flag, perm)
	if err != nil || fs.writeErr == nil {
		return f, err
	}
	return &failingWriteFile{File: f, err: fs.writeErr}, nil
}

type failingWriteFile struct {
	afero.File
	err error
}

func (f *failingWriteFile) Write([]byte) (int, error) { return 0, f.err }

func newTestManager(t *testing.T, fs afero.Fs, vendor, application string) *Manager {
	t.Helper()
	mgr, err := NewManager(vendor, application, newTestCodec(t), WithFs(fs))
	require.NoError(t, err)
	return mgr
}

func TestNewManager(t *testing.T) {
	codec := newTestCodec(t)

	mgr, err := NewManager(" Acme ", "Widget", codec)
	require.NoError(t, err)
	assert.Equal(t, "Acme/Widget", mgr.Identity())
	assert.Equal(t, "Acme", mgr.Vendor())
	assert.Equal(t, "Widget", mgr.Application())

	_, err = NewManager("", "Widget", codec)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = NewManager("Acme", "Widget", nil)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestManagerAdd(t *testing.T) {
	mgr := newTestManager(t, afero.NewMemMapFs(), "Acme", "Widget")
	issue := MustDate(2024, time.January, 1)

	tests := []struct {
		name    string
		feature string
		version string
		expire  string
		count   uint32
		kind    error
	}{
		{"valid", "pro", "2", "20300101", 3, nil},
		{"unversioned", "base", "", "20250101", 1, nil},
		{"bad expire", "trial", "", "2025-01-01", 1, ErrInvalidFormat},
		{"impossible expire", "trial", "", "20250230", 1, ErrInvalidFormat},
		{"expire before issue", "trial", "", "20231231", 1, ErrInvalidRange},
		{"expire on issue", "trial", "", "20240101", 1, ErrInvalidRange},
		{"zero count", "trial", "", "20250101", 0, ErrInvalidRange},
		{"bad version", "trial", "two", "20250101", 1, ErrInvalidFormat},
		{"duplicate", "PRO", "3", "20310101", 5, ErrDuplicateFeature},
	}

	lic := NewLicense()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mgr.Add(tt.feature, tt.version, issue, tt.expire, tt.count, lic)
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	assert.Equal(t, []string{"base", "pro"}, lic.Features().Names())
	assert.Error(t, mgr.Add("pro", "", issue, "20300101", 1, nil))
}

func TestManagerSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := newTestManager(t, fs, "Acme", "Widget")

	lic := NewLicense()
	require.NoError(t, mgr.Add("pro", "2", MustDate(2024, time.January, 1), "20300101", 3, lic))
	require.NoError(t, mgr.Save("/licenses/widget.lic", deviceKey, lic))

	entries, err := afero.ReadDir(fs, "/licenses")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "widget.lic", entries[0].Name())

	out := NewLicense()
	require.NoError(t, mgr.Load("/licenses/widget.lic", []HardwareKey{otherKey, deviceKey}, out))
	assert.Equal(t, "Acme", out.Vendor())
	assert.Equal(t, "Widget", out.Application())
	key, bound := out.HardwareKey()
	assert.True(t, bound)
	assert.Equal(t, deviceKey, key)
	assert.True(t, lic.Features().Equal(out.Features()))

	_, bound = lic.HardwareKey()
	assert.False(t, bound, "saving must not bind the source license")
}

func TestManagerSaveReplacesExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := newTestManager(t, fs, "Acme", "Widget")
	path := "/licenses/widget.lic"

	first := NewLicense()
	require.NoError(t, mgr.Add("base", "", MustDate(2024, time.January, 1), "20250101", 1, first))
	require.NoError(t, mgr.Save(path, deviceKey, first))

	second := NewLicense()
	require.NoError(t, mgr.Add("pro", "", MustDate(2024, time.January, 1), "20300101", 1, second))
	require.NoError(t, mgr.Save(path, deviceKey, second))

	out := NewLicense()
	require.NoError(t, mgr.Load(path, []HardwareKey{deviceKey}, out))
	assert.Equal(t, []string{"pro"}, out.Features().Names())
}

func TestManagerSaveFailureKeepsExistingFile(t *testing.T) {
	tests := []struct {
		name string
		fs   func(base afero.Fs) afero.Fs
	}{
		{"rename fails", func(base afero.Fs) afero.Fs {
			return &interceptFs{Fs: base, renameErr: errors.New("device busy")}
		}},
		{"write fails", func(base afero.Fs) afero.Fs {
			return &interceptFs{Fs: base, writeErr: errors.New("no space left on device")}
		}},
		{"read only", func(base afero.Fs) afero.Fs {
			return afero.NewReadOnlyFs(base)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(base, "/licenses/widget.lic", []byte("previous"), 0o644))

			mgr := newTestManager(t, tt.fs(base), "Acme", "Widget")
			lic := NewLicense()
			require.NoError(t, mgr.Add("pro", "", MustDate(2024, time.January, 1), "20300101", 1, lic))

			err := mgr.Save("/licenses/widget.lic", deviceKey, lic)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIO)

			data, err := afero.ReadFile(base, "/licenses/widget.lic")
			require.NoError(t, err)
			assert.Equal(t, "previous", string(data))

			entries, err := afero.ReadDir(base, "/licenses")
			require.NoError(t, err)
			for _, e := range entries {
				assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
			}
		})
	}
}

func TestManagerLoadFailuresLeaveOutputUntouched(t *testing.T) {
	fs := afero.NewMemMapFs()
	widget := newTestManager(t, fs, "Acme", "Widget")
	gadget := newTestManager(t, fs, "Acme", "Gadget")

	lic := NewLicense()
	require.NoError(t, widget.Add("pro", "2", MustDate(2024, time.January, 1), "20300101", 3, lic))
	require.NoError(t, widget.Save("/widget.lic", deviceKey, lic))
	require.NoError(t, afero.WriteFile(fs, "/garbage.lic", []byte("VENDOR=Acme\nEXPIRE=20990101\n"), 0o644))

	tests := []struct {
		name string
		mgr  *Manager
		path string
		keys []HardwareKey
		kind error
	}{
		{"hardware mismatch", widget, "/widget.lic", []HardwareKey{otherKey}, ErrHardwareMismatch},
		{"no device keys", widget, "/widget.lic", nil, ErrHardwareMismatch},
		{"identity mismatch", gadget, "/widget.lic", []HardwareKey{deviceKey}, ErrIdentityMismatch},
		{"missing file", widget, "/missing.lic", []HardwareKey{deviceKey}, ErrIO},
		{"corrupt file", widget, "/garbage.lic", []HardwareKey{deviceKey}, ErrCorruptFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewLicense()
			require.NoError(t, widget.Add("existing", "", MustDate(2024, time.January, 1), "20250101", 1, out))

			err := tt.mgr.Load(tt.path, tt.keys, out)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			assert.Equal(t, []string{"existing"}, out.Features().Names())
			assert.Empty(t, out.Vendor())
			_, bound := out.HardwareKey()
			assert.False(t, bound)
		})
	}

	assert.Error(t, widget.Load("/widget.lic", []HardwareKey{deviceKey}, nil))
}
