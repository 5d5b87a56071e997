package license

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Manager creates, saves and loads licenses for one vendor and application.
// It holds no license state of its own.
type Manager struct {
	vendor      string
	application string
	codec       *Codec
	fs          afero.Fs
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithFs sets the filesystem used by Save and Load. The default is the OS
// filesystem.
func WithFs(fs afero.Fs) ManagerOption {
	return func(m *Manager) {
		if fs != nil {
			m.fs = fs
		}
	}
}

// NewManager returns a manager for the given identity.
func NewManager(vendor, application string, codec *Codec, opts ...ManagerOption) (*Manager, error) {
	vendor, application = strings.TrimSpace(vendor), strings.TrimSpace(application)
	if !validIdentity(vendor, application) {
		return nil, newError("new manager", ErrInvalidFormat, Identity(vendor, application), nil)
	}
	if codec == nil {
		return nil, newError("new manager", ErrInvalidFormat, "", errors.New("codec is required"))
	}
	m := &Manager{
		vendor:      vendor,
		application: application,
		codec:       codec,
		fs:          afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) Vendor() string      { return m.vendor }
func (m *Manager) Application() string { return m.application }

// Identity returns the Loader key for this manager.
func (m *Manager) Identity() string {
	return Identity(m.vendor, m.application)
}

// Add parses version and expire and adds the grant to lic. An empty version
// leaves the grant unversioned.
func (m *Manager) Add(name, version string, issue Date, expire string, count uint32, lic *License) error {
	if lic == nil {
		return newError("add feature", ErrInvalidFormat, name, errors.New("nil license"))
	}
	v, err := ParseFeatureVersion(version)
	if err != nil {
		return err
	}
	expires, err := ParseDate(expire)
	if err != nil {
		return err
	}
	return lic.Features().Add(name, v, issue, expires, count)
}

// Save encodes lic bound to key and replaces path atomically. On failure the
// temporary file is removed and any existing file at path is left as it was.
func (m *Manager) Save(path string, key HardwareKey, lic *License) error {
	if lic == nil {
		return newError("save license", ErrInvalidFormat, path, errors.New("nil license"))
	}
	data, err := m.codec.Encode(m.vendor, m.application, key, lic.Features())
	if err != nil {
		return err
	}
	if err := m.writeAtomic(path, data); err != nil {
		return newError("save license", ErrIO, path, err)
	}
	return nil
}

func (m *Manager) writeAtomic(path string, data []byte) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := afero.TempFile(m.fs, dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = m.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = m.fs.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return m.fs.Rename(tmpName, path)
}

// Load reads path, checks that it was issued for this manager's identity and
// for one of deviceKeys, and only then overwrites out.
func (m *Manager) Load(path string, deviceKeys []HardwareKey, out *License) error {
	if out == nil {
		return newError("load license", ErrInvalidFormat, path, errors.New("nil license"))
	}
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return newError("load license", ErrIO, path, err)
	}
	doc, err := m.codec.Decode(data)
	if err != nil {
		return err
	}
	if doc.Vendor != m.vendor || doc.Application != m.application {
		return newError("load license", ErrIdentityMismatch, Identity(doc.Vendor, doc.Application), nil)
	}
	if !doc.HardwareKey.Matches(deviceKeys) {
		return newError("load license", ErrHardwareMismatch, doc.HardwareKey.String(), nil)
	}
	out.assign(doc)
	return nil
}
