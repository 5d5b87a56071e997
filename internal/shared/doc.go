// Package shared holds helpers used across packages. Its testutil
// subpackage provides signed license fixtures and a buffered slog handler
// for log assertions:
//
//	func TestLoad(t *testing.T) {
//	    fs := afero.NewMemMapFs()
//	    testutil.WriteLicense(t, fs, "/lic/acme.lic", "Acme", "Widget", testutil.DeviceKey, testutil.ProGrant())
//	    logger, logs := testutil.NewTestLogger(t)
//	    ...
//	}
package shared
