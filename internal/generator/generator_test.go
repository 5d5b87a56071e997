package generator

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"lickey/internal/license"
	"lickey/internal/shared/testutil"
)

var fixedNow = time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC)

const acmeJSON = `{
  "vender_name": "Acme",
  "app_name": "Widget",
  "mac": "11-22-33-aa-bb-cc",
  "features": [
    {"name": "Pro", "version": "2", "num_lics": 3},
    {"name": "export", "version": "", "num_lics": 1}
  ]
}`

func newTestGenerator(t *testing.T, fs afero.Fs) *Generator {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	g, err := New(testutil.NewCodec(t), WithFs(fs), WithLogger(logger), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return g
}

func loadBack(t *testing.T, fs afero.Fs, path string) *license.License {
	t.Helper()
	mgr, err := license.NewManager("Acme", "Widget", testutil.NewCodec(t), license.WithFs(fs))
	require.NoError(t, err)
	lic := license.NewLicense()
	require.NoError(t, mgr.Load(path, []license.HardwareKey{testutil.DeviceKey}, lic))
	return lic
}

func TestNewRequiresCodec(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestBatchJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/acme.json", []byte(acmeJSON), 0o644))
	g := newTestGenerator(t, fs)

	result, err := g.Batch("/in/acme.json", "20301231", "/out")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/out", "acme.11-22-33-AA-BB-CC.20301231.lic"), result.Path)
	assert.Equal(t, "Acme", result.Vendor)
	assert.Equal(t, license.MustDate(2025, time.June, 1), result.Issued)
	assert.Len(t, result.Features, 2)

	lic := loadBack(t, fs, result.Path)
	pro, ok := lic.Features().Lookup("pro")
	require.True(t, ok)
	assert.Equal(t, license.NewFeatureVersion(2), pro.Version)
	assert.Equal(t, uint32(3), pro.Count)
	assert.Equal(t, license.MustDate(2030, time.December, 31), pro.Expires)

	export, ok := lic.Features().Lookup("export")
	require.True(t, ok)
	assert.False(t, export.Version.IsSet())
}

func TestBatchErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expire string
		want   string
		kind   error
	}{
		{name: "bad expire", input: acmeJSON, expire: "2030-12-31", want: "invalid expire date"},
		{name: "expire before issue", input: acmeJSON, expire: "20250101", kind: license.ErrInvalidRange},
		{name: "not json", input: "{", expire: "20301231", want: "failed to parse"},
		{name: "unknown key", input: `{"vendor":"Acme"}`, expire: "20301231", want: "unknown field"},
		{name: "missing mac", input: `{"vender_name":"Acme","app_name":"Widget","features":[{"name":"pro","num_lics":1}]}`, expire: "20301231", want: "MAC"},
		{name: "no features", input: `{"vender_name":"Acme","app_name":"Widget","mac":"11-22-33-AA-BB-CC","features":[]}`, expire: "20301231", want: "Features"},
		{name: "zero count", input: `{"vender_name":"Acme","app_name":"Widget","mac":"11-22-33-AA-BB-CC","features":[{"name":"pro","num_lics":0}]}`, expire: "20301231", want: "NumLics"},
		{name: "bad version", input: `{"vender_name":"Acme","app_name":"Widget","mac":"11-22-33-AA-BB-CC","features":[{"name":"pro","version":"v2","num_lics":1}]}`, expire: "20301231", want: "Version"},
		{name: "bad mac", input: `{"vender_name":"Acme","app_name":"Widget","mac":"11-22","features":[{"name":"pro","num_lics":1}]}`, expire: "20301231", want: "invalid mac"},
		{name: "duplicate feature", input: `{"vender_name":"Acme","app_name":"Widget","mac":"11-22-33-AA-BB-CC","features":[{"name":"pro","num_lics":1},{"name":" PRO ","num_lics":2}]}`, expire: "20301231", kind: license.ErrDuplicateFeature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/in/acme.json", []byte(tt.input), 0o644))
			g := newTestGenerator(t, fs)

			_, err := g.Batch("/in/acme.json", tt.expire, "/out")
			require.Error(t, err)
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
			if tt.kind != nil {
				assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			}

			files, _ := afero.Glob(fs, "/out/*.lic")
			assert.Empty(t, files)
		})
	}
}

func TestBatchMissingInput(t *testing.T) {
	g := newTestGenerator(t, afero.NewMemMapFs())
	_, err := g.Batch("/in/none.json", "20301231", "/out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read input")
}

func workbook(t *testing.T, licenseRows, featureRows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName(f.GetSheetName(0), LicenseSheet))
	for i, row := range licenseRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(LicenseSheet, cell, &row))
	}
	if featureRows != nil {
		_, err := f.NewSheet(FeaturesSheet)
		require.NoError(t, err)
		for i, row := range featureRows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(FeaturesSheet, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.Clone(buf.Bytes())
}

func TestBatchWorkbook(t *testing.T) {
	data := workbook(t,
		[][]interface{}{
			{"vender_name", "Acme"},
			{"app_name", "Widget"},
			{"mac", "11-22-33-AA-BB-CC"},
		},
		[][]interface{}{
			{"name", "version", "num_lics"},
			{"pro", "2", 3},
			{"", "", ""},
			{"export", "", 1},
		})

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/acme.xlsx", data, 0o644))
	g := newTestGenerator(t, fs)

	result, err := g.Batch("/in/acme.xlsx", "20301231", "/out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "acme.11-22-33-AA-BB-CC.20301231.lic"), result.Path)

	lic := loadBack(t, fs, result.Path)
	assert.Equal(t, []string{"export", "pro"}, lic.Features().Names())
}

func TestReadDocumentWorkbookErrors(t *testing.T) {
	identity := [][]interface{}{
		{"vender_name", "Acme"},
		{"app_name", "Widget"},
		{"mac", "11-22-33-AA-BB-CC"},
	}
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "no features sheet", data: workbook(t, identity, nil), want: FeaturesSheet},
		{name: "missing column", data: workbook(t, identity, [][]interface{}{{"name", "version"}, {"pro", "1"}}), want: "num_lics"},
		{name: "bad count", data: workbook(t, identity, [][]interface{}{{"name", "version", "num_lics"}, {"pro", "1", "many"}}), want: "row 2"},
		{name: "not a workbook", data: []byte("plain text"), want: "failed to open workbook"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/in.xlsx", tt.data, 0o644))
			g := newTestGenerator(t, fs)

			_, err := ReadDocument(fs, "/in.xlsx", g.validate)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
