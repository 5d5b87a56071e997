package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lickey/internal/license"
	"lickey/internal/shared/testutil"
)

const input = `{"vender_name":"Acme","app_name":"Widget","mac":"11-22-33-AA-BB-CC",
"features":[{"name":"pro","version":"2","num_lics":3}]}`

func execute(t *testing.T, fs afero.Fs, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LICKEY_CONFIG", "")
	t.Setenv("LICKEY_LICENSE_SECRET", testutil.TestSecret)

	var out, errOut bytes.Buffer
	cmd := newRootCmd(fs)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestBatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "acme.json", []byte(input), 0o644))

	out, err := execute(t, fs, "", "acme.json", "20301231", "--output", "issued")
	require.NoError(t, err)
	assert.Contains(t, out, "done to add feature = pro")
	assert.Contains(t, out, "done to save into = issued/acme.11-22-33-AA-BB-CC.20301231.lic")

	mgr, err := license.NewManager("Acme", "Widget", testutil.NewCodec(t), license.WithFs(fs))
	require.NoError(t, err)
	lic := license.NewLicense()
	require.NoError(t, mgr.Load("issued/acme.11-22-33-AA-BB-CC.20301231.lic", []license.HardwareKey{testutil.DeviceKey}, lic))
	assert.True(t, lic.Features().IsExist("pro"))
}

func TestBatchDefaultOutputDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "acme.json", []byte(input), 0o644))

	_, err := execute(t, fs, "", "acme.json", "20301231")
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "output/acme.11-22-33-AA-BB-CC.20301231.lic")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestArgs(t *testing.T) {
	_, err := execute(t, afero.NewMemMapFs(), "", "acme.json")
	assert.Error(t, err)
}

func TestMissingSecret(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "acme.json", []byte(input), 0o644))

	t.Setenv("LICKEY_CONFIG", "")
	t.Setenv("LICKEY_LICENSE_SECRET", "")
	cmd := newRootCmd(fs)
	cmd.SetArgs([]string{"acme.json", "20301231"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LICKEY_LICENSE_SECRET")
}

func TestInteractive(t *testing.T) {
	fs := afero.NewMemMapFs()
	stdin := "Acme Widget 11-22-33-AA-BB-CC pro 1 20300101 2 quit widget.lic"

	out, err := execute(t, fs, stdin, "interactive")
	require.NoError(t, err)
	assert.Contains(t, out, "done to save into = widget(11-22-33-AA-BB-CC).lic")

	exists, err := afero.Exists(fs, "widget(11-22-33-AA-BB-CC).lic")
	require.NoError(t, err)
	assert.True(t, exists)
}
