package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysOverride(t *testing.T) {
	t.Setenv("LICKEY_CONFIG", "")
	t.Setenv("LICKEY_LICENSE_HARDWARE_KEYS", "11-22-33-aa-bb-cc,de:ad:be:ef:00:01")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"keys"})
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "11-22-33-AA-BB-CC\nDE-AD-BE-EF-00-01\n", out.String())
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "licsvr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 28000\n  host: 0.0.0.0\n"), 0o600))
	t.Setenv("LICKEY_CONFIG", "")

	tests := []struct {
		name    string
		args    []string
		host    string
		port    int
		dir     string
		wantErr bool
	}{
		{name: "file only", args: []string{"--config", path}, host: "0.0.0.0", port: 28000, dir: "licenses"},
		{name: "flags win", args: []string{"--config", path, "--port", "29000", "--license-dir", "/srv/lic"}, host: "0.0.0.0", port: 29000, dir: "/srv/lic"},
		{name: "invalid port", args: []string{"--config", path, "--port", "0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := &serverFlags{}
			cmd := &cobra.Command{Use: "licsvr"}
			flags.register(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg, err := flags.load(cmd)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, cfg.Server.Host)
			assert.Equal(t, tt.port, cfg.Server.Port)
			assert.Equal(t, tt.dir, cfg.License.Dir)
		})
	}
}
