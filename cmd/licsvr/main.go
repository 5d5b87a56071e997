// Command licsvr serves license verification over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"lickey/internal/app"
	"lickey/internal/config"
	"lickey/internal/infrastructure"
	"lickey/internal/security"
	"lickey/pkg/contracts"
)

type serverFlags struct {
	configFile string
	host       string
	port       int
	logLevel   string
	licenseDir string
}

func newRootCmd() *cobra.Command {
	flags := &serverFlags{}

	cmd := &cobra.Command{
		Use:   app.AppName,
		Short: "License verification server",
		Long: `licsvr loads signed license files bound to this machine's network
adapters and answers feature verification requests over HTTP.

The signing secret is read from LICKEY_LICENSE_SECRET. Other settings come
from the config file, LICKEY_* environment variables and the flags below.`,
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			application, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer infrastructure.CloseLogFile()
			return application.Run()
		},
	}
	cmd.SetVersionTemplate(contracts.GetFullVersionString(app.AppName) + "\n")

	flags.register(cmd)

	cmd.AddCommand(newKeysCmd(flags))
	return cmd
}

func (f *serverFlags) register(cmd *cobra.Command) {
	defaults := config.Default()
	cmd.PersistentFlags().StringVarP(&f.configFile, "config", "c", "", "Config file (default: $LICKEY_CONFIG or ./"+config.DefaultConfigFile+")")
	cmd.Flags().StringVar(&f.host, "host", defaults.Server.Host, "Listen host")
	cmd.Flags().IntVarP(&f.port, "port", "p", defaults.Server.Port, "Listen port")
	cmd.Flags().StringVar(&f.logLevel, "log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.licenseDir, "license-dir", defaults.License.Dir, "Directory scanned for *.lic files at startup")
}

// load reads the configuration and applies the flags the user set.
func (f *serverFlags) load(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configFile != "" {
		cfg, err = config.LoadFile(f.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("host") {
		cfg.Server.Host = f.host
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("license-dir") {
		cfg.License.Dir = f.licenseDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newKeysCmd(flags *serverFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Print the hardware keys licenses can be bound to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			logger := infrastructure.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level)
			getter, err := security.NewHardwareKeyGetter(logger, cfg.License.HardwareKeys)
			if err != nil {
				return err
			}
			keys, err := getter.Strings()
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("licsvr failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
