// Command lickeygen issues signed license files.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"lickey/internal/config"
	"lickey/internal/generator"
	"lickey/internal/infrastructure"
	"lickey/internal/license"
	"lickey/pkg/contracts"
)

const programName = "lickeygen"

type genFlags struct {
	configFile string
	outputDir  string
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	flags := &genFlags{}

	cmd := &cobra.Command{
		Use:   programName + " {file} {expire_date:YYYYMMDD}",
		Short: "Issue a signed license file",
		Long: `lickeygen reads a license description (JSON, or an .xlsx workbook with
"license" and "features" sheets) and writes {file}.{mac}.{expire_date}.lic
into the output directory. Every feature is issued today.

Run "lickeygen interactive" to enter the license on the terminal instead.
The signing secret is read from LICKEY_LICENSE_SECRET.`,
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, cfg, err := flags.generator(cmd, fs)
			if err != nil {
				return err
			}
			outputDir := cfg.License.OutputDir
			if cmd.Flags().Changed("output") {
				outputDir = flags.outputDir
			}
			result, err := gen.Batch(args[0], args[1], outputDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range result.Features {
				fmt.Fprintf(out, "done to add feature = %s\n", f.Name)
				fmt.Fprintf(out, "  version = %s\n", f.Version)
				fmt.Fprintf(out, "  issueDate date = %s\n", f.Issued)
				fmt.Fprintf(out, "  expire date = %s\n", f.Expires)
				fmt.Fprintf(out, "  num licenses = %d\n", f.Count)
			}
			fmt.Fprintf(out, "done to save into = %s\n", result.Path)
			return nil
		},
	}
	cmd.SetVersionTemplate(contracts.GetFullVersionString(programName) + "\n")

	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Config file (default: $LICKEY_CONFIG or ./"+config.DefaultConfigFile+")")
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", config.Default().License.OutputDir, "Output directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "interactive",
		Short: "Enter a license on the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, _, err := flags.generator(cmd, fs)
			if err != nil {
				return err
			}
			_, err = gen.NewSession(cmd.InOrStdin(), cmd.OutOrStdout()).Run()
			return err
		},
	})
	return cmd
}

// generator loads the configuration and builds a Generator logging to stderr.
func (f *genFlags) generator(cmd *cobra.Command, fs afero.Fs) (*generator.Generator, *config.Config, error) {
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
		return nil, nil, err
	}
	if err := cfg.ValidateSecret(); err != nil {
		return nil, nil, err
	}

	codec, err := license.NewCodec([]byte(cfg.License.Secret))
	if err != nil {
		return nil, nil, err
	}
	logger := infrastructure.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level)
	gen, err := generator.New(codec, generator.WithFs(fs), generator.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return gen, cfg, nil
}

func main() {
	if err := newRootCmd(afero.NewOsFs()).Execute(); err != nil {
		slog.Error("lickeygen failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
