package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"relab/internal/config"
	"relab/internal/logger"
	"relab/pkg/relab"
)

// app carries the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	log     *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "relab",
		Short:         "Query and plot a RELAB spectral library archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(os.Stderr, cfg.LogLevel)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.String("archive", "", "path to the zipped RELAB library (env RELAB_ARCHIVE)")
	pf.String("workdir", "", "directory for catalogues, extracted spectra and plots (env RELAB_WORKDIR)")
	pf.String("layout", "", "spectra path layout: sample or prefix (env RELAB_SPECTRA_LAYOUT)")
	pf.String("log-level", "", "debug, info, warn or error (env RELAB_LOG_LEVEL)")

	root.AddCommand(
		newColumnsCommand(a),
		newQueryCommand(a),
		newLocateCommand(a),
		newPlotCommand(a),
		newRebuildCommand(a),
		newServeCommand(a),
	)
	return root
}

func (a *app) open() (*relab.Store, error) {
	return relab.Open(a.cfg.Store, a.log)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
