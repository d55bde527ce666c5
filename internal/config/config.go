// Package config loads settings from flags, RELAB_* environment variables
// and an optional config file.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"relab/pkg/relab"
)

// EnvPrefix prefixes every environment variable, e.g. RELAB_ARCHIVE.
const EnvPrefix = "RELAB"

// Config is the resolved configuration of the relab command.
type Config struct {
	Store    relab.Options
	LogLevel string
	BindAddr string
	// RateLimit is the per-client request rate of the HTTP server, per second.
	RateLimit float64
}

// New returns a viper instance holding the defaults and bound to the
// environment.
func New() *viper.Viper {
	v := viper.New()
	d := relab.DefaultOptions()

	v.SetDefault("archive", d.Archive)
	v.SetDefault("workdir", d.WorkDir)
	v.SetDefault("catalogues.prefix", d.CataloguePrefix)
	v.SetDefault("catalogues.suffix", d.CatalogueSuffix)
	v.SetDefault("catalogues.missing", d.Missing)
	v.SetDefault("catalogues.extract", d.ExtractSheets)
	v.SetDefault("spectra.layout", d.Layout)
	v.SetDefault("spectra.list", d.ListFile)
	v.SetDefault("plot.dir", d.PlotDir)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.bind_addr", ":8080")
	v.SetDefault("server.rate_limit", 20.0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds the flags that override configuration keys. Flags not
// present in fs are ignored.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, flag := range map[string]string{
		"archive":          "archive",
		"workdir":          "workdir",
		"log.level":        "log-level",
		"server.bind_addr": "bind-addr",
		"spectra.layout":   "layout",
	} {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind flag %s", flag)
		}
	}
	return nil
}

// Load reads file (when set) into v and resolves the configuration.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", file)
		}
	}

	cfg := Config{
		Store: relab.Options{
			Archive:         v.GetString("archive"),
			WorkDir:         v.GetString("workdir"),
			CataloguePrefix: v.GetString("catalogues.prefix"),
			CatalogueSuffix: v.GetString("catalogues.suffix"),
			Missing:         v.GetStringSlice("catalogues.missing"),
			ExtractSheets:   v.GetBool("catalogues.extract"),
			Layout:          v.GetString("spectra.layout"),
			ListFile:        v.GetString("spectra.list"),
			PlotDir:         v.GetString("plot.dir"),
		},
		LogLevel:  v.GetString("log.level"),
		BindAddr:  v.GetString("server.bind_addr"),
		RateLimit: v.GetFloat64("server.rate_limit"),
	}
	if cfg.Store.Archive == "" {
		return Config{}, errors.New("archive path required")
	}
	return cfg, nil
}
