package main

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"addchain.mleku.dev"
)

const envPrefix = "ADDCHAIN"

// settings is the resolved configuration shared by all subcommands. Values
// come from flags, ADDCHAIN_* environment variables and an optional config
// file, in that order of precedence.
type settings struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	cfg := &settings{v: v}

	root := &cobra.Command{
		Use:           "addchain",
		Short:         "Search short addition chains for big integers",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.load()
		},
	}

	defaults := addchain.DefaultOptions()
	flags := root.PersistentFlags()
	flags.String("config", "", "YAML config file")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringP("output", "o", "text", "output format (text, yaml, json)")
	flags.Int("window", defaults.MaxWindow, "widest window 2^s tried for odd targets")
	flags.Bool("dichotomic", defaults.Dichotomic, "try the dichotomic continued-fraction split")
	flags.Bool("factors", defaults.Factors, "try factor composition over small primes")
	flags.Int("max-nodes", defaults.MaxNodes, "node budget of the branch-and-bound phase (0 disables it)")
	flags.Int("workers", defaults.Workers, "concurrent top-level branches")
	flags.Duration("timeout", 0, "wall-clock budget of the branch-and-bound phase")
	flags.Bool("metrics", false, "print search metrics after the result")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	root.AddCommand(
		searchCmd(cfg),
		stepsCmd(cfg),
		tableCmd(cfg),
		boundCmd(cfg),
	)
	return root
}

// load reads the config file if one was given
func (s *settings) load() error {
	path := s.v.GetString("config")
	if path == "" {
		return nil
	}
	s.v.SetConfigFile(path)
	s.v.SetConfigType("yaml")
	if err := s.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading config %s", path)
	}
	return nil
}

func (s *settings) output() string {
	return strings.ToLower(s.v.GetString("output"))
}

func (s *settings) logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(s.v.GetString("log-level"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// options builds search options from the resolved settings
func (s *settings) options() (addchain.Options, error) {
	logger, err := s.logger()
	if err != nil {
		return addchain.Options{}, err
	}
	opts := addchain.Options{
		MaxWindow:  s.v.GetInt("window"),
		Dichotomic: s.v.GetBool("dichotomic"),
		Factors:    s.v.GetBool("factors"),
		MaxNodes:   s.v.GetInt("max-nodes"),
		Workers:    s.v.GetInt("workers"),
		Timeout:    s.v.GetDuration("timeout"),
		Logger:     logger.Named("search"),
	}
	if err := opts.Validate(); err != nil {
		return addchain.Options{}, err
	}
	return opts, nil
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
