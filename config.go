package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind      string
	httpPort  int
	port      int
	profile   bool
	rooms     int
	usersPath string
	verbose   bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.httpPort < 0 || c.httpPort > 65535 {
		return fmt.Errorf("invalid http port (must be between 0-65535 inclusive): %d", c.httpPort)
	}
	if c.httpPort != 0 && c.httpPort == c.port {
		return errors.New("--http-port must differ from the game port")
	}
	if c.rooms < 1 {
		return fmt.Errorf("invalid room count (must be at least 1): %d", c.rooms)
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GAMEHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "gamehouse <port> <credentials-file>",
		Short:         "A two-player matchmaking server for a coin-arbitrated guessing game.",
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Argument errors above already printed usage; runtime
			// failures from here on should not.
			cmd.SilenceUsage = true

			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q", args[0])
			}
			cfg.port = port
			cfg.usersPath = args[1]

			if err := cfg.validate(); err != nil {
				return err
			}

			if cfg.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			return Serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GAMEHOUSE_BIND)")
	fs.IntVar(&cfg.httpPort, "http-port", 0, "port for the http status/websocket sidecar, 0 to disable (env: GAMEHOUSE_HTTP_PORT)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers on the sidecar (env: GAMEHOUSE_PROFILE)")
	fs.IntVar(&cfg.rooms, "rooms", 10, "number of two-player rooms (env: GAMEHOUSE_ROOMS)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: GAMEHOUSE_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("gamehouse v{{.Version}}\n")

	return cmd
}
