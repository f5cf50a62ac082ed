package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zettagrid/geocontrol"
	geo_init "github.com/zettagrid/geocontrol/contexts/geo/init"
)

const configFlag = "config"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "geocontrol",
		Short: "geocontrol decides which content elements a visitor gets to see, based on the visitor's country.",
		Long: `Resolve the country of a visitor's IP address via a configurable geo location service,
cache the result and show or hide geo targeted content elements.`,
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().StringP(configFlag, "c", "", "path to the config file (default ./geocontrol.yaml)")

	return root
}

// NewGeocontrolCLI initialises the complete geocontrol cli with its commands and returns the root command.
// The geo options are passed to the geo Context of every command that needs one.
func NewGeocontrolCLI(osSignal <-chan os.Signal, opts ...geo_init.Option) *cobra.Command {
	rootCmd := newRootCmd()
	rootCmd.AddCommand(Version("geocontrol"))
	rootCmd.AddCommand(newServeCmd(osSignal, opts...))
	rootCmd.AddCommand(newResolveCmd(opts...))
	rootCmd.AddCommand(newCacheCmd(opts...))

	return rootCmd
}

// Execute runs the geocontrol cli.
func Execute() {
	if err := NewGeocontrolCLI(NewInterruptSignalChannel()).Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// NewInterruptSignalChannel returns a channel listening for os.Signals the geocontrol cli will react to.
func NewInterruptSignalChannel() chan os.Signal {
	signalsToListenTo := []os.Signal{
		syscall.SIGINT,                   // Strg + c
		syscall.SIGTERM, syscall.SIGQUIT, // terminate but finish/cleanup first, e.g. kill
		os.Interrupt,
	}

	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, signalsToListenTo...)

	return osSignal
}

// loadConfig reads the config file given via the config flag.
// Without the flag ./geocontrol.yaml and /etc/geocontrol/geocontrol.yaml are tried,
// and if none exists the defaults and environment variables apply.
func loadConfig(cmd *cobra.Command) (*geocontrol.Config, error) {
	vip := geocontrol.DefaultViper()

	path, _ := cmd.Flags().GetString(configFlag)
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("geocontrol")
		vip.AddConfigPath(".")
		vip.AddConfigPath("/etc/geocontrol")
	}

	if err := vip.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	conf := &geocontrol.Config{}
	if err := vip.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	return conf, nil
}
