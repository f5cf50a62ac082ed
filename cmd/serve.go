package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zettagrid/geocontrol"
	geo_init "github.com/zettagrid/geocontrol/contexts/geo/init"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(osSignal <-chan os.Signal, opts ...geo_init.Option) *cobra.Command {
	return &cobra.Command{
		Use:                   "serve",
		Short:                 "Start the http server",
		Long:                  ``,
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			blue := color.New(color.FgBlue, color.Bold).FprintfFunc()

			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			di, err := geocontrol.InitialiseDefaultDependencies(ctx, conf)
			if err != nil {
				return fmt.Errorf("could not initialise dependencies: %w", err)
			}

			if _, err = geo_init.NewGeoContext(ctx, di, opts...); err != nil {
				_ = di.Shutdown(ctx)

				return err //nolint:wrapcheck // already wrapped
			}

			if err = di.Start(ctx); err != nil {
				return fmt.Errorf("could not start: %w", err)
			}

			blue(cmd.OutOrStdout(), "geocontrol listening on :%d, geo service %s\n", conf.HTTP.Port, conf.Geo.Service)

			<-osSignal

			blue(cmd.OutOrStdout(), "shutting down\n")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			if err = di.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("could not shutdown cleanly: %w", err)
			}

			return nil
		},
	}
}
