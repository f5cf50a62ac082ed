package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zettagrid/geocontrol"
	geo_init "github.com/zettagrid/geocontrol/contexts/geo/init"
)

// ErrCacheNotShared is returned for cache operations on a cache the CLI cannot reach.
var ErrCacheNotShared = errors.New("cache not shared")

func newResolveCmd(opts ...geo_init.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <ip>...",
		Short: "Resolve the country of IP addresses",
		Long: `Resolve the country of IP addresses the same way visitors are resolved:
cache, local address check, the configured geo service and finally the default country.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			green := color.New(color.FgGreen, color.Bold).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()

			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return withGeoContext(cmd, conf, opts, func(ctx context.Context, gc *geo_init.GeoContext) error {
				for _, ip := range args {
					country, source, err := gc.Resolve(ctx, ip)
					if err != nil {
						return err //nolint:wrapcheck // already wrapped
					}

					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", ip, green(country), yellow(source))
				}

				return nil
			})
		},
	}
}

func newCacheCmd(opts ...geo_init.Option) *cobra.Command {
	cache := &cobra.Command{
		Use:                   "cache",
		Short:                 "Manage the visitor country cache",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	cache.AddCommand(&cobra.Command{
		Use:                   "clear",
		Short:                 "Remove all cached visitor countries",
		Long:                  `Remove all cached visitor countries. Only useful with the postgres cache store.`,
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if conf.Geo.CacheStore != geocontrol.PostgresStore {
				return fmt.Errorf("%w: the %s cache lives inside each running server, "+
					"use POST /admin/geo/cache/clear or restart the server instead", ErrCacheNotShared, cacheStore(conf))
			}

			return withGeoContext(cmd, conf, opts, func(ctx context.Context, gc *geo_init.GeoContext) error {
				n, err := gc.API().ClearCache(ctx)
				if err != nil {
					return fmt.Errorf("could not clear cache: %w", err)
				}

				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "removed %d cached countries\n", n)

				return nil
			})
		},
	})

	return cache
}

// withGeoContext runs fn with a geo Context initialised from the config, without starting any server.
func withGeoContext(
	cmd *cobra.Command,
	conf *geocontrol.Config,
	opts []geo_init.Option,
	fn func(ctx context.Context, gc *geo_init.GeoContext) error,
) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	di, err := geocontrol.InitialiseDefaultDependencies(ctx, conf)
	if err != nil {
		return fmt.Errorf("could not initialise dependencies: %w", err)
	}

	defer func() { _ = di.Shutdown(context.WithoutCancel(ctx)) }()

	gc, err := geo_init.NewGeoContext(ctx, di, opts...)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}

	return fn(ctx, gc)
}

func cacheStore(conf *geocontrol.Config) geocontrol.CacheStore {
	if conf.Geo.CacheStore == "" {
		return geocontrol.MemoryStore
	}

	return conf.Geo.CacheStore
}
