// Package init is the context's startup API.
//
// Put all initialisations here.
// For example, load context-specific configuration, setup dependency injection,
// register routes, jobs and more.
package init

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zettagrid/geocontrol"
	"github.com/zettagrid/geocontrol/app"
	"github.com/zettagrid/geocontrol/contexts/geo"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/application"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/infrastructure"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/interfaces/repository"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/interfaces/web"
)

const (
	contextName = geo.ContextName

	defaultPurgeSchedule = "@hourly"
)

// Option changes how the geo Context talks to the outside world.
type Option func(*options)

type options struct {
	providerOpts []infrastructure.ProviderOpt
}

// WithProviderBaseURL sends all requests of the web service providers to baseURL,
// e.g. a mirror or a test server.
func WithProviderBaseURL(baseURL string) Option {
	return func(o *options) {
		o.providerOpts = append(o.providerOpts, infrastructure.WithBaseURL(baseURL))
	}
}

// WithHTTPClient makes the web service providers use client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.providerOpts = append(o.providerOpts, infrastructure.WithHTTPClient(client))
	}
}

func NewGeoContext(ctx context.Context, di *geocontrol.Container, opts ...Option) (*GeoContext, error) {
	err := ensureRequiredDependencies(di)
	if err != nil {
		return nil, fmt.Errorf("missing dependencies to initialise context geo: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	geoContext, err := setupGeoContext(ctx, di, o)
	if err != nil {
		return nil, fmt.Errorf("could not initialise context geo: %w", err)
	}

	di.Logger.DebugContext(ctx, "context geo initialised",
		slog.String("service", string(geoContext.resolver.Config().Service)),
		slog.String("cache_store", string(geoContext.cacheStore)),
	)

	return geoContext, nil
}

type GeoContext struct {
	logger *slog.Logger

	app        application.App
	api        *geoAPI
	resolver   *domain.Resolver
	cache      domain.Cache
	cacheStore geocontrol.CacheStore
	providers  io.Closer

	visitorController  *web.VisitorController
	filterController   *web.FilterController
	settingsController *web.SettingsController
}

// API returns the geo.API for other Contexts to use.
func (c *GeoContext) API() geo.API { //nolint:ireturn // the API is meant to be used as interface
	return c.api
}

// Resolve returns the country of ip and where it came from, e.g. cache or provider.
func (c *GeoContext) Resolve(ctx context.Context, ip string) (geo.CountryCode, string, error) {
	res, err := c.app.ResolveVisitorCountry.H(ctx, application.ResolveVisitorCountryQuery{IP: ip})
	if err != nil {
		return "", "", fmt.Errorf("could not resolve %s: %w", ip, err)
	}

	return res.Country, string(res.Source), nil
}

// Middleware resolves the visitor country once per request, see geo.VisitorCountryMiddleware.
func (c *GeoContext) Middleware() echo.MiddlewareFunc {
	return geo.VisitorCountryMiddleware(c.api)
}

func (c *GeoContext) Shutdown(_ context.Context) error {
	if err := c.providers.Close(); err != nil {
		return fmt.Errorf("could not close geo providers: %w", err)
	}

	return nil
}

func ensureRequiredDependencies(di *geocontrol.Container) error {
	if di == nil || di.Config == nil {
		return fmt.Errorf("%w: config", geocontrol.ErrMissingDependency)
	}

	if di.Logger == nil {
		return fmt.Errorf("%w: logger", geocontrol.ErrMissingDependency)
	}

	if di.TraceProvider == nil || di.MeterProvider == nil {
		return fmt.Errorf("%w: observability", geocontrol.ErrMissingDependency)
	}

	if di.WebRouter == nil || di.APIRouter == nil || di.AdminRouter == nil {
		return fmt.Errorf("%w: routers", geocontrol.ErrMissingDependency)
	}

	if di.Settings == nil {
		return fmt.Errorf("%w: settings", geocontrol.ErrMissingDependency)
	}

	if di.Scheduler == nil {
		return fmt.Errorf("%w: scheduler", geocontrol.ErrMissingDependency)
	}

	if di.Validate == nil {
		return fmt.Errorf("%w: validator", geocontrol.ErrMissingDependency)
	}

	if di.Config.Geo.CacheStore == geocontrol.PostgresStore && di.PGx == nil {
		return fmt.Errorf("%w: pgx for the postgres cache", geocontrol.ErrMissingDependency)
	}

	return nil
}

func setupGeoContext(ctx context.Context, di *geocontrol.Container, opts *options) (*GeoContext, error) {
	logger := di.Logger.With(slog.String("context", contextName))
	conf := di.Config.Geo

	trust, err := domain.NewHeaderTrust(conf.TrustForwardHeaders, conf.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	geoConf, err := application.LoadConfig(ctx, di.Settings, resolverConfig(conf))
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped
	}

	providers, closer, err := infrastructure.NewProviders(infrastructure.ProvidersConfig{
		IPInfoToken:   conf.IPInfoToken,
		IP2LocationDB: conf.IP2LocationDB,
		MaxMindDB:     conf.MaxMindDB,
		Timeout:       geoConf.ProviderTimeout,
		HTTPOpts:      opts.providerOpts,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped
	}

	if err := domain.EnsureProvider(providers, geoConf.Service); err != nil {
		_ = closer.Close()

		return nil, fmt.Errorf("invalid geo service: %w", err)
	}

	cacheStore := conf.CacheStore
	if cacheStore == "" {
		cacheStore = geocontrol.MemoryStore
	}

	var cache domain.Cache = repository.NewMemoryCache()
	if cacheStore == geocontrol.PostgresStore {
		cache = repository.NewPostgresCache(di.PGx)
	}

	cache = repository.NewTracedCache(cache)

	resolver := domain.NewResolver(geoConf, cache, providers)
	application.WatchSettings(logger, di.Settings, resolver)

	resolve := app.NewInstrumentedQuery(di.TraceProvider, di.MeterProvider, logger,
		application.NewResolveVisitorCountryQueryHandler(logger, resolver),
	)

	geoApp := application.App{
		ResolveVisitorCountry: resolve,
		FilterElement: app.NewInstrumentedQuery(di.TraceProvider, di.MeterProvider, logger,
			application.NewFilterElementQueryHandler(resolve),
		),
		ClearCache: app.NewInstrumentedRequest(di.TraceProvider, di.MeterProvider, logger,
			application.NewClearCacheRequestHandler(logger, resolver),
		),
		PurgeExpiredCountries: app.NewInstrumentedCommand(di.TraceProvider, di.MeterProvider, logger,
			application.NewPurgeExpiredCountriesCommandHandler(logger, resolver),
		),
		ShowSettings: app.NewInstrumentedQuery(di.TraceProvider, di.MeterProvider, logger,
			application.NewShowSettingsQueryHandler(resolver),
		),
		UpdateSettings: app.NewInstrumentedCommand(di.TraceProvider, di.MeterProvider, logger,
			app.NewValidatedCommand(di.Validate, application.NewUpdateSettingsCommandHandler(di.Settings, resolver)),
		),
	}

	geoContext := &GeoContext{
		logger:     logger,
		app:        geoApp,
		api:        &geoAPI{app: geoApp, resolver: resolver, trust: trust},
		resolver:   resolver,
		cache:      cache,
		cacheStore: cacheStore,
		providers:  closer,

		visitorController:  web.NewVisitorController(geoApp, trust),
		filterController:   web.NewFilterController(geoApp, trust),
		settingsController: web.NewSettingsController(geoApp),
	}

	geoContext.registerWebRoutes(di.WebRouter.Group("/" + contextName))
	geoContext.registerAPIRoutes(di.APIRouter.Group("/" + contextName))
	geoContext.registerAdminRoutes(
		di.AdminRouter.Group("/"+contextName, adminAuth(di.Config.HTTP.AdminUser, di.Config.HTTP.AdminPasswordHash)...),
	)

	purgeSchedule := conf.PurgeSchedule
	if purgeSchedule == "" {
		purgeSchedule = defaultPurgeSchedule
	}

	if err := geoContext.registerJobs(di.Scheduler, purgeSchedule); err != nil {
		_ = closer.Close()

		return nil, err
	}

	di.AddStatus(contextName, geoContext.status)
	di.OnShutdown(geoContext.Shutdown)

	return geoContext, nil
}

// resolverConfig uses the domain defaults for all values missing in conf.
func resolverConfig(conf geocontrol.Geo) domain.Config {
	geoConf := domain.DefaultConfig()

	if conf.Service != "" {
		geoConf.Service = conf.Service
	}

	if conf.DefaultCountry != "" {
		geoConf.DefaultCountry = domain.CountryCode(conf.DefaultCountry)
	}

	if conf.CacheDuration != 0 {
		geoConf.CacheDuration = conf.CacheDuration
	}

	if conf.ProviderTimeout != 0 {
		geoConf.ProviderTimeout = conf.ProviderTimeout
	}

	return geoConf
}

type contextStatus struct {
	Service         string `json:"service"`
	DefaultCountry  string `json:"defaultCountry"`
	CacheStore      string `json:"cacheStore"`
	CachedCountries int    `json:"cachedCountries"`
	Error           string `json:"error,omitempty"`
}

func (c *GeoContext) status(ctx context.Context) any {
	conf := c.resolver.Config()

	status := contextStatus{
		Service:        string(conf.Service),
		DefaultCountry: conf.DefaultCountry.String(),
		CacheStore:     string(c.cacheStore),
	}

	n, err := c.cache.Count(ctx)
	if err != nil {
		status.Error = err.Error()
	}

	status.CachedCountries = n

	return status
}
