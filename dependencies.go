package geocontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	prometheusSDK "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"golang.org/x/sync/errgroup"

	"github.com/zettagrid/geocontrol/alog"
	"github.com/zettagrid/geocontrol/jobs"
	"github.com/zettagrid/geocontrol/postgres"
	"github.com/zettagrid/geocontrol/setting"
)

var ErrMissingDependency = errors.New("missing dependency")

// Container holds global dependencies that can be used within each Context, to make initialisation easier.
// If the Context can operate with the shared resources.
// Otherwise, the Context is advised to initialise its own dependencies from its own configuration.
type Container struct { //nolint:govet // alignment less important than grouping
	Logger        *slog.Logger
	MeterProvider *metric.MeterProvider
	TraceProvider *trace.TracerProvider
	Registry      *prometheusSDK.Registry

	Config *Config
	PGx    *pgxpool.Pool

	WebRouter   *echo.Echo
	APIRouter   *echo.Group
	AdminRouter *echo.Group
	Validate    *validator.Validate

	Scheduler *jobs.MemoryScheduler
	Settings  setting.Settings

	mu         sync.Mutex
	statusFns  map[string]StatusFunc
	onShutdown []func(ctx context.Context) error
	startedAt  time.Time

	statusEndpoint *http.Server
	pg             *postgres.Handler
}

// StatusFunc returns the part of the /status response a Context is responsible for.
// The value has to be encodable as JSON.
type StatusFunc func(ctx context.Context) any

func (c *Container) EnsureAllDependenciesPresent() error {
	if c.Config == nil {
		return fmt.Errorf("%w: global config not found", ErrMissingDependency)
	}

	if c.Logger == nil || c.TraceProvider == nil || c.MeterProvider == nil {
		return fmt.Errorf("%w: observability not initialised", ErrMissingDependency)
	}

	if c.WebRouter == nil || c.APIRouter == nil || c.AdminRouter == nil {
		return fmt.Errorf("%w: web routers not initialised", ErrMissingDependency)
	}

	if c.Settings == nil || c.Scheduler == nil {
		return fmt.Errorf("%w: settings or scheduler not initialised", ErrMissingDependency)
	}

	return nil
}

// AddStatus adds the result of fn under name to the /status response.
func (c *Container) AddStatus(name string, fn StatusFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statusFns[name] = fn
}

// OnShutdown registers fn to be called by Shutdown, after all servers are stopped.
func (c *Container) OnShutdown(fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onShutdown = append(c.onShutdown, fn)
}

func InitialiseDefaultDependencies(ctx context.Context, conf *Config) (*Container, error) {
	if conf == nil {
		return nil, fmt.Errorf("%w: global config not found", ErrMissingDependency)
	}

	dc := &Container{
		Config:    conf,
		Registry:  prometheusSDK.NewRegistry(),
		Validate:  validator.New(validator.WithRequiredStructEnabled()),
		statusFns: map[string]StatusFunc{},
		startedAt: time.Now(),
	}

	dc.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct // use defaults
	)

	{ // observability
		resource := resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(fmt.Sprintf("%s.%s", conf.OrganisationName, conf.ApplicationName)),
			attribute.String(conf.OrganisationName, conf.ApplicationName),
		)

		{ // traces
			traceProvider, err := newTraceProvider(ctx, conf, resource)
			if err != nil {
				return nil, err
			}

			dc.TraceProvider = traceProvider
			otel.SetTracerProvider(traceProvider)
		}

		{ // metrics
			exporter, err := prometheus.New(prometheus.WithRegisterer(dc.Registry))
			if err != nil {
				return nil, fmt.Errorf("could not create to prometheus exporter: %w", err)
			}

			meterProvider := metric.NewMeterProvider(
				metric.WithResource(resource),
				metric.WithReader(exporter),
			)

			dc.MeterProvider = meterProvider
			otel.SetMeterProvider(meterProvider)
		}
	}

	{ // postgres & settings
		dc.Settings = setting.NewInMemorySettings()

		if conf.Postgres.Enabled {
			pg, err := postgres.ConnectAndMigrate(ctx, postgres.Config{
				User:       conf.Postgres.User,
				Password:   conf.Postgres.Password.Secret(),
				Database:   conf.Postgres.Database,
				Host:       conf.Postgres.Host,
				Port:       conf.Postgres.Port,
				SSLMode:    conf.Postgres.SSLMode,
				MaxConns:   conf.Postgres.MaxConns,
				Migrations: postgres.DefaultMigrations,
			}, dc.TraceProvider)
			if err != nil {
				return nil, fmt.Errorf("could not connect to postgres: %w", err)
			}

			dc.pg = pg
			dc.PGx = pg.PGx
			dc.Settings = setting.NewPostgresSettings(dc.PGx)
		}
	}

	{ // logger
		var logger *slog.Logger

		switch conf.Environment {
		case LocalEnv:
			logger = alog.NewDevelopment(dc.Settings)
		case TestEnv:
			logger = alog.NewNoop()
		default:
			logger = alog.New(alog.WithSettings(dc.Settings))
		}

		dc.Logger = logger.With(
			slog.String("organisation_name", conf.OrganisationName),
			slog.String("application_name", conf.ApplicationName),
			slog.String("instance_name", conf.InstanceName),
			slog.String("git_hash", gitHash()),
			slog.String("environment", string(conf.Environment)),
		)

		if conf.Environment != TestEnv {
			slog.SetDefault(dc.Logger)
		}
	}

	{ // web routers
		router := echo.New()
		router.HideBanner = true
		router.HidePort = true
		router.Logger.SetOutput(io.Discard)
		router.Validator = &CustomValidator{validator: dc.Validate}
		router.Debug = conf.Environment == LocalEnv

		router.Use(otelecho.Middleware(conf.OTEL.Hostname, otelecho.WithTracerProvider(dc.TraceProvider)))
		router.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{ //nolint:exhaustruct // use defaults
			Subsystem:  conf.ApplicationName,
			Registerer: dc.Registry,
		}))
		router.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{ //nolint:exhaustruct // use defaults
			TargetHeader: "Request-Id",
			Generator:    uuid.NewString,
			RequestIDHandler: func(c echo.Context, rid string) {
				c.SetRequest(c.Request().WithContext(alog.AddAttr(
					c.Request().Context(),
					slog.String("request_id", rid)),
				))
			},
		}))
		router.Use(middleware.Recover())

		dc.WebRouter = router
		dc.APIRouter = router.Group("/api")
		dc.AdminRouter = router.Group("/admin")
	}

	{ // jobs
		dc.Scheduler = jobs.NewMemoryScheduler(dc.Logger, jobs.WithTracerProvider(dc.TraceProvider))
	}

	return dc, nil
}

func (c *Container) Start(ctx context.Context) error {
	c.Logger.InfoContext(ctx, "starting all servers", slog.Int("port", c.Config.HTTP.Port))

	if c.Config.HTTP.StatusEndpointEnabled {
		c.statusEndpoint = serveStatus(ctx, c)
	}

	c.Scheduler.Start()

	go func() {
		err := c.WebRouter.Start(fmt.Sprintf(":%d", c.Config.HTTP.Port))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.Logger.ErrorContext(ctx, "could not serve http", slog.String("err", err.Error()))
		}
	}()

	return nil
}

// Shutdown stops all servers and background work, before it releases the shared resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.Logger.InfoContext(ctx, "shutting down all servers")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := c.WebRouter.Shutdown(gctx); err != nil {
			return fmt.Errorf("could not shutdown web server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return c.Scheduler.Shutdown(gctx) //nolint:wrapcheck // the scheduler wraps its errors
	})

	if c.statusEndpoint != nil {
		g.Go(func() error {
			if err := c.statusEndpoint.Shutdown(gctx); err != nil {
				return fmt.Errorf("could not shutdown status endpoint: %w", err)
			}

			return nil
		})
	}

	err := g.Wait()

	c.mu.Lock()
	hooks := c.onShutdown
	c.mu.Unlock()

	for _, fn := range hooks {
		err = errors.Join(err, fn(ctx))
	}

	if c.pg != nil {
		err = errors.Join(err, c.pg.Shutdown(ctx))
	}

	err = errors.Join(err, c.TraceProvider.Shutdown(ctx), c.MeterProvider.Shutdown(ctx))

	return err
}

const (
	metricPath = "/metrics"
	statusPath = "/status"
)

// newTraceProvider exports spans via OTLP gRPC. In the test environment spans are sampled
// but not exported, as no collector is running.
func newTraceProvider(ctx context.Context, conf *Config, res *resource.Resource) (*trace.TracerProvider, error) {
	if conf.Environment == TestEnv {
		return trace.NewTracerProvider(trace.WithResource(res), trace.WithSampler(trace.AlwaysSample())), nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(net.JoinHostPort(conf.OTEL.Host, strconv.Itoa(conf.OTEL.Port))),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not connect to trace exporter: %w", err)
	}

	if conf.Environment == LocalEnv {
		return trace.NewTracerProvider(
			trace.WithBatcher(exporter, trace.WithBlocking()),
			trace.WithResource(res),
			trace.WithSampler(trace.AlwaysSample()),
		), nil
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(0.6))), //nolint:mnd
	), nil
}

func serveStatus(ctx context.Context, di *Container) *http.Server {
	srv := &http.Server{ //nolint:exhaustruct // use defaults
		Addr:              fmt.Sprintf(":%d", di.Config.HTTP.StatusEndpointPort),
		Handler:           di.StatusHandler(),
		ReadHeaderTimeout: 5 * time.Second, //nolint:mnd // no need for a config value
	}

	di.Logger.InfoContext(ctx, "serving status endpoint",
		slog.String("addr", srv.Addr),
		slog.String("metric_path", metricPath),
		slog.String("status_path", statusPath),
	)

	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			di.Logger.DebugContext(ctx, "error serving http", slog.String("err", err.Error()))

			return
		}
	}()

	return srv
}

// StatusHandler serves the prometheus metrics and the system status as JSON.
func (c *Container) StatusHandler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricPath, promhttp.HandlerFor(
		c.Registry,
		promhttp.HandlerOpts{ //nolint:exhaustruct
			EnableOpenMetrics: true, // to enable Examplars in the export format
		},
	))

	mux.HandleFunc(statusPath, func(w http.ResponseWriter, r *http.Request) {
		statusData := getSystemStatus(r.Context(), c)

		code := http.StatusOK
		if statusData.Status != statusOnline {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)

		_ = json.NewEncoder(w).Encode(statusData)
	})

	return mux
}

// CustomValidator makes the shared validator available to echo's c.Validate.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return err //nolint:wrapcheck // return the original validate error to not break the API for the caller.
	}

	return nil
}

func gitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}

	return "unknown"
}
