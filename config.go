package geocontrol

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/zettagrid/geocontrol/contexts/geo"
	"github.com/zettagrid/geocontrol/secret"
)

// Config is a structure used for service configuration.
// It is intended to be mapped by viper.
type Config struct {
	OrganisationName string `mapstructure:"organisation_name"`
	ApplicationName  string `mapstructure:"application_name"`
	InstanceName     string `mapstructure:"instance_name"`

	Environment Environment `mapstructure:"environment"`

	HTTP     HTTP     `mapstructure:"http"`
	Postgres Postgres `mapstructure:"postgres"`
	OTEL     OTEL     `mapstructure:"otel"`
	Geo      Geo      `mapstructure:"geo"`
}

const (
	LocalEnv       Environment = "local"
	TestEnv        Environment = "test"
	DevelopmentEnv Environment = "dev"
	ProductionEnv  Environment = "prod"
)

// Environments is the list of all supported environments.
func Environments() []Environment {
	return []Environment{LocalEnv, TestEnv, DevelopmentEnv, ProductionEnv}
}

type Environment string

const (
	MemoryStore   CacheStore = "memory"
	PostgresStore CacheStore = "postgres"
)

// CacheStores is the list of all places the visitor countries can be cached in.
func CacheStores() []CacheStore {
	return []CacheStore{MemoryStore, PostgresStore}
}

type CacheStore string

type (
	HTTP struct {
		Port                  int           `mapstructure:"port"                    json:"port"`
		StatusEndpointEnabled bool          `mapstructure:"status_endpoint_enabled" json:"-"`
		StatusEndpointPort    int           `mapstructure:"status_endpoint_port"    json:"-"`
		AdminUser             string        `mapstructure:"admin_user"              json:"-"`
		AdminPasswordHash     secret.Secret `mapstructure:"admin_password_hash"     json:"-"`
	}

	Postgres struct {
		Enabled  bool          `mapstructure:"enabled"   json:"enabled"`
		User     string        `mapstructure:"user"      json:"user"`
		Password secret.Secret `mapstructure:"password"  json:"-"`
		Database string        `mapstructure:"database"  json:"database"`
		Host     string        `mapstructure:"host"      json:"host"`
		Port     int           `mapstructure:"port"      json:"port"`
		SSLMode  string        `mapstructure:"ssl_mode"  json:"sslMode"`
		MaxConns int           `mapstructure:"max_conns" json:"maxConns"`
	}

	OTEL struct {
		Host     string `mapstructure:"host"     json:"host"`
		Port     int    `mapstructure:"port"     json:"port"`
		Hostname string `mapstructure:"hostname" json:"hostname"`
	}

	// Geo configures how visitor countries are resolved and cached.
	// Service and DefaultCountry are the start values, they can be changed at run time via setting.Settings.
	Geo struct {
		Service             geo.Service   `mapstructure:"service"               json:"service"`
		DefaultCountry      string        `mapstructure:"default_country"       json:"defaultCountry"`
		CacheDuration       time.Duration `mapstructure:"cache_duration"        json:"cacheDuration"`
		ProviderTimeout     time.Duration `mapstructure:"provider_timeout"      json:"providerTimeout"`
		CacheStore          CacheStore    `mapstructure:"cache_store"           json:"cacheStore"`
		PurgeSchedule       string        `mapstructure:"purge_schedule"        json:"purgeSchedule"`
		TrustForwardHeaders bool          `mapstructure:"trust_forward_headers" json:"trustForwardHeaders"`
		TrustedProxies      []string      `mapstructure:"trusted_proxies"       json:"trustedProxies"`
		IPInfoToken         secret.Secret `mapstructure:"ipinfo_token"          json:"-"`
		IP2LocationDB       string        `mapstructure:"ip2location_db"        json:"ip2locationDB"`
		MaxMindDB           string        `mapstructure:"maxmind_db"            json:"maxmindDB"`
	}
)

// EnvPrefix is prepended to every environment variable overwriting a config value,
// e.g. GEOCONTROL_GEO_SERVICE for geo.service.
const EnvPrefix = "GEOCONTROL"

// DefaultViper returns a new viper instance with all default values
// from Config set.
func DefaultViper() *Viper {
	vip := viper.New()

	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	vip.SetDefault("organisation_name", "zettagrid")
	vip.SetDefault("application_name", "geocontrol")
	vip.SetDefault("instance_name", "")

	vip.SetDefault("environment", "local")

	vip.SetDefault("http.port", 8080)
	vip.SetDefault("http.status_endpoint_enabled", true)
	vip.SetDefault("http.status_endpoint_port", 2223)
	vip.SetDefault("http.admin_user", "")
	vip.SetDefault("http.admin_password_hash", "")

	vip.SetDefault("postgres.enabled", false)
	vip.SetDefault("postgres.user", "geocontrol")
	vip.SetDefault("postgres.password", "secret")
	vip.SetDefault("postgres.database", "geocontrol")
	vip.SetDefault("postgres.host", "localhost")
	vip.SetDefault("postgres.port", 5432)
	vip.SetDefault("postgres.ssl_mode", "disable")
	vip.SetDefault("postgres.max_conns", 10)

	vip.SetDefault("otel.host", "localhost")
	vip.SetDefault("otel.port", 4317)
	vip.SetDefault("otel.hostname", "")

	vip.SetDefault("geo.service", string(geo.ServiceIPAPI))
	vip.SetDefault("geo.default_country", string(geo.DefaultCountry))
	vip.SetDefault("geo.cache_duration", "24h")
	vip.SetDefault("geo.provider_timeout", "5s")
	vip.SetDefault("geo.cache_store", string(MemoryStore))
	vip.SetDefault("geo.purge_schedule", "@hourly")
	vip.SetDefault("geo.trust_forward_headers", true)
	vip.SetDefault("geo.trusted_proxies", []string{})
	vip.SetDefault("geo.ipinfo_token", "")
	vip.SetDefault("geo.ip2location_db", "")
	vip.SetDefault("geo.maxmind_db", "")

	return &Viper{Viper: vip}
}

var errConfigLoadFailed = errors.New("loading configuration failed")

// Viper is a wrapper around viper.Viper for configuration loading.
// The only purpose is to overwrite the Unmarshal method,
// so that the custom data types of Config, like secret.Secret or geo.Service, are decoded
// and the developer does not have to think about it when using DefaultViper.
type Viper struct {
	*viper.Viper
}

func (vip *Viper) Unmarshal(rawVal any, opts ...viper.DecoderConfigOption) error {
	opts = append([]viper.DecoderConfigOption{viper.DecodeHook(decodeHook())}, opts...)

	err := vip.Viper.Unmarshal(rawVal, opts...)
	if err != nil {
		return fmt.Errorf("%w: could not decode configuration into struct: %v", errConfigLoadFailed, err)
	}

	return nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		allowListHookFunc(Environments()),
		allowListHookFunc(CacheStores()),
		geoServiceHookFunc(),
		// secret.Secret implements encoding.TextUnmarshaler
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// allowListHookFunc rejects every value of T that is not in allowed.
func allowListHookFunc[T ~string](allowed []T) mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, t reflect.Type, data any) (interface{}, error) {
		if t != reflect.TypeOf(T("")) {
			return data, nil
		}

		val, ok := data.(string)
		if ok && slices.Contains(allowed, T(val)) {
			return data, nil
		}

		e := make([]string, 0, len(allowed))
		for _, a := range allowed {
			e = append(e, string(a))
		}

		return data, fmt.Errorf("value is not allowed, use one of: %s", strings.Join(e, ", ")) //nolint:err113,lll // accept dynamic error
	}
}

func geoServiceHookFunc() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, t reflect.Type, data any) (interface{}, error) {
		if t != reflect.TypeOf(geo.Service("")) {
			return data, nil
		}

		val, _ := data.(string)

		service, err := geo.ParseService(val)
		if err != nil {
			return data, err //nolint:wrapcheck // export the underlying error
		}

		return service, nil
	}
}
