package geocontrol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zettagrid/geocontrol"
	"github.com/zettagrid/geocontrol/contexts/geo"
)

func TestDefaultViper(t *testing.T) {
	t.Parallel()

	vip := geocontrol.DefaultViper()
	assert.NotEmpty(t, vip)

	// This test enforces the default values, so whenever they change,
	// make sure to also update the example config file!

	assert.Equal(t, "zettagrid", vip.GetString("organisation_name"))
	assert.Equal(t, "geocontrol", vip.GetString("application_name"))
	assert.Empty(t, vip.Get("instance_name"))

	assert.Equal(t, geocontrol.LocalEnv, geocontrol.Environment(vip.GetString("environment")))

	assert.Equal(t, 8080, vip.GetInt("http.port"))
	assert.True(t, vip.GetBool("http.status_endpoint_enabled"))
	assert.Equal(t, 2223, vip.GetInt("http.status_endpoint_port"))
	assert.Empty(t, vip.GetString("http.admin_user"))
	assert.Empty(t, vip.GetString("http.admin_password_hash"))

	assert.False(t, vip.GetBool("postgres.enabled"))
	assert.Equal(t, "geocontrol", vip.GetString("postgres.user"))
	assert.Equal(t, "secret", vip.GetString("postgres.password"))
	assert.Equal(t, "geocontrol", vip.GetString("postgres.database"))
	assert.Equal(t, "localhost", vip.GetString("postgres.host"))
	assert.Equal(t, 5432, vip.GetInt("postgres.port"))
	assert.Equal(t, "disable", vip.GetString("postgres.ssl_mode"))
	assert.Equal(t, 10, vip.GetInt("postgres.max_conns"))

	assert.Equal(t, "localhost", vip.GetString("otel.host"))
	assert.Equal(t, 4317, vip.GetInt("otel.port"))
	assert.Equal(t, "", vip.GetString("otel.hostname"))

	assert.Equal(t, "ip-api", vip.GetString("geo.service"))
	assert.Equal(t, "AU", vip.GetString("geo.default_country"))
	assert.Equal(t, 24*time.Hour, vip.GetDuration("geo.cache_duration"))
	assert.Equal(t, 5*time.Second, vip.GetDuration("geo.provider_timeout"))
	assert.Equal(t, "memory", vip.GetString("geo.cache_store"))
	assert.Equal(t, "@hourly", vip.GetString("geo.purge_schedule"))
	assert.True(t, vip.GetBool("geo.trust_forward_headers"))
	assert.Empty(t, vip.GetStringSlice("geo.trusted_proxies"))
	assert.Empty(t, vip.GetString("geo.ipinfo_token"))
	assert.Empty(t, vip.GetString("geo.ip2location_db"))
	assert.Empty(t, vip.GetString("geo.maxmind_db"))
}

func TestViper_Unmarshal(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		conf := geocontrol.Config{}

		err := geocontrol.DefaultViper().Unmarshal(&conf)
		require.NoError(t, err)

		assert.Equal(t, geocontrol.LocalEnv, conf.Environment)
		assert.Equal(t, geo.ServiceIPAPI, conf.Geo.Service)
		assert.Equal(t, "AU", conf.Geo.DefaultCountry)
		assert.Equal(t, 24*time.Hour, conf.Geo.CacheDuration)
		assert.Equal(t, 5*time.Second, conf.Geo.ProviderTimeout)
		assert.Equal(t, geocontrol.MemoryStore, conf.Geo.CacheStore)
		assert.True(t, conf.Geo.TrustForwardHeaders)
		assert.Empty(t, conf.Geo.TrustedProxies)
		assert.False(t, conf.Geo.IPInfoToken.IsSet())
		assert.False(t, conf.HTTP.AdminPasswordHash.IsSet())
		assert.Equal(t, "secret", conf.Postgres.Password.Secret())
	})

	t.Run("config file", func(t *testing.T) {
		t.Parallel()

		vip := geocontrol.DefaultViper()
		vip.SetConfigFile("./testdata/config/test-config.yaml")
		err := vip.ReadInConfig()
		require.NoError(t, err)

		conf := geocontrol.Config{}

		err = vip.Unmarshal(&conf)
		require.NoError(t, err)

		assert.Equal(t, geocontrol.TestEnv, conf.Environment)
		assert.Equal(t, "test-instance", conf.InstanceName)
		assert.Equal(t, 8081, conf.HTTP.Port)
		assert.Equal(t, "admin", conf.HTTP.AdminUser)
		assert.True(t, conf.HTTP.AdminPasswordHash.IsSet())
		assert.True(t, conf.Postgres.Enabled)

		assert.Equal(t, geo.ServiceIPInfo, conf.Geo.Service)
		assert.Equal(t, "nz", conf.Geo.DefaultCountry)
		assert.Equal(t, 12*time.Hour, conf.Geo.CacheDuration)
		assert.Equal(t, 2*time.Second, conf.Geo.ProviderTimeout)
		assert.Equal(t, geocontrol.PostgresStore, conf.Geo.CacheStore)
		assert.Equal(t, "@every 30m", conf.Geo.PurgeSchedule)
		assert.False(t, conf.Geo.TrustForwardHeaders)
		assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, conf.Geo.TrustedProxies)
	})

	t.Run("unmarshal secrets", func(t *testing.T) {
		t.Parallel()

		vip := geocontrol.DefaultViper()
		vip.SetConfigFile("./testdata/config/test-config.yaml")
		err := vip.ReadInConfig()
		require.NoError(t, err)

		conf := geocontrol.Config{}

		err = vip.Unmarshal(&conf)
		require.NoError(t, err)
		assert.Equal(t, "my-db-secret", conf.Postgres.Password.Secret())
		assert.Equal(t, "my-ipinfo-token", conf.Geo.IPInfoToken.Secret())
		assert.NotContains(t, conf.Geo.IPInfoToken.String(), "my-ipinfo-token")
	})

	t.Run("custom config", func(t *testing.T) {
		t.Parallel()

		type MyConfig struct {
			SomeStructField   struct{ A string }
			geocontrol.Config `mapstructure:",squash"`
		}

		vip := geocontrol.DefaultViper()
		vip.SetConfigFile("./testdata/config/test-config.yaml")
		err := vip.ReadInConfig()
		require.NoError(t, err)

		conf := MyConfig{}

		err = vip.Unmarshal(&conf)
		require.NoError(t, err)
		assert.Equal(t, "my-db-secret", conf.Postgres.Password.Secret())
		assert.Equal(t, geo.ServiceIPInfo, conf.Geo.Service)
	})

	tests := map[string]struct {
		file     string
		contains string
	}{
		"invalid environment": {
			"./testdata/config/invalid-config.yaml",
			"use one of: local, test, dev, prod",
		},
		"invalid cache store": {
			"./testdata/config/invalid-cache-store-config.yaml",
			"use one of: memory, postgres",
		},
		"unknown service": {
			"./testdata/config/invalid-service-config.yaml",
			geo.ErrUnknownService.Error(),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			vip := geocontrol.DefaultViper()
			vip.SetConfigFile(tt.file)
			err := vip.ReadInConfig()
			require.NoError(t, err)

			conf := geocontrol.Config{}

			err = vip.Unmarshal(&conf)
			assert.Error(t, err, "should fail when using unsupported values")
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

//nolint:paralleltest // t.Setenv does not work with parallel tests
func TestViper_Unmarshal_environmentVariables(t *testing.T) {
	t.Setenv("GEOCONTROL_GEO_DEFAULT_COUNTRY", "DE")
	t.Setenv("GEOCONTROL_GEO_SERVICE", "maxmind")
	t.Setenv("GEOCONTROL_GEO_TRUSTED_PROXIES", "10.0.0.0/8,172.16.0.0/12")

	conf := geocontrol.Config{}

	err := geocontrol.DefaultViper().Unmarshal(&conf)
	require.NoError(t, err)

	assert.Equal(t, "DE", conf.Geo.DefaultCountry)
	assert.Equal(t, geo.ServiceMaxMind, conf.Geo.Service)
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.0/12"}, conf.Geo.TrustedProxies)
}
