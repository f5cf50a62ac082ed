//go:build integration

package postgres_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zettagrid/geocontrol/postgres"
	"github.com/zettagrid/geocontrol/tests"
)

var runOptions = &dockertest.RunOptions{
	Repository: "postgres",
	Tag:        "16",
	Env: []string{
		"POSTGRES_PASSWORD=secret",
		"POSTGRES_USER=geocontrol",
		"POSTGRES_DB=dbname_test",
		"listen_addresses = '*'",
	},
}

func startPostgres(t *testing.T, connect func(port int) error) {
	t.Helper()

	cleanup, err := tests.StartDockerContainer(runOptions, func(resource *dockertest.Resource) func() error {
		port, _ := strconv.Atoi(resource.GetPort("5432/tcp"))

		return func() error { return connect(port) }
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = cleanup() })
}

func conf(port int) postgres.Config {
	return postgres.Config{
		Host:     "localhost",
		Port:     port,
		User:     "geocontrol",
		Password: "secret",
		Database: "dbname_test",
	}
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("ensure db connected and closed", func(t *testing.T) {
		t.Parallel()

		var pgHandler *postgres.Handler

		startPostgres(t, func(port int) error {
			handler, err := postgres.Connect(context.Background(), conf(port), noop.NewTracerProvider())
			if err != nil {
				return err //nolint:wrapcheck
			}

			pgHandler = handler

			return nil
		})

		err := pgHandler.PGx.Ping(context.Background())
		assert.NoError(t, err)
		assert.NotEmpty(t, pgHandler.DB)

		err = pgHandler.Shutdown(context.Background())
		assert.NoError(t, err)

		err = pgHandler.PGx.Ping(context.Background())
		assert.Error(t, err)
	})
}

func TestConnectAndMigrate(t *testing.T) {
	t.Parallel()

	t.Run("missing migrations fail", func(t *testing.T) {
		t.Parallel()

		_, err := postgres.ConnectAndMigrate(context.Background(), postgres.Config{}, noop.NewTracerProvider())
		assert.ErrorIs(t, err, postgres.ErrMigrationFailed)
	})

	t.Run("default migrations create all tables", func(t *testing.T) {
		t.Parallel()

		var pgHandler *postgres.Handler

		startPostgres(t, func(port int) error {
			c := conf(port)
			c.Migrations = postgres.DefaultMigrations

			handler, err := postgres.ConnectAndMigrate(context.Background(), c, noop.NewTracerProvider())
			if err != nil {
				return err //nolint:wrapcheck
			}

			pgHandler = handler

			return nil
		})

		for _, table := range []string{"public.setting", "public.visitor_country"} {
			var exists bool

			err := pgHandler.PGx.QueryRow(context.Background(),
				`SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists)
			assert.NoError(t, err)
			assert.True(t, exists, table)
		}
	})
}
