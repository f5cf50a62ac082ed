//go:build integration

package tests

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-testfixtures/testfixtures/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/ory/dockertest/v3"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zettagrid/geocontrol/postgres"
)

const postgresContainerName = "geocontrol-testing-postgres"

var testPGConf = postgres.Config{ //nolint:gochecknoglobals,exhaustruct
	User:       "geocontrol",
	Password:   "secret",
	Database:   "geocontrol_test",
	Host:       "localhost",
	MaxConns:   10, //nolint:mnd
	Migrations: postgres.DefaultMigrations,
}

//nolint:gochecknoglobals // one postgres container per test binary
var postgresDocker = sync.OnceValue(startPostgresDocker)

// GetPostgresDockerForIntegrationTestingInstance returns the postgres container of this test binary,
// connected and migrated. The first call starts it. It panics if docker fails.
func GetPostgresDockerForIntegrationTestingInstance() *PostgresDocker {
	return postgresDocker()
}

func startPostgresDocker() *PostgresDocker {
	var handler *postgres.Handler

	connect := func(resource *dockertest.Resource) func() error {
		conf := testPGConf
		conf.Port, _ = strconv.Atoi(resource.GetPort("5432/tcp"))

		return func() error {
			h, err := postgres.ConnectAndMigrate(context.Background(), conf, noop.NewTracerProvider())
			if err != nil {
				return err //nolint:wrapcheck // dockertest only retries
			}

			handler = h

			return nil
		}
	}

	cleanup, err := GetDockerContainerInstance(&dockertest.RunOptions{ //nolint:exhaustruct
		Name:       postgresContainerName + "-" + strings.ToLower(ulid.Make().String()[20:]),
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=" + testPGConf.User,
			"POSTGRES_PASSWORD=" + testPGConf.Password,
			"POSTGRES_DB=" + testPGConf.Database,
		},
		Cmd: []string{"-c", "max_connections=1000"},
	}, connect)
	if err != nil {
		panic(err)
	}

	return &PostgresDocker{pg: handler, cleanupDocker: cleanup}
}

// PostgresDocker hands out one fresh database per test, so tests run in parallel without cleaning up.
type PostgresDocker struct {
	pg            *postgres.Handler
	cleanupDocker func() error
}

// NewTestDatabase creates and migrates a new database and loads the testfixtures files into it.
// It panics on any failure.
func (pd *PostgresDocker) NewTestDatabase(files ...string) *pgxpool.Pool {
	ctx := context.Background()
	name := "test_" + strings.ToLower(ulid.Make().String())

	if _, err := pd.pg.PGx.Exec(ctx, "CREATE DATABASE "+name); err != nil {
		panic(fmt.Errorf("could not create database %s: %w", name, err))
	}

	conf := pd.pg.Config
	conf.Database = name

	handler, err := postgres.ConnectAndMigrate(ctx, conf, noop.NewTracerProvider())
	if err != nil {
		panic(err)
	}

	if len(files) > 0 {
		fixtures, err := testfixtures.New(
			testfixtures.Database(handler.DB),
			testfixtures.Dialect("postgres"),
			testfixtures.FilesMultiTables(files...),
		)
		if err != nil {
			panic(err)
		}

		if err := fixtures.Load(); err != nil {
			panic(err)
		}
	}

	return handler.PGx
}

// Tables lists the schema qualified tables created by the migrations.
func (pd *PostgresDocker) Tables(ctx context.Context) ([]string, error) {
	var tables []string

	err := pgxscan.Select(ctx, pd.PGx(), &tables, `
		SELECT table_schema || '.' || table_name
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		  AND table_type = 'BASE TABLE'
		  AND table_name <> 'schema_migrations'
		ORDER BY 1`,
	)
	if err != nil {
		return nil, fmt.Errorf("could not list tables: %w", err)
	}

	return tables, nil
}

// Cleanup closes the connection and removes the container.
// Call it explicitly at the end of TestMain, os.Exit skips deferred calls.
func (pd *PostgresDocker) Cleanup() {
	if err := pd.pg.Shutdown(context.Background()); err != nil {
		panic(err)
	}

	if err := pd.cleanupDocker(); err != nil {
		panic(err)
	}
}

func (pd *PostgresDocker) PGx() *pgxpool.Pool {
	return pd.pg.PGx
}
