package cmd_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/zettagrid/geocontrol/cmd"
	geo_init "github.com/zettagrid/geocontrol/contexts/geo/init"
)

const testConfig = "./testdata/test-config.yaml"

// newTestCLI returns a cli whose geo services all answer with country US.
func newTestCLI(t *testing.T, osSignal <-chan os.Signal) *cobra.Command {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"countryCode":"US"}`))
	}))
	t.Cleanup(srv.Close)

	return cmd.NewGeocontrolCLI(osSignal, geo_init.WithProviderBaseURL(srv.URL))
}

func TestRootCmd(t *testing.T) {
	t.Parallel()

	t.Run("no command: show help & list of commands", func(t *testing.T) {
		t.Parallel()

		// leaving args empty or "" leads to: unknown command error, so it's set explicitly to empty slice
		output, err := cmd.TestExecute(t, newTestCLI(t, nil), []string{}...)
		assert.NoError(t, err)
		assert.Contains(t, output, "Available Commands:")
		assert.Contains(t, output, "serve")
		assert.Contains(t, output, "resolve")
		assert.Contains(t, output, "cache")
		assert.Contains(t, output, "version")
	})

	t.Run("unknown command", func(t *testing.T) {
		t.Parallel()

		output, err := cmd.TestExecute(t, newTestCLI(t, nil), "non-ex-command")
		assert.Error(t, err)
		assert.Contains(t, output, "unknown command")
	})

	t.Run("missing config file", func(t *testing.T) {
		t.Parallel()

		_, err := cmd.TestExecute(t, newTestCLI(t, nil), "resolve", "--config", "./testdata/non-existing.yaml", "8.8.8.8")
		assert.Error(t, err)
	})
}

func TestResolveCmd(t *testing.T) {
	t.Parallel()

	t.Run("resolve ips", func(t *testing.T) {
		t.Parallel()

		output, err := cmd.TestExecute(t, newTestCLI(t, nil), "resolve", "--config", testConfig, "8.8.8.8", "127.0.0.1")
		assert.NoError(t, err)
		assert.Contains(t, output, "8.8.8.8\tUS\tprovider")
		assert.Contains(t, output, "127.0.0.1\tAU\tlocal")
	})

	t.Run("requires an ip", func(t *testing.T) {
		t.Parallel()

		_, err := cmd.TestExecute(t, newTestCLI(t, nil), "resolve", "--config", testConfig)
		assert.Error(t, err)
	})
}

func TestCacheCmd(t *testing.T) {
	t.Parallel()

	output, err := cmd.TestExecute(t, newTestCLI(t, nil), "cache", "clear", "--config", testConfig)
	assert.ErrorIs(t, err, cmd.ErrCacheNotShared, "the memory cache of a running server is not reachable")
	assert.Contains(t, output, "memory cache")
	assert.NotContains(t, output, "removed")
}

func TestServeCmd(t *testing.T) {
	t.Parallel()

	osSignal := make(chan os.Signal, 1)
	osSignal <- syscall.SIGTERM

	output, err := cmd.TestExecute(t, newTestCLI(t, osSignal), "serve", "--config", testConfig)
	assert.NoError(t, err)
	assert.Contains(t, output, "geocontrol listening on :0, geo service ip-api")
	assert.Contains(t, output, "shutting down")
}
