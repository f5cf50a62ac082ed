//go:build integration

package setting_test

import (
	"testing"

	"github.com/zettagrid/geocontrol/setting"
	"github.com/zettagrid/geocontrol/tests"
)

func TestPostgresSettings(t *testing.T) {
	t.Parallel()

	pg := tests.GetPostgresDockerForIntegrationTestingInstance()

	setting.TestSuite(t, func() setting.Settings {
		return setting.NewPostgresSettings(pg.NewTestDatabase())
	})
}
