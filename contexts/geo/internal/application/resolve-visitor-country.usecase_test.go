package application_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zettagrid/geocontrol/alog"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/application"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

func TestResolveVisitorCountryQueryHandler_H(t *testing.T) {
	t.Parallel()

	t.Run("resolved", func(t *testing.T) {
		t.Parallel()

		logger := alog.Test(t)
		resolver, _ := newResolver(&stubProvider{country: "US"})

		handler := application.NewResolveVisitorCountryQueryHandler(logger, resolver)
		res, err := handler.H(ctx, application.ResolveVisitorCountryQuery{IP: publicIP})
		assert.NoError(t, err)
		assert.Equal(t, publicIP, res.IP)
		assert.Equal(t, domain.CountryCode("US"), res.Country)
		assert.Equal(t, domain.SourceProvider, res.Source)

		logger.Empty()
	})

	t.Run("provider failure falls back", func(t *testing.T) {
		t.Parallel()

		logger := alog.Test(t)
		resolver, _ := newResolver(&stubProvider{err: fmt.Errorf("%w: timeout", domain.ErrUnresolved)})

		handler := application.NewResolveVisitorCountryQueryHandler(logger, resolver)
		res, err := handler.H(ctx, application.ResolveVisitorCountryQuery{IP: publicIP})
		assert.NoError(t, err)
		assert.Equal(t, domain.CountryCode("AU"), res.Country)
		assert.Equal(t, domain.SourceFallback, res.Source)

		logger.Contains(`msg="problem resolving visitor country"`)
		logger.Contains(`service=ip-api`)
		logger.Contains(`msg="fall back to default country"`)
	})

	t.Run("local address", func(t *testing.T) {
		t.Parallel()

		logger := alog.Test(t)
		provider := &stubProvider{country: "US"}
		resolver, _ := newResolver(provider)

		handler := application.NewResolveVisitorCountryQueryHandler(logger, resolver)
		res, err := handler.H(ctx, application.ResolveVisitorCountryQuery{IP: privateIP})
		assert.NoError(t, err)
		assert.Equal(t, domain.CountryCode("AU"), res.Country)
		assert.Equal(t, domain.SourceLocal, res.Source)
		assert.Equal(t, int64(0), provider.calls.Load())
	})
}
