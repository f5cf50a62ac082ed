package init

import (
	"context"
	"net/http"

	"github.com/zettagrid/geocontrol/contexts/geo"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/application"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

// geoAPI implements geo.API on top of the use cases, so that calls of other
// Contexts are instrumented the same way as web requests.
type geoAPI struct {
	app      application.App
	resolver *domain.Resolver
	trust    domain.HeaderTrust
}

var _ geo.API = (*geoAPI)(nil)

func (api *geoAPI) VisitorCountry(ctx context.Context, r *http.Request) geo.CountryCode {
	return api.Country(ctx, domain.ClientIP(r, api.trust))
}

func (api *geoAPI) Country(ctx context.Context, ip string) geo.CountryCode {
	res, err := api.app.ResolveVisitorCountry.H(ctx, application.ResolveVisitorCountryQuery{IP: ip})
	if err != nil {
		return api.resolver.Config().DefaultCountry
	}

	return res.Country
}

func (api *geoAPI) Visible(attrs geo.Attributes, country geo.CountryCode) bool {
	return domain.Evaluate(attrs, country)
}

func (api *geoAPI) Filter(ctx context.Context, r *http.Request, attrs geo.Attributes, output string) string {
	res, err := api.app.FilterElement.H(ctx, application.FilterElementQuery{
		Attributes: attrs,
		IP:         domain.ClientIP(r, api.trust),
		Output:     output,
	})
	if err != nil {
		if domain.Evaluate(attrs, api.resolver.Config().DefaultCountry) {
			return output
		}

		return ""
	}

	return res.Output
}

func (api *geoAPI) ClearCache(ctx context.Context) (int, error) {
	res, err := api.app.ClearCache.H(ctx, application.ClearCacheRequest{})
	if err != nil {
		return 0, err //nolint:wrapcheck // the use case wraps its errors
	}

	return res.Removed, nil
}
