package geo

import (
	"context"

	"github.com/labstack/echo/v4"
)

type ctxKey string

const (
	ctxVisitorCountry ctxKey = "geo.visitor_country"

	// VisitorCountryKey is set in echo.Context to hand over the country from the middleware to a controller.
	VisitorCountryKey = "geo.visitor_country"
)

// VisitorCountryMiddleware resolves the visitor's country once per request.
// Read it with CountryFromContext or from the echo.Context via VisitorCountryKey.
func VisitorCountryMiddleware(api API) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			country := api.VisitorCountry(req.Context(), req)

			c.Set(VisitorCountryKey, country)
			c.SetRequest(req.WithContext(WithCountry(req.Context(), country)))

			return next(c)
		}
	}
}

// WithCountry returns a copy of ctx carrying the visitor's country.
func WithCountry(ctx context.Context, country CountryCode) context.Context {
	return context.WithValue(ctx, ctxVisitorCountry, country)
}

// CountryFromContext returns the visitor's country set by VisitorCountryMiddleware.
func CountryFromContext(ctx context.Context) (CountryCode, bool) {
	country, ok := ctx.Value(ctxVisitorCountry).(CountryCode)

	return country, ok
}
