package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zettagrid/geocontrol/alog"
	"github.com/zettagrid/geocontrol/app"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/application"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

func TestFilterElementQueryHandler_H(t *testing.T) {
	t.Parallel()

	const output = "<div>only for you</div>"

	t.Run("untargeted element does not resolve", func(t *testing.T) {
		t.Parallel()

		resolved := false
		handler := application.NewFilterElementQueryHandler(app.TestQueryHandler(
			func(context.Context, application.ResolveVisitorCountryQuery) (application.ResolveVisitorCountryResponse, error) {
				resolved = true
				return application.ResolveVisitorCountryResponse{}, nil
			},
		))

		res, err := handler.H(ctx, application.FilterElementQuery{
			Attributes: domain.ParseAttributes("", " , ", "show_only"),
			IP:         publicIP,
			Output:     output,
		})
		assert.NoError(t, err)
		assert.Equal(t, output, res.Output)
		assert.True(t, res.Visible)
		assert.Empty(t, res.Country)
		assert.False(t, resolved)
	})

	tests := map[string]struct {
		show, hide, mode string
		country          domain.CountryCode
		visible          bool
	}{
		"shown":          {"au,nz", "", "", "US", false},
		"show list hit":  {"au,nz", "", "", "NZ", true},
		"hidden":         {"", "US,GB", "default", "US", false},
		"hide list miss": {"", "US,GB", "default", "AU", true},
		"hide only":      {"AU", "US", "hide_only", "DE", true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resolver, _ := newResolver(&stubProvider{country: tt.country})
			handler := application.NewFilterElementQueryHandler(
				application.NewResolveVisitorCountryQueryHandler(alog.NewNoop(), resolver),
			)

			res, err := handler.H(ctx, application.FilterElementQuery{
				Attributes: domain.ParseAttributes(tt.show, tt.hide, tt.mode),
				IP:         publicIP,
				Output:     output,
			})
			assert.NoError(t, err)
			assert.Equal(t, tt.visible, res.Visible)
			assert.Equal(t, tt.country, res.Country)

			if tt.visible {
				assert.Equal(t, output, res.Output)
			} else {
				assert.Empty(t, res.Output)
			}
		})
	}

	t.Run("resolve failure", func(t *testing.T) {
		t.Parallel()

		handler := application.NewFilterElementQueryHandler(
			app.TestFailureQueryHandler[application.ResolveVisitorCountryQuery, application.ResolveVisitorCountryResponse](),
		)

		_, err := handler.H(ctx, application.FilterElementQuery{
			Attributes: domain.ParseAttributes("AU", "", ""),
			IP:         publicIP,
			Output:     output,
		})
		assert.ErrorIs(t, err, app.ErrUseCaseFailed)
	})
}
