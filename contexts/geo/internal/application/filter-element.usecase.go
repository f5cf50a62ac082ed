package application

import (
	"context"
	"fmt"

	"github.com/zettagrid/geocontrol/app"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

func NewFilterElementQueryHandler(
	resolve app.Query[ResolveVisitorCountryQuery, ResolveVisitorCountryResponse],
) app.Query[FilterElementQuery, FilterElementResponse] {
	return &filterElementQueryHandler{resolve: resolve}
}

type filterElementQueryHandler struct {
	resolve app.Query[ResolveVisitorCountryQuery, ResolveVisitorCountryResponse]
}

type (
	FilterElementQuery struct {
		Attributes domain.Attributes
		// IP is the visitor's address, it is only resolved if the element is targeted.
		IP     string
		Output string
	}
	FilterElementResponse struct {
		Output  string
		Visible bool
		// Country is empty, if the element is not targeted.
		Country domain.CountryCode
	}
)

// H returns the element's output if it is visible to the visitor, otherwise an empty string.
func (h *filterElementQueryHandler) H(ctx context.Context, query FilterElementQuery) (FilterElementResponse, error) {
	if !query.Attributes.Targeted() {
		return FilterElementResponse{Output: query.Output, Visible: true, Country: ""}, nil
	}

	res, err := h.resolve.H(ctx, ResolveVisitorCountryQuery{IP: query.IP})
	if err != nil {
		return FilterElementResponse{}, fmt.Errorf("could not resolve visitor country: %w", err)
	}

	if !domain.Evaluate(query.Attributes, res.Country) {
		return FilterElementResponse{Output: "", Visible: false, Country: res.Country}, nil
	}

	return FilterElementResponse{Output: query.Output, Visible: true, Country: res.Country}, nil
}
