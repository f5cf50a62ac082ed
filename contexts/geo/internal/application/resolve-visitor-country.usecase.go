package application

import (
	"context"
	"log/slog"

	"github.com/zettagrid/geocontrol/alog"
	"github.com/zettagrid/geocontrol/app"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

func NewResolveVisitorCountryQueryHandler(
	logger alog.Logger,
	resolver *domain.Resolver,
) app.Query[ResolveVisitorCountryQuery, ResolveVisitorCountryResponse] {
	return &resolveVisitorCountryQueryHandler{
		logger:   logger,
		resolver: resolver,
	}
}

type resolveVisitorCountryQueryHandler struct {
	logger   alog.Logger
	resolver *domain.Resolver
}

type (
	ResolveVisitorCountryQuery struct {
		IP string
	}
	ResolveVisitorCountryResponse struct {
		IP      string
		Country domain.CountryCode
		Source  domain.Source
	}
)

// H never fails: problems on the way are logged and result in the default country.
func (h *resolveVisitorCountryQueryHandler) H(
	ctx context.Context,
	query ResolveVisitorCountryQuery,
) (ResolveVisitorCountryResponse, error) {
	res := h.resolver.Resolve(ctx, query.IP)

	if res.Err != nil {
		h.logger.DebugContext(ctx, "problem resolving visitor country",
			slog.String("ip", res.IP),
			slog.String("service", string(h.resolver.Config().Service)),
			slog.String("err", res.Err.Error()),
		)
	}

	if res.Source == domain.SourceFallback {
		h.logger.DebugContext(ctx, "fall back to default country",
			slog.String("ip", res.IP),
			slog.String("country", res.Country.String()),
		)
	}

	return ResolveVisitorCountryResponse{
		IP:      res.IP,
		Country: res.Country,
		Source:  res.Source,
	}, nil
}
