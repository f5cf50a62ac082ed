package application

import (
	"context"
	"log/slog"

	"github.com/zettagrid/geocontrol/alog"
	"github.com/zettagrid/geocontrol/app"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

func NewPurgeExpiredCountriesCommandHandler(
	logger alog.Logger,
	resolver *domain.Resolver,
) app.Command[PurgeExpiredCountries] {
	return &purgeExpiredCountriesCommandHandler{
		logger:   logger,
		resolver: resolver,
	}
}

type purgeExpiredCountriesCommandHandler struct {
	logger   alog.Logger
	resolver *domain.Resolver
}

// PurgeExpiredCountries is the scheduled job removing expired cache entries.
// Expired entries are never served, so this only frees space.
type PurgeExpiredCountries struct{}

func (h *purgeExpiredCountriesCommandHandler) H(ctx context.Context, _ PurgeExpiredCountries) error {
	n, err := h.resolver.PurgeExpired(ctx)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by the resolver
	}

	h.logger.DebugContext(ctx, "expired visitor countries purged", slog.Int("removed", n))

	return nil
}
