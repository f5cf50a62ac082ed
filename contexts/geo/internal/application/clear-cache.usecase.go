package application

import (
	"context"
	"log/slog"

	"github.com/zettagrid/geocontrol/alog"
	"github.com/zettagrid/geocontrol/app"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

func NewClearCacheRequestHandler(
	logger alog.Logger,
	resolver *domain.Resolver,
) app.Request[ClearCacheRequest, ClearCacheResponse] {
	return &clearCacheRequestHandler{
		logger:   logger,
		resolver: resolver,
	}
}

type clearCacheRequestHandler struct {
	logger   alog.Logger
	resolver *domain.Resolver
}

type (
	ClearCacheRequest  struct{}
	ClearCacheResponse struct {
		Removed int
	}
)

func (h *clearCacheRequestHandler) H(ctx context.Context, _ ClearCacheRequest) (ClearCacheResponse, error) {
	n, err := h.resolver.ClearCache(ctx)
	if err != nil {
		return ClearCacheResponse{}, err //nolint:wrapcheck // wrapped by the resolver
	}

	h.logger.InfoContext(ctx, "visitor country cache cleared", slog.Int("removed", n))

	return ClearCacheResponse{Removed: n}, nil
}
