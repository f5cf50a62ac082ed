package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/zettagrid/geocontrol/app"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
	"github.com/zettagrid/geocontrol/setting"
)

var ErrUpdateSettingsFailed = errors.New("update settings failed")

func NewShowSettingsQueryHandler(resolver *domain.Resolver) app.Query[ShowSettingsQuery, ShowSettingsResponse] {
	return &showSettingsQueryHandler{resolver: resolver}
}

type showSettingsQueryHandler struct {
	resolver *domain.Resolver
}

type (
	ShowSettingsQuery    struct{}
	ShowSettingsResponse struct {
		Service        domain.Service
		DefaultCountry domain.CountryCode
		Services       []domain.Service
	}
)

func (h *showSettingsQueryHandler) H(_ context.Context, _ ShowSettingsQuery) (ShowSettingsResponse, error) {
	conf := h.resolver.Config()

	return ShowSettingsResponse{
		Service:        conf.Service,
		DefaultCountry: conf.DefaultCountry,
		Services:       h.resolver.Services(),
	}, nil
}

// NewUpdateSettingsCommandHandler only accepts services resolver has a provider for.
func NewUpdateSettingsCommandHandler(
	settings setting.Settings,
	resolver *domain.Resolver,
) app.Command[UpdateSettingsCommand] {
	return &updateSettingsCommandHandler{settings: settings, resolver: resolver}
}

type updateSettingsCommandHandler struct {
	settings setting.Settings
	resolver *domain.Resolver
}

type UpdateSettingsCommand struct {
	Service        string `json:"service"        validate:"required,oneof=ip-api ipapi ipinfo ip2location maxmind"`
	DefaultCountry string `json:"defaultCountry" validate:"required,len=2,alpha"`
}

// H stores the settings. Running resolvers pick them up via setting.Settings.OnSettingChange.
func (h *updateSettingsCommandHandler) H(ctx context.Context, cmd UpdateSettingsCommand) error {
	service, err := domain.ParseService(cmd.Service)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpdateSettingsFailed, err)
	}

	if err := h.resolver.CanUse(service); err != nil {
		return fmt.Errorf("%w: %v", ErrUpdateSettingsFailed, err)
	}

	country, err := domain.ParseCountry(cmd.DefaultCountry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpdateSettingsFailed, err)
	}

	if err := h.settings.Save(ctx, SettingService, setting.NewValue(string(service))); err != nil {
		return fmt.Errorf("%w: could not save service: %v", ErrUpdateSettingsFailed, err)
	}

	if err := h.settings.Save(ctx, SettingDefaultCountry, setting.NewValue(country.String())); err != nil {
		return fmt.Errorf("%w: could not save default country: %v", ErrUpdateSettingsFailed, err)
	}

	return nil
}
