package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zettagrid/geocontrol/alog"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
	"github.com/zettagrid/geocontrol/setting"
)

// Settings an operator can change at run time. They override the static configuration.
var (
	SettingService        = setting.NewKey("geocontrol", "geo", "service")
	SettingDefaultCountry = setting.NewKey("geocontrol", "geo", "default_country")
)

// LoadConfig returns conf with the values stored in settings applied.
// Missing settings keep the value of conf.
func LoadConfig(ctx context.Context, settings setting.Settings, conf domain.Config) (domain.Config, error) {
	values, err := settings.Settings(ctx, []setting.Key{SettingService, SettingDefaultCountry})
	if err != nil && !errors.Is(err, setting.ErrNotFound) {
		return domain.Config{}, fmt.Errorf("could not load geo settings: %w", err)
	}

	if v, ok := values[SettingService]; ok && v.String() != "" {
		conf.Service = domain.Service(v.String())
	}

	if v, ok := values[SettingDefaultCountry]; ok && v.String() != "" {
		conf.DefaultCountry = domain.CountryCode(v.String())
	}

	conf, err = conf.Validate()
	if err != nil {
		return domain.Config{}, fmt.Errorf("invalid geo settings: %w", err)
	}

	return conf, nil
}

// WatchSettings applies every change of the geo settings to resolver, without a restart.
// Invalid values are logged and ignored.
func WatchSettings(logger alog.Logger, settings setting.Settings, resolver *domain.Resolver) {
	apply := func(update func(conf *domain.Config, value setting.Value)) func(setting.Value) {
		return func(value setting.Value) {
			ctx := context.Background()

			conf := resolver.Config()
			update(&conf, value)

			if err := resolver.UpdateConfig(conf); err != nil {
				logger.Log(ctx, slog.LevelWarn, "ignore invalid geo setting",
					slog.String("value", value.String()),
					slog.String("err", err.Error()),
				)

				return
			}

			logger.InfoContext(ctx, "geo settings changed",
				slog.String("service", string(conf.Service)),
				slog.String("default_country", conf.DefaultCountry.String()),
			)
		}
	}

	settings.OnSettingChange(SettingService, apply(func(conf *domain.Config, value setting.Value) {
		conf.Service = domain.Service(value.String())
	}))

	settings.OnSettingChange(SettingDefaultCountry, apply(func(conf *domain.Config, value setting.Value) {
		conf.DefaultCountry = domain.CountryCode(value.String())
	}))
}
