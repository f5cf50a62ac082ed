package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/application"
)

func NewSettingsController(app application.App) *SettingsController {
	return &SettingsController{app: app}
}

type SettingsController struct {
	app application.App
}

type settingsResponse struct {
	Service        string   `json:"service"`
	DefaultCountry string   `json:"defaultCountry"`
	Services       []string `json:"services"`
}

func (sc *SettingsController) Show() func(c echo.Context) error {
	return func(c echo.Context) error {
		res, err := sc.app.ShowSettings.H(c.Request().Context(), application.ShowSettingsQuery{})
		if err != nil {
			return fmt.Errorf("%w", err)
		}

		services := make([]string, 0, len(res.Services))
		for _, s := range res.Services {
			services = append(services, string(s))
		}

		return c.JSON(http.StatusOK, settingsResponse{
			Service:        string(res.Service),
			DefaultCountry: res.DefaultCountry.String(),
			Services:       services,
		})
	}
}

func (sc *SettingsController) Update() func(c echo.Context) error {
	return func(c echo.Context) error {
		var cmd application.UpdateSettingsCommand
		if err := c.Bind(&cmd); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid settings").SetInternal(err)
		}

		err := sc.app.UpdateSettings.H(c.Request().Context(), cmd)

		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) || errors.Is(err, application.ErrUpdateSettingsFailed) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
		}

		if err != nil {
			return fmt.Errorf("%w", err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}

type clearCacheResponse struct {
	Removed int `json:"removed"`
}

func (sc *SettingsController) ClearCache() func(c echo.Context) error {
	return func(c echo.Context) error {
		res, err := sc.app.ClearCache.H(c.Request().Context(), application.ClearCacheRequest{})
		if err != nil {
			return fmt.Errorf("%w", err)
		}

		return c.JSON(http.StatusOK, clearCacheResponse{Removed: res.Removed})
	}
}
