package web

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mileusna/useragent"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/application"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

func NewVisitorController(app application.App, trust domain.HeaderTrust) *VisitorController {
	return &VisitorController{
		app:   app,
		trust: trust,
	}
}

type VisitorController struct {
	app   application.App
	trust domain.HeaderTrust
}

type visitorResponse struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
	Source  string `json:"source"`
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Device  string `json:"device,omitempty"`
}

// Visitor shows what the geo targeting knows about the current visitor.
func (vc *VisitorController) Visitor() func(c echo.Context) error {
	return func(c echo.Context) error {
		res, err := vc.app.ResolveVisitorCountry.H(c.Request().Context(), application.ResolveVisitorCountryQuery{
			IP: domain.ClientIP(c.Request(), vc.trust),
		})
		if err != nil {
			return fmt.Errorf("%w", err)
		}

		ua := useragent.Parse(c.Request().UserAgent())

		return c.JSON(http.StatusOK, visitorResponse{
			IP:      res.IP,
			Country: res.Country.String(),
			Source:  string(res.Source),
			Browser: ua.Name,
			OS:      ua.OS,
			Device:  deviceType(ua),
		})
	}
}

func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Bot:
		return "bot"
	case ua.Tablet:
		return "tablet"
	case ua.Mobile:
		return "mobile"
	case ua.Desktop:
		return "desktop"
	default:
		return ""
	}
}
