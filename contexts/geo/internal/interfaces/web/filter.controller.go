package web

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/application"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

func NewFilterController(app application.App, trust domain.HeaderTrust) *FilterController {
	return &FilterController{
		app:   app,
		trust: trust,
	}
}

type FilterController struct {
	app   application.App
	trust domain.HeaderTrust
}

// filterRequest carries the raw geo fields of a content element, as the page builder stores them.
type filterRequest struct {
	Show   string `json:"show"`
	Hide   string `json:"hide"`
	Mode   string `json:"mode"`
	Output string `json:"output"`
}

type filterResponse struct {
	Output  string `json:"output"`
	Visible bool   `json:"visible"`
	Country string `json:"country,omitempty"`
}

// Filter returns the element's output, if it is visible to the requesting visitor.
func (fc *FilterController) Filter() func(c echo.Context) error {
	return func(c echo.Context) error {
		var req filterRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid element").SetInternal(err)
		}

		res, err := fc.app.FilterElement.H(c.Request().Context(), application.FilterElementQuery{
			Attributes: domain.ParseAttributes(req.Show, req.Hide, req.Mode),
			IP:         domain.ClientIP(c.Request(), fc.trust),
			Output:     req.Output,
		})
		if err != nil {
			return fmt.Errorf("%w", err)
		}

		return c.JSON(http.StatusOK, filterResponse{
			Output:  res.Output,
			Visible: res.Visible,
			Country: res.Country.String(),
		})
	}
}
