package init

import (
	"github.com/labstack/echo/v4"
)

// registerWebRoutes initialises all routes of this Context.
func (c *GeoContext) registerWebRoutes(router *echo.Group) {
	router.GET("/visitor", c.visitorController.Visitor()).Name = "geo.visitor"
}

// registerAPIRoutes initialises all api routes of this Context.
func (c *GeoContext) registerAPIRoutes(router *echo.Group) {
	router.POST("/filter", c.filterController.Filter()).Name = "geo.filter"
}
