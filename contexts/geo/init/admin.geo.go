package init

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/zettagrid/geocontrol/secret"
)

// registerAdminRoutes initialises all admin routes of this Context.
func (c *GeoContext) registerAdminRoutes(router *echo.Group) {
	router.GET("/settings", c.settingsController.Show()).Name = "geo.settings"
	router.POST("/settings", c.settingsController.Update())
	router.POST("/cache/clear", c.settingsController.ClearCache())
}

// adminAuth protects the admin routes with basic auth, if an admin user is configured.
// passwordHash is a bcrypt hash of the admin's password.
func adminAuth(user string, passwordHash secret.Secret) []echo.MiddlewareFunc {
	if user == "" {
		return nil
	}

	return []echo.MiddlewareFunc{
		middleware.BasicAuth(func(username string, password string, _ echo.Context) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(username), []byte(user)) != 1 {
				return false, nil
			}

			err := bcrypt.CompareHashAndPassword([]byte(passwordHash.Secret()), []byte(password))

			return err == nil, nil
		}),
	}
}
